package crisis

// Risk phrase lexicons. The lists are fixed behavioral constants carried over
// from the deployed screening configuration; treat them as configuration to be
// revisited with clinical review, not as values to re-derive.

// criticalPhrases indicate immediate danger. A single match anywhere in a
// message yields a CRITICAL score regardless of other matches.
var criticalPhrases = []string{
	// Suicide / self-harm
	"suicide", "suicidal", "kill myself", "end my life", "want to die",
	"better off dead", "no reason to live", "take my own life",
	"self harm", "self-harm", "cut myself", "hurt myself", "harm myself",

	// Hopelessness
	"no way out", "no hope", "hopeless", "give up", "can't go on",
	"nothing left", "end it all", "no point", "tired of living",

	// Violence to others
	"hurt someone", "kill someone", "harm others", "violent thoughts",

	// Substance abuse crisis
	"overdose", "too many pills", "substance abuse crisis",

	// Emergency situations
	"emergency", "crisis", "help me now", "urgent help",
}

// warningPhrases indicate serious concern short of immediate danger.
var warningPhrases = []string{
	"depressed", "depression", "anxious", "anxiety", "panic attack",
	"can't cope", "overwhelmed", "breaking down", "falling apart",
	"scared", "terrified", "alone", "lonely", "isolated",
	"worthless", "useless", "failure", "burden", "hate myself",
	"self-hatred", "disgust myself", "no one cares", "nobody cares",
	"crying", "can't stop crying", "can't sleep", "nightmares",
}
