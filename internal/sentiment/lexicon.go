package sentiment

// Word lists driving the lexical sentiment analyzer. Sets are immutable after
// init and shared across requests without locking.

var positiveWords = newSet(
	"happy", "joy", "joyful", "glad", "cheerful", "delighted", "pleased", "content",
	"excited", "thrilled", "wonderful", "amazing", "great", "good", "fantastic",
	"excellent", "better", "improving", "hopeful", "optimistic", "grateful",
	"thankful", "blessed", "loved", "supported", "calm", "peaceful", "relaxed",
	"confident", "proud", "accomplished", "motivated", "energetic", "positive",
	"beautiful", "lovely", "smile", "laugh", "enjoy", "fun", "comfortable",
	"safe", "secure", "strong", "brave", "courageous", "resilient", "progress",
	"success", "achieved", "overcome", "managing", "coping", "healing",
)

var negativeWords = newSet(
	"sad", "unhappy", "depressed", "depression", "miserable", "upset", "hurt",
	"pain", "painful", "suffering", "anxious", "anxiety", "worried", "nervous",
	"scared", "afraid", "fear", "fearful", "terrified", "panic", "stress",
	"stressed", "overwhelmed", "hopeless", "helpless", "worthless", "useless",
	"failure", "failed", "lonely", "alone", "isolated", "abandoned", "rejected",
	"angry", "frustrated", "annoyed", "irritated", "mad", "furious", "hate",
	"terrible", "awful", "horrible", "worst", "bad", "worse", "struggling",
	"difficult", "hard", "tough", "exhausted", "tired", "drained", "numb",
	"empty", "lost", "confused", "uncertain", "doubt", "guilty", "shame",
	"embarrassed", "regret", "disappointed", "devastated", "broken", "trauma",
)

var emotionLexicon = map[string]map[string]bool{
	"joy":       newSet("happy", "joy", "joyful", "glad", "cheerful", "delighted", "excited", "thrilled", "wonderful", "amazing", "fantastic", "great", "smile", "laugh"),
	"sadness":   newSet("sad", "unhappy", "depressed", "miserable", "upset", "hurt", "crying", "tears", "grief", "mourning", "heartbroken", "devastated", "lonely", "empty"),
	"fear":      newSet("afraid", "scared", "fear", "fearful", "terrified", "panic", "anxious", "nervous", "worried", "dread", "horrified", "frightened"),
	"anger":     newSet("angry", "mad", "furious", "annoyed", "irritated", "frustrated", "rage", "hate", "resentful", "bitter", "hostile"),
	"anxiety":   newSet("anxious", "anxiety", "worried", "nervous", "stress", "stressed", "panic", "overwhelmed", "uneasy", "restless", "tense"),
	"hope":      newSet("hopeful", "optimistic", "better", "improving", "progress", "forward", "future", "possibility", "potential"),
	"gratitude": newSet("grateful", "thankful", "blessed", "appreciate", "appreciation", "thanks"),
	"love":      newSet("love", "loved", "caring", "affection", "tender", "warm", "attached", "connected"),
}

var intensifiers = map[string]float64{
	"very":       1.5,
	"extremely":  2.0,
	"incredibly": 2.0,
	"really":     1.3,
	"so":         1.4,
	"absolutely": 1.8,
	"totally":    1.6,
	"completely": 1.7,
	"deeply":     1.6,
	"terribly":   1.8,
	"awfully":    1.7,
	"quite":      1.2,
	"somewhat":   0.8,
	"slightly":   0.6,
}

var negations = newSet(
	"not", "n't", "no", "never", "nothing", "nowhere", "neither",
	"nobody", "none", "hardly", "barely", "scarcely",
)

func newSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
