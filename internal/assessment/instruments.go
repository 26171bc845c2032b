package assessment

// Instrument identifies one of the two supported questionnaires.
type Instrument string

const (
	PHQ9 Instrument = "phq9"
	GAD7 Instrument = "gad7"
)

// Option is one point on the four-point Likert scale shared by both
// instruments.
type Option struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

// Options returns the shared answer scale.
func Options() []Option {
	return []Option{
		{Value: 0, Text: "Not at all"},
		{Value: 1, Text: "Several days"},
		{Value: 2, Text: "More than half the days"},
		{Value: 3, Text: "Nearly every day"},
	}
}

// phq9Questions: Patient Health Questionnaire for depression, 9 items,
// total score 0-27.
var phq9Questions = []string{
	"Little interest or pleasure in doing things",
	"Feeling down, depressed, or hopeless",
	"Trouble falling or staying asleep, or sleeping too much",
	"Feeling tired or having little energy",
	"Poor appetite or overeating",
	"Feeling bad about yourself - or that you are a failure or have let yourself or your family down",
	"Trouble concentrating on things, such as reading the newspaper or watching television",
	"Moving or speaking so slowly that other people could have noticed. Or the opposite - being so fidgety or restless that you have been moving around a lot more than usual",
	"Thoughts that you would be better off dead, or of hurting yourself in some way",
}

// gad7Questions: Generalized Anxiety Disorder assessment, 7 items,
// total score 0-21.
var gad7Questions = []string{
	"Feeling nervous, anxious, or on edge",
	"Not being able to stop or control worrying",
	"Worrying too much about different things",
	"Trouble relaxing",
	"Being so restless that it's hard to sit still",
	"Becoming easily annoyed or irritable",
	"Feeling afraid as if something awful might happen",
}

// Questions returns the fixed item list for the instrument, or nil if the
// instrument is unknown.
func Questions(instrument Instrument) []string {
	switch instrument {
	case PHQ9:
		return phq9Questions
	case GAD7:
		return gad7Questions
	default:
		return nil
	}
}

// MaxScore returns the maximum possible raw score for the instrument.
func MaxScore(instrument Instrument) int {
	return len(Questions(instrument)) * 3
}
