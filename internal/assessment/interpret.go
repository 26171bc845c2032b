package assessment

import (
	"fmt"

	"github.com/mindspace/backend/internal/severity"
)

// ErrInvalidInput marks a caller contract violation: wrong answer count,
// out-of-range answer, or unknown instrument. Never retried.
var ErrInvalidInput = fmt.Errorf("assessment: invalid input")

// Result is the interpreted outcome of a submitted questionnaire. Created at
// submission, persisted by the storage collaborator, never mutated.
type Result struct {
	Instrument     Instrument     `json:"instrument"`
	RawScore       int            `json:"raw_score"`
	MaxPossible    int            `json:"max_possible"`
	Severity       severity.Level `json:"severity"`
	Band           string         `json:"band"`
	Recommendation string         `json:"recommendation"`
}

// IsCritical reports whether the score meets the instrument's crisis cut
// point (PHQ-9 >= 20, GAD-7 >= 15). The chat coordinator uses this to force a
// crisis annotation regardless of the conversational keyword score.
func (r Result) IsCritical() bool {
	return r.Severity == severity.Critical
}

// Interpret sums the answers and maps the raw score to a severity band using
// the instrument's fixed cut points. The answer slice length must exactly
// match the instrument's question count and each answer must lie in [0,3];
// violations return ErrInvalidInput rather than being truncated or padded.
func Interpret(instrument Instrument, answers []int) (Result, error) {
	questions := Questions(instrument)
	if questions == nil {
		return Result{}, fmt.Errorf("%w: unknown instrument %q", ErrInvalidInput, instrument)
	}
	if len(answers) != len(questions) {
		return Result{}, fmt.Errorf("%w: expected %d answers for %s, got %d",
			ErrInvalidInput, len(questions), instrument, len(answers))
	}

	raw := 0
	for i, a := range answers {
		if a < 0 || a > 3 {
			return Result{}, fmt.Errorf("%w: answer %d must be in [0,3], got %d",
				ErrInvalidInput, i+1, a)
		}
		raw += a
	}

	result := Result{
		Instrument:  instrument,
		RawScore:    raw,
		MaxPossible: MaxScore(instrument),
	}

	switch instrument {
	case PHQ9:
		result.Severity, result.Band, result.Recommendation = interpretPHQ9(raw)
	case GAD7:
		result.Severity, result.Band, result.Recommendation = interpretGAD7(raw)
	}
	return result, nil
}

// PHQ-9 clinical bands: 0-4 minimal, 5-9 mild, 10-14 moderate, 15-19
// moderately severe, 20-27 severe. The five bands collapse into four severity
// tiers; the >=20 cut point is the crisis trigger.
func interpretPHQ9(score int) (severity.Level, string, string) {
	switch {
	case score >= 20:
		return severity.Critical, "Severe",
			"Your responses suggest severe depression. Please seek professional help immediately. Contact a mental health crisis line or visit an emergency room if you're in crisis."
	case score >= 15:
		return severity.High, "Moderately Severe",
			"Your responses suggest moderately severe depression. Please consult with a mental health professional soon. Treatment with therapy and/or medication may be beneficial."
	case score >= 10:
		return severity.Moderate, "Moderate",
			"Your responses suggest moderate depression. We recommend scheduling an appointment with a mental health professional for proper evaluation."
	case score >= 5:
		return severity.Moderate, "Mild",
			"Your responses suggest mild depression. Consider talking to a healthcare provider and exploring therapy or counseling options."
	default:
		return severity.Normal, "Minimal",
			"Your responses suggest minimal depression symptoms. Continue with self-care and healthy lifestyle practices."
	}
}

// GAD-7 clinical bands: 0-4 minimal, 5-9 mild, 10-14 moderate, 15-21 severe.
// The >=15 cut point is the crisis trigger.
func interpretGAD7(score int) (severity.Level, string, string) {
	switch {
	case score >= 15:
		return severity.Critical, "Severe",
			"Your responses suggest severe anxiety. Please seek professional help soon. Treatment with therapy (such as CBT) and/or medication can be very effective."
	case score >= 10:
		return severity.High, "Moderate",
			"Your responses suggest moderate anxiety. We recommend consulting with a mental health professional for evaluation and possible treatment options."
	case score >= 5:
		return severity.Moderate, "Mild",
			"Your responses suggest mild anxiety. Consider stress reduction techniques like mindfulness, exercise, and adequate sleep. If symptoms persist, consult a healthcare provider."
	default:
		return severity.Normal, "Minimal",
			"Your responses suggest minimal anxiety. Continue practicing stress management and self-care."
	}
}
