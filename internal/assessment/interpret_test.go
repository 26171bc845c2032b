package assessment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindspace/backend/internal/severity"
)

// answersSumming builds a valid answer slice for the instrument whose raw
// score equals total.
func answersSumming(t *testing.T, instrument Instrument, total int) []int {
	t.Helper()
	n := len(Questions(instrument))
	require.NotZero(t, n)
	require.LessOrEqual(t, total, n*3)

	answers := make([]int, n)
	for i := 0; i < n && total > 0; i++ {
		a := total
		if a > 3 {
			a = 3
		}
		answers[i] = a
		total -= a
	}
	return answers
}

func TestInterpretPHQ9CriticalBoundary(t *testing.T) {
	at20, err := Interpret(PHQ9, answersSumming(t, PHQ9, 20))
	require.NoError(t, err)
	require.Equal(t, 20, at20.RawScore)
	require.Equal(t, 27, at20.MaxPossible)
	require.Equal(t, severity.Critical, at20.Severity)
	require.True(t, at20.IsCritical())

	at19, err := Interpret(PHQ9, answersSumming(t, PHQ9, 19))
	require.NoError(t, err)
	require.Equal(t, severity.High, at19.Severity)
	require.False(t, at19.IsCritical())
}

func TestInterpretGAD7CriticalBoundary(t *testing.T) {
	at15, err := Interpret(GAD7, answersSumming(t, GAD7, 15))
	require.NoError(t, err)
	require.Equal(t, 15, at15.RawScore)
	require.Equal(t, 21, at15.MaxPossible)
	require.Equal(t, severity.Critical, at15.Severity)

	at14, err := Interpret(GAD7, answersSumming(t, GAD7, 14))
	require.NoError(t, err)
	require.Equal(t, severity.High, at14.Severity)
	require.False(t, at14.IsCritical())
}

func TestInterpretBands(t *testing.T) {
	cases := []struct {
		instrument Instrument
		score      int
		level      severity.Level
		band       string
	}{
		{PHQ9, 0, severity.Normal, "Minimal"},
		{PHQ9, 4, severity.Normal, "Minimal"},
		{PHQ9, 5, severity.Moderate, "Mild"},
		{PHQ9, 12, severity.Moderate, "Moderate"},
		{PHQ9, 15, severity.High, "Moderately Severe"},
		{PHQ9, 27, severity.Critical, "Severe"},
		{GAD7, 0, severity.Normal, "Minimal"},
		{GAD7, 7, severity.Moderate, "Mild"},
		{GAD7, 10, severity.High, "Moderate"},
		{GAD7, 21, severity.Critical, "Severe"},
	}

	for _, tc := range cases {
		result, err := Interpret(tc.instrument, answersSumming(t, tc.instrument, tc.score))
		require.NoError(t, err)
		require.Equal(t, tc.score, result.RawScore, "%s score %d", tc.instrument, tc.score)
		require.Equal(t, tc.level, result.Severity, "%s score %d", tc.instrument, tc.score)
		require.Equal(t, tc.band, result.Band, "%s score %d", tc.instrument, tc.score)
		require.NotEmpty(t, result.Recommendation)
	}
}

func TestInterpretRejectsWrongLength(t *testing.T) {
	_, err := Interpret(PHQ9, make([]int, 7))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Interpret(GAD7, make([]int, 9))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Interpret(PHQ9, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInterpretRejectsOutOfRangeAnswers(t *testing.T) {
	answers := make([]int, 9)
	answers[3] = 4
	_, err := Interpret(PHQ9, answers)
	require.ErrorIs(t, err, ErrInvalidInput)

	answers[3] = -1
	_, err = Interpret(PHQ9, answers)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInterpretRejectsUnknownInstrument(t *testing.T) {
	_, err := Interpret(Instrument("mmpi"), []int{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestQuestionsAndOptions(t *testing.T) {
	require.Len(t, Questions(PHQ9), 9)
	require.Len(t, Questions(GAD7), 7)
	require.Nil(t, Questions(Instrument("other")))
	require.Len(t, Options(), 4)
	require.Equal(t, 27, MaxScore(PHQ9))
	require.Equal(t, 21, MaxScore(GAD7))
}
