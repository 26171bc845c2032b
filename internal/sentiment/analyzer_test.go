package sentiment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzePositive(t *testing.T) {
	a := Analyze("I feel happy and grateful today, making real progress")
	require.Equal(t, "positive", a.Label)
	require.Greater(t, a.Score, 0.0)
	require.Contains(t, a.PositiveWords, "happy")
	require.Contains(t, a.PositiveWords, "grateful")
}

func TestAnalyzeNegative(t *testing.T) {
	a := Analyze("everything feels hopeless and exhausting, I'm so tired and sad")
	require.Equal(t, "negative", a.Label)
	require.Less(t, a.Score, 0.0)
	require.Contains(t, a.NegativeWords, "hopeless")
}

func TestAnalyzeNeutral(t *testing.T) {
	a := Analyze("the meeting is at three on tuesday")
	require.Equal(t, "neutral", a.Label)
	require.Zero(t, a.Score)
	require.Empty(t, a.Emotions)
}

func TestAnalyzeEmpty(t *testing.T) {
	require.Equal(t, "neutral", Analyze("").Label)
	require.Equal(t, "neutral", Analyze("   ").Label)
}

func TestNegationFlipsPolarity(t *testing.T) {
	plain := Analyze("I am happy")
	negated := Analyze("I am not happy")
	require.Greater(t, plain.Score, 0.0)
	require.Less(t, negated.Score, 0.0)
}

func TestIntensifierScalesScore(t *testing.T) {
	plain := Analyze("I am sad but coping")
	intense := Analyze("I am extremely sad but coping")
	require.Less(t, intense.Score, plain.Score)
}

func TestDominantEmotions(t *testing.T) {
	a := Analyze("I'm anxious and worried and nervous, though a little hopeful")
	require.NotEmpty(t, a.Emotions)
	require.Equal(t, "anxiety", a.Emotions[0])
	require.LessOrEqual(t, len(a.Emotions), 3)
}

func TestAnalyzeIdempotent(t *testing.T) {
	text := "scared but improving, really grateful for support"
	require.Equal(t, Analyze(text), Analyze(text))
}
