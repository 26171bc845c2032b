package crisis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindspace/backend/internal/severity"
)

func TestScoreNormalText(t *testing.T) {
	for _, text := range []string{
		"How can I improve my mood?",
		"What are good sleep habits?",
		"Tell me about mindfulness meditation",
	} {
		result := Score(text)
		require.Equal(t, severity.Normal, result.Level, "text: %q", text)
		require.Empty(t, result.MatchedTerms())
		require.Equal(t, 0, result.NumericScore)
		require.Equal(t, RecommendContinue, result.Recommendation)
		require.False(t, result.IsCrisis())
	}
}

func TestScoreEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t", "?!..."} {
		result := Score(text)
		require.Equal(t, severity.Normal, result.Level)
		require.Empty(t, result.MatchedTerms())
	}
}

func TestScoreCriticalPhrase(t *testing.T) {
	result := Score("I want to kill myself")
	require.Equal(t, severity.Critical, result.Level)
	require.Equal(t, 10, result.NumericScore)
	require.Contains(t, result.CriticalMatches, "kill myself")
	require.True(t, result.IsCrisis())
	require.True(t, result.RequiresIntervention())
	require.Equal(t, RecommendImmediateHelp, result.Recommendation)
}

func TestScoreCriticalOverridesWarnings(t *testing.T) {
	// Several warning phrases plus one critical phrase: maximum wins.
	result := Score("I'm depressed, anxious, lonely, worthless and I want to end my life")
	require.Equal(t, severity.Critical, result.Level)
	require.Contains(t, result.CriticalMatches, "end my life")
	require.NotEmpty(t, result.WarningMatches)
}

func TestScoreWarningBands(t *testing.T) {
	// One warning phrase -> MODERATE.
	moderate := Score("I've been feeling really depressed lately")
	require.Equal(t, severity.Moderate, moderate.Level)
	require.Equal(t, 5, moderate.NumericScore)
	require.Equal(t, RecommendMonitoring, moderate.Recommendation)
	require.False(t, moderate.RequiresIntervention())

	// Two warning phrases still MODERATE.
	two := Score("feeling anxious and overwhelmed")
	require.Equal(t, severity.Moderate, two.Level)
	require.Len(t, two.WarningMatches, 2)
}

func TestScoreThreeWarningsIsHigh(t *testing.T) {
	result := Score("I feel worthless and terrified and so alone")
	require.Equal(t, severity.High, result.Level)
	require.Equal(t, 7, result.NumericScore)
	require.Len(t, result.WarningMatches, 3)
	require.False(t, result.IsCrisis())
	require.True(t, result.RequiresIntervention())
	require.Equal(t, RecommendProfessionalSupport, result.Recommendation)
}

func TestScoreNormalizesPunctuationAndCase(t *testing.T) {
	// Hyphenated and punctuated variants match the same phrases.
	require.Equal(t, severity.Critical, Score("thinking about SELF-HARM.").Level)
	require.Equal(t, severity.Critical, Score("thinking about self   harm").Level)
	require.Equal(t, severity.Critical, Score("I can't go on!").Level)
}

func TestScoreIdempotent(t *testing.T) {
	text := "I'm depressed and anxious and can't sleep"
	first := Score(text)
	second := Score(text)
	require.Equal(t, first, second)
}

func TestBanner(t *testing.T) {
	require.NotEmpty(t, Banner(severity.Critical))
	require.NotEmpty(t, Banner(severity.High))
	require.Empty(t, Banner(severity.Moderate))
	require.Empty(t, Banner(severity.Normal))
}

func TestDefaultResources(t *testing.T) {
	res := DefaultResources()
	require.NotEmpty(t, res.Emergency)
	require.NotEmpty(t, res.International)
	require.NotEmpty(t, res.Online)
}
