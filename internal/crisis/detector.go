package crisis

import (
	"strings"
	"unicode"

	"github.com/mindspace/backend/internal/severity"
)

// Recommendation is the suggested next step for the calling layer.
type Recommendation string

const (
	RecommendImmediateHelp       Recommendation = "IMMEDIATE_HELP_NEEDED"
	RecommendProfessionalSupport Recommendation = "PROFESSIONAL_SUPPORT_RECOMMENDED"
	RecommendMonitoring          Recommendation = "MONITORING_SUGGESTED"
	RecommendContinue            Recommendation = "CONTINUE_CONVERSATION"
)

// ScoreResult is the outcome of screening a single message. It is created
// fresh per call and never mutated afterward.
type ScoreResult struct {
	Level           severity.Level
	NumericScore    int
	CriticalMatches []string
	WarningMatches  []string
	Recommendation  Recommendation
}

// MatchedTerms returns every lexicon phrase found in the message, critical
// matches first. Kept for audit logging even when callers only use the level.
func (r ScoreResult) MatchedTerms() []string {
	terms := make([]string, 0, len(r.CriticalMatches)+len(r.WarningMatches))
	terms = append(terms, r.CriticalMatches...)
	terms = append(terms, r.WarningMatches...)
	return terms
}

// IsCrisis reports whether the message scored CRITICAL.
func (r ScoreResult) IsCrisis() bool {
	return r.Level == severity.Critical
}

// RequiresIntervention reports whether the score warrants surfacing crisis
// resources alongside the response.
func (r ScoreResult) RequiresIntervention() bool {
	return r.Level >= severity.High
}

type phrase struct {
	raw        string
	normalized string
}

// compiled at init; immutable afterwards, safe for concurrent use.
var (
	criticalLexicon = compile(criticalPhrases)
	warningLexicon  = compile(warningPhrases)
)

func compile(raw []string) []phrase {
	out := make([]phrase, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		n := normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, phrase{raw: p, normalized: n})
	}
	return out
}

// normalize lowercases, drops punctuation except apostrophes (contractions
// like "can't" are load-bearing), and collapses runs of whitespace so that
// phrase variants such as "self-harm" and "self harm" compare equal.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Score screens a message for risk indicators. Pure function over the static
// lexicons: the same text always yields the same result.
//
// Banding: any critical phrase scores CRITICAL; three or more warning phrases
// score HIGH; at least one warning phrase scores MODERATE; otherwise NORMAL.
// When tiers co-occur the maximum wins, never an average.
func Score(text string) ScoreResult {
	normalized := normalize(text)
	if normalized == "" {
		return ScoreResult{Level: severity.Normal, Recommendation: RecommendContinue}
	}

	// Substring containment, same contract as the deployed screener.
	haystack := " " + normalized + " "

	var critical, warning []string
	for _, p := range criticalLexicon {
		if strings.Contains(haystack, p.normalized) {
			critical = append(critical, p.raw)
		}
	}
	for _, p := range warningLexicon {
		if strings.Contains(haystack, p.normalized) {
			warning = append(warning, p.raw)
		}
	}

	result := ScoreResult{CriticalMatches: critical, WarningMatches: warning}
	switch {
	case len(critical) > 0:
		result.Level = severity.Critical
		result.NumericScore = 10
		result.Recommendation = RecommendImmediateHelp
	case len(warning) >= 3:
		result.Level = severity.High
		result.NumericScore = 7
		result.Recommendation = RecommendProfessionalSupport
	case len(warning) > 0:
		result.Level = severity.Moderate
		result.NumericScore = 5
		result.Recommendation = RecommendMonitoring
	default:
		result.Level = severity.Normal
		result.NumericScore = 0
		result.Recommendation = RecommendContinue
	}
	return result
}
