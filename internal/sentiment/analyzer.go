// Package sentiment scores message polarity and dominant emotions from fixed
// word lists. The scores enrich persisted chat records for trend analytics;
// crisis screening never depends on them.
package sentiment

import (
	"sort"
	"strings"
	"unicode"
)

// Analysis is the outcome of scoring one message.
type Analysis struct {
	Label         string   `json:"label"` // "positive", "negative" or "neutral"
	Score         float64  `json:"score"` // [-1, 1]
	PositiveWords []string `json:"positive_words,omitempty"`
	NegativeWords []string `json:"negative_words,omitempty"`
	Emotions      []string `json:"emotions,omitempty"` // dominant first
}

// Analyze scores the text. Pure function over the static lexicons.
func Analyze(text string) Analysis {
	words := tokenize(text)
	if len(words) == 0 {
		return Analysis{Label: "neutral"}
	}

	var score float64
	var positive, negative []string
	emotionCounts := make(map[string]int)

	for i, word := range words {
		weight := 1.0
		negated := false

		// Look back up to two tokens for intensifiers and negations:
		// "not very happy" flips and scales.
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := words[i-back]
			if m, ok := intensifiers[prev]; ok {
				weight *= m
			}
			if negations[prev] {
				negated = true
			}
		}

		switch {
		case positiveWords[word]:
			if negated {
				score -= weight
				negative = append(negative, word)
			} else {
				score += weight
				positive = append(positive, word)
			}
		case negativeWords[word]:
			if negated {
				score += weight * 0.5
			} else {
				score -= weight
				negative = append(negative, word)
			}
		}

		for emotion, lexicon := range emotionLexicon {
			if lexicon[word] {
				emotionCounts[emotion]++
			}
		}
	}

	// Normalize by matched word count so long messages do not saturate.
	matched := len(positive) + len(negative)
	if matched > 0 {
		score /= float64(matched)
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	return Analysis{
		Label:         label(score),
		Score:         score,
		PositiveWords: positive,
		NegativeWords: negative,
		Emotions:      dominantEmotions(emotionCounts),
	}
}

func label(score float64) string {
	switch {
	case score > 0.1:
		return "positive"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

func dominantEmotions(counts map[string]int) []string {
	if len(counts) == 0 {
		return nil
	}

	emotions := make([]string, 0, len(counts))
	for e := range counts {
		emotions = append(emotions, e)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] != counts[emotions[j]] {
			return counts[emotions[i]] > counts[emotions[j]]
		}
		return emotions[i] < emotions[j]
	})

	if len(emotions) > 3 {
		emotions = emotions[:3]
	}
	return emotions
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
