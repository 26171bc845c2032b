package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(size, overlap int) *Processor {
	return NewProcessor(nil, nil, nil, size, overlap)
}

func TestChunkTextShortInput(t *testing.T) {
	p := newTestProcessor(500, 50)

	chunks := p.chunkText("grounding techniques can help during a panic attack")
	require.Len(t, chunks, 1)
	assert.Equal(t, "grounding techniques can help during a panic attack", chunks[0])
}

func TestChunkTextEmpty(t *testing.T) {
	p := newTestProcessor(500, 50)
	assert.Nil(t, p.chunkText("   "))
}

func TestChunkTextSplitsAndOverlaps(t *testing.T) {
	p := newTestProcessor(100, 20)

	text := strings.Repeat("breathing exercise ", 30)
	chunks := p.chunkText(text)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.NotEmpty(t, c)
		assert.LessOrEqual(t, len(c), 120, "chunk should stay near the size limit")
	}

	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.True(t, strings.HasSuffix(chunks[i-1], firstWord) ||
			strings.Contains(chunks[i-1], firstWord))
	}
}

func TestChunkTextPreservesAllWords(t *testing.T) {
	p := newTestProcessor(80, 0)

	words := []string{}
	for i := 0; i < 50; i++ {
		words = append(words, "anxiety")
	}
	chunks := p.chunkText(strings.Join(words, " "))

	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c))
	}
	assert.Equal(t, 50, total, "no overlap means every word appears exactly once")
}

func TestMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Coping With Panic", markdownTitle("# Coping With Panic\n\nSome body text."))
	assert.Equal(t, "", markdownTitle("No heading here.\n## Subheading only"))
}

func TestTailChars(t *testing.T) {
	assert.Equal(t, "", tailChars("some words here", 0))
	assert.Equal(t, "here", tailChars("some words here", 5))
	assert.Equal(t, "some words here", tailChars("some words here", 100))
}

func TestExtractTextHTML(t *testing.T) {
	p := newTestProcessor(500, 50)

	html := `<html><head><title>Sleep Hygiene</title><style>p{}</style></head>
	<body><nav>menu</nav><p>Keep a regular  schedule.</p><script>x()</script></body></html>`

	text, title := p.extractText("guide.html", html)
	assert.Equal(t, "Sleep Hygiene", title)
	assert.Equal(t, "Keep a regular schedule.", text)
	assert.NotContains(t, text, "menu")
}
