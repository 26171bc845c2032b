package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/mindspace/backend/internal/retrieval"
)

// SystemInstruction is the fixed persona given to every completion request.
const SystemInstruction = `You're a knowledgeable mental health companion. Give REAL, SPECIFIC, USEFUL advice - not generic fluff.

Be direct and helpful, like a smart friend who knows their stuff. Give specific, actionable tips. Base your answer on the provided reference context when it is relevant, and acknowledge when it is not.`

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn as supplied by the calling layer.
type Message struct {
	Role      string    `json:"role"` // RoleUser or RoleAssistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload is the assembled prompt for one completion request. It is owned
// exclusively by the orchestration call that created it.
type Payload struct {
	SystemInstruction string
	Context           string
	History           string
	Query             string
}

// UserPrompt renders the context, history and query sections as the single
// user message sent to a provider.
func (p Payload) UserPrompt() string {
	var b strings.Builder
	if p.Context != "" {
		b.WriteString(p.Context)
		b.WriteString("\n\n")
	}
	if p.History != "" {
		b.WriteString(p.History)
		b.WriteString("\n\n")
	}
	b.WriteString("User's current message: ")
	b.WriteString(p.Query)
	return b.String()
}

const (
	// historyTurnLimit caps how much of one prior turn is replayed.
	historyTurnLimit = 200
)

// Assembler shapes retrieved passages and conversation history into a prompt
// payload. Pure data shaping: no retrieval or network calls happen here.
type Assembler struct {
	system        string
	historyWindow int
}

// NewAssembler returns an assembler with a bounded trailing history window.
// windowSize is the maximum number of messages replayed into the prompt; zero
// or negative falls back to 8 (four exchanges).
func NewAssembler(windowSize int) *Assembler {
	if windowSize <= 0 {
		windowSize = 8
	}
	return &Assembler{system: SystemInstruction, historyWindow: windowSize}
}

// Assemble builds the payload: system instruction, then retrieved passages as
// context, then the trailing history window, then the user query. The output
// is well formed even with zero passages and empty history.
func (a *Assembler) Assemble(passages []retrieval.Passage, history []Message, query string) Payload {
	return Payload{
		SystemInstruction: a.system,
		Context:           formatContext(passages),
		History:           a.formatHistory(history),
		Query:             query,
	}
}

func formatContext(passages []retrieval.Passage) string {
	if len(passages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference context:\n")
	for i, p := range passages {
		b.WriteString(fmt.Sprintf("\n[Source %d] (%s)\n%s\n", i+1, p.SourceID, strings.TrimSpace(p.Text)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) formatHistory(history []Message) string {
	if len(history) == 0 {
		return ""
	}

	window := history
	if len(window) > a.historyWindow {
		window = window[len(window)-a.historyWindow:]
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, msg := range window {
		role := "User"
		if msg.Role == RoleAssistant {
			role = "You"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(truncateTurn(msg.Content))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateTurn flattens newlines and bounds one replayed turn so the prompt
// cannot grow without limit.
func truncateTurn(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(content, "\n\n", " "), "\n", " "))
	runes := []rune(content)
	if len(runes) <= historyTurnLimit {
		return content
	}
	return string(runes[:historyTurnLimit]) + "..."
}
