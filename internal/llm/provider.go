package llm

import (
	"context"
	"errors"

	"github.com/mindspace/backend/internal/prompt"
)

// ErrProvidersExhausted is the terminal failure surfaced when the secondary
// provider fails after the primary already has. The coordinator converts it
// into a user-visible apology rather than letting it bubble to the transport.
var ErrProvidersExhausted = errors.New("llm: all completion providers exhausted")

// Provider is one completion backend. Each call is a single bounded-time
// attempt; providers never retry internally on the live request path.
type Provider interface {
	Name() string
	Complete(ctx context.Context, payload prompt.Payload) (string, error)
	// CompleteStream emits generated fragments through emit as they arrive.
	// A non-nil return from emit aborts the stream.
	CompleteStream(ctx context.Context, payload prompt.Payload, emit func(token string) error) error
}

// ProviderTag identifies which backend produced a completion.
type ProviderTag string

const (
	TagPrimary   ProviderTag = "primary"
	TagSecondary ProviderTag = "secondary"
	TagNone      ProviderTag = "none"
)

// FragmentKind discriminates streaming events.
type FragmentKind int

const (
	// FragmentToken carries one generated text fragment.
	FragmentToken FragmentKind = iota
	// FragmentRestart tells the consumer to discard everything received so
	// far: the primary provider failed mid-stream and the secondary is being
	// attempted from scratch.
	FragmentRestart
	// FragmentDone terminates a successful stream.
	FragmentDone
	// FragmentError terminates a stream after both providers failed.
	FragmentError
)

// Fragment is one event on a streaming completion channel.
type Fragment struct {
	Kind     FragmentKind
	Text     string
	Provider ProviderTag
	Err      error
}
