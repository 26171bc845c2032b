package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindspace/backend/internal/crisis"
	"github.com/mindspace/backend/internal/llm"
	"github.com/mindspace/backend/internal/metrics"
)

type EventKind string

const (
	// EventMeta opens every stream with the screening outcome, before the
	// first token. Crisis annotations never wait on provider latency.
	EventMeta  EventKind = "meta"
	EventToken EventKind = "token"
	// EventRestart tells the consumer to discard every token received so
	// far; the reply is restarting on the fallback provider.
	EventRestart EventKind = "restart"
	EventDone    EventKind = "done"
	EventError   EventKind = "error"
)

// Event is one frame of a streamed turn.
type Event struct {
	Kind  EventKind `json:"kind"`
	Token string    `json:"token,omitempty"`
	Meta  *Response `json:"meta,omitempty"`
	Error string    `json:"error,omitempty"`
}

// HandleStream processes one turn as an event stream: a meta event with the
// screening outcome, tokens, a possible restart on provider fallback, and a
// final done event with the assembled response. The returned channel is
// closed after the done event.
func (e *Engine) HandleStream(ctx context.Context, req Request) (<-chan Event, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyMessage
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	score := crisis.Score(query)
	level := e.effectiveLevel(score, req.Assessment)

	resp := e.annotate(req.SessionID, query, score, level)

	out := make(chan Event)
	go func() {
		defer close(out)
		start := time.Now()

		if !emit(ctx, out, Event{Kind: EventMeta, Meta: resp}) {
			return
		}

		history := e.resolveHistory(req)
		passages := e.retriever.Retrieve(ctx, query)
		metrics.RetrievalResultsCount.Observe(float64(len(passages)))

		payload := e.assembler.Assemble(passages, history, query)

		var text strings.Builder
		var provider llm.ProviderTag
		exhausted := false

		for frag := range e.completer.CompleteStream(ctx, payload) {
			switch frag.Kind {
			case llm.FragmentToken:
				text.WriteString(frag.Text)
				provider = frag.Provider
				if !emit(ctx, out, Event{Kind: EventToken, Token: frag.Text}) {
					return
				}
			case llm.FragmentRestart:
				text.Reset()
				if !emit(ctx, out, Event{Kind: EventRestart}) {
					return
				}
			case llm.FragmentDone:
				if frag.Provider != "" {
					provider = frag.Provider
				}
			case llm.FragmentError:
				exhausted = true
			}
		}

		if exhausted {
			resp.Text = e.decorate(degradedResponse, level)
			resp.Degraded = true
			metrics.ChatTotal.WithLabelValues("degraded").Inc()
			if !emit(ctx, out, Event{Kind: EventError, Error: "all providers unavailable"}) {
				return
			}
		} else {
			resp.Text = e.decorate(text.String(), level)
			resp.Provider = string(provider)
			if provider == llm.TagSecondary {
				metrics.ProviderFallbacks.Inc()
			}
			metrics.ChatTotal.WithLabelValues("ok").Inc()
		}

		resp.LatencyMS = int(time.Since(start).Milliseconds())
		e.persistTurn(req, resp, query, score)
		metrics.ChatDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())

		emit(ctx, out, Event{Kind: EventDone, Meta: resp})
	}()

	return out, nil
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
