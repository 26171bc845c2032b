package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/pkg/circuitbreaker"
	"github.com/mindspace/backend/pkg/logger"
)

// State tracks one orchestration attempt through the fallback hop.
type State int

const (
	StateNotStarted State = iota
	StateTryingPrimary
	StateTryingSecondary
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateTryingPrimary:
		return "trying_primary"
	case StateTryingSecondary:
		return "trying_secondary"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "not_started"
	}
}

// Result is a successful completion. The fallback is transparent: results
// from either provider look identical except for the Provider tag.
type Result struct {
	Text      string
	Provider  ProviderTag
	LatencyMS int
}

// Orchestrator sends a prompt to the primary provider and, on any failure
// (error, timeout, rate limit), makes exactly one fallback hop to the
// secondary. No retries happen within a provider on the live path; each
// provider attempt is one bounded-time call behind its own circuit breaker.
type Orchestrator struct {
	primary          Provider
	secondary        Provider
	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
	primaryBreaker   *circuitbreaker.Breaker
	secondaryBreaker *circuitbreaker.Breaker
}

type OrchestratorConfig struct {
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
}

func NewOrchestrator(primary, secondary Provider, cfg OrchestratorConfig) *Orchestrator {
	if cfg.PrimaryTimeout == 0 {
		cfg.PrimaryTimeout = 30 * time.Second
	}
	if cfg.SecondaryTimeout == 0 {
		cfg.SecondaryTimeout = 30 * time.Second
	}

	breakerFor := func(name string) *circuitbreaker.Breaker {
		return circuitbreaker.New(name, circuitbreaker.Config{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.Get(),
		})
	}

	return &Orchestrator{
		primary:          primary,
		secondary:        secondary,
		primaryTimeout:   cfg.PrimaryTimeout,
		secondaryTimeout: cfg.SecondaryTimeout,
		primaryBreaker:   breakerFor("llm-primary"),
		secondaryBreaker: breakerFor("llm-secondary"),
	}
}

// Complete runs the fallback state machine for a non-streaming completion.
// Only exhaustion of both providers surfaces as an error.
func (o *Orchestrator) Complete(ctx context.Context, payload prompt.Payload) (*Result, error) {
	start := time.Now()

	state := StateTryingPrimary
	text, primaryErr := o.attempt(ctx, o.primary, o.primaryBreaker, o.primaryTimeout, payload)
	if primaryErr == nil {
		return &Result{
			Text:      text,
			Provider:  TagPrimary,
			LatencyMS: int(time.Since(start).Milliseconds()),
		}, nil
	}

	// A caller disconnect is cancellation, not a provider failure; do not
	// burn the secondary's budget on an abandoned request.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	state = StateTryingSecondary
	logger.Warn("Primary provider failed, falling back",
		zap.String("primary", o.primary.Name()),
		zap.String("state", state.String()),
		zap.Bool("transient", Transient(primaryErr)),
		zap.Error(primaryErr),
	)

	text, secondaryErr := o.attempt(ctx, o.secondary, o.secondaryBreaker, o.secondaryTimeout, payload)
	if secondaryErr == nil {
		return &Result{
			Text:      text,
			Provider:  TagSecondary,
			LatencyMS: int(time.Since(start).Milliseconds()),
		}, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	logger.Error("Both completion providers failed",
		zap.String("state", StateFailed.String()),
		zap.NamedError("primary_error", primaryErr),
		zap.NamedError("secondary_error", secondaryErr),
	)

	return nil, fmt.Errorf("%w: primary: %v; secondary: %v", ErrProvidersExhausted, primaryErr, secondaryErr)
}

func (o *Orchestrator) attempt(ctx context.Context, provider Provider, breaker *circuitbreaker.Breaker, timeout time.Duration, payload prompt.Payload) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var text string
	err := breaker.Execute(attemptCtx, func() error {
		var err error
		text, err = provider.Complete(attemptCtx, payload)
		return err
	})
	metrics.ProviderRequests.WithLabelValues(provider.Name(), statusLabel(err)).Inc()
	return text, err
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CompleteStream runs the fallback state machine for a streaming completion.
// Fragments arrive on the returned channel, which is closed when the stream
// ends for any reason. If the primary fails after emitting partial tokens, a
// FragmentRestart event instructs the consumer to discard them before the
// secondary stream begins; partial outputs are never concatenated across
// providers.
func (o *Orchestrator) CompleteStream(ctx context.Context, payload prompt.Payload) <-chan Fragment {
	out := make(chan Fragment)

	go func() {
		defer close(out)

		primaryErr := o.attemptStream(ctx, o.primary, o.primaryBreaker, o.primaryTimeout, payload, out, TagPrimary)
		if primaryErr == nil || ctx.Err() != nil {
			return
		}

		logger.Warn("Primary provider stream failed, restarting on secondary",
			zap.String("primary", o.primary.Name()),
			zap.Error(primaryErr),
		)
		if !send(ctx, out, Fragment{Kind: FragmentRestart, Provider: TagPrimary}) {
			return
		}

		secondaryErr := o.attemptStream(ctx, o.secondary, o.secondaryBreaker, o.secondaryTimeout, payload, out, TagSecondary)
		if secondaryErr == nil || ctx.Err() != nil {
			return
		}

		send(ctx, out, Fragment{
			Kind:     FragmentError,
			Provider: TagNone,
			Err:      fmt.Errorf("%w: primary: %v; secondary: %v", ErrProvidersExhausted, primaryErr, secondaryErr),
		})
	}()

	return out
}

var errConsumerGone = errors.New("llm: stream consumer gone")

func (o *Orchestrator) attemptStream(ctx context.Context, provider Provider, breaker *circuitbreaker.Breaker, timeout time.Duration, payload prompt.Payload, out chan<- Fragment, tag ProviderTag) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := breaker.Execute(attemptCtx, func() error {
		return provider.CompleteStream(attemptCtx, payload, func(token string) error {
			if !send(attemptCtx, out, Fragment{Kind: FragmentToken, Text: token, Provider: tag}) {
				return errConsumerGone
			}
			return nil
		})
	})
	metrics.ProviderRequests.WithLabelValues(provider.Name(), statusLabel(err)).Inc()
	if err != nil {
		return err
	}

	send(ctx, out, Fragment{Kind: FragmentDone, Provider: tag})
	return nil
}

func send(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// Transient reports whether a provider failure looks like a timeout, rate
// limit, or server-side error. The fallback hop fires on any failure; this
// classification exists for logs and metrics.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return false
}
