// Package circuitbreaker guards outbound provider calls. A breaker trips
// open after consecutive failures, rejects calls while open, and re-closes
// after a limited number of successful probes.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	MaxRequests      uint32        // concurrent probes allowed while half-open
	Interval         time.Duration // closed-state tally reset period, 0 keeps counting
	Timeout          time.Duration // how long the breaker stays open before probing
	FailureThreshold uint32
	SuccessThreshold uint32
	OnStateChange    func(name string, from State, to State)
	Logger           *zap.Logger
}

type Breaker struct {
	name             string
	maxRequests      uint32
	interval         time.Duration
	timeout          time.Duration
	failureThreshold uint32
	successThreshold uint32
	onStateChange    func(name string, from State, to State)
	logger           *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	tally      tally
	expiry     time.Time
}

type tally struct {
	requests             uint32
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
}

func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:             name,
		maxRequests:      cfg.MaxRequests,
		interval:         cfg.Interval,
		timeout:          cfg.Timeout,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		onStateChange:    cfg.OnStateChange,
		logger:           cfg.Logger,
	}

	if b.maxRequests == 0 {
		b.maxRequests = 1
	}
	if b.timeout == 0 {
		b.timeout = 60 * time.Second
	}
	if b.failureThreshold == 0 {
		b.failureThreshold = 5
	}
	if b.successThreshold == 0 {
		b.successThreshold = 2
	}

	b.nextGeneration(time.Now())
	return b
}

// Execute runs fn unless the breaker is open. A panic in fn counts as a
// failure and is re-raised.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(generation, false)
			panic(r)
		}
	}()

	err = fn()
	b.record(generation, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.tally.requests >= b.maxRequests {
		return generation, ErrTooManyRequests
	}

	b.tally.requests++
	return generation, nil
}

func (b *Breaker) record(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)
	// Outcome belongs to an earlier generation, drop it.
	if generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	b.tally.consecutiveSuccesses++
	b.tally.consecutiveFailures = 0

	if state == StateHalfOpen && b.tally.consecutiveSuccesses >= b.successThreshold {
		b.transition(StateClosed, now)
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	b.tally.consecutiveFailures++
	b.tally.consecutiveSuccesses = 0

	switch {
	case state == StateClosed && b.tally.consecutiveFailures >= b.failureThreshold:
		b.transition(StateOpen, now)
	case state == StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.nextGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.nextGeneration(now)

	if b.onStateChange != nil {
		b.onStateChange(b.name, prev, state)
	}
	if b.logger != nil {
		b.logger.Info("Breaker state changed",
			zap.String("breaker", b.name),
			zap.String("from", prev.String()),
			zap.String("to", state.String()),
			zap.Uint32("consecutive_failures", b.tally.consecutiveFailures),
		)
	}
}

func (b *Breaker) nextGeneration(now time.Time) {
	b.generation++
	b.tally = tally{}

	switch b.state {
	case StateClosed:
		if b.interval == 0 {
			b.expiry = time.Time{}
		} else {
			b.expiry = now.Add(b.interval)
		}
	case StateOpen:
		b.expiry = now.Add(b.timeout)
	default:
		b.expiry = time.Time{}
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	return state
}
