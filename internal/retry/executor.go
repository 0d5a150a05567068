package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy bounds a single Do call.
type Policy struct {
	MaxAttempts  int
	Timeout      time.Duration
	InitialDelay time.Duration
}

// Validate rejects policies that could never run an attempt or never back off.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %s", p.Timeout)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %s", p.InitialDelay)
	}
	return nil
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	return p.InitialDelay * time.Duration(1<<uint(attempt))
}

// Operation is one unit of work retried by Do.
type Operation[T any] func(ctx context.Context) (T, error)

// Executor runs operations under a Policy.
type Executor struct {
	policy  Policy
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	metrics *Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the backoff wait (tests use it to record delays).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithMetrics records attempt outcomes.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor validates the policy and builds an Executor.
func NewExecutor(policy Policy, logger zerolog.Logger, opts ...Option) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{
		policy: policy,
		logger: logger.With().Str("component", "retry_executor").Logger(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Do runs op until it succeeds, fails fatally, or the attempt budget is spent.
// Every failure is returned as *Error wrapping the most recent cause.
func Do[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		val, err := race(ctx, e.policy.Timeout, op)
		if err == nil {
			e.metrics.observe(outcomeSuccess)
			return val, nil
		}
		lastErr = err

		retryable := IsRetryable(err)
		e.metrics.observe(outcomeFor(err, retryable))

		if !retryable {
			e.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("fatal failure, not retrying")
			return zero, &Error{Attempts: attempt + 1, Retryable: false, Err: err}
		}
		if attempt >= e.policy.MaxAttempts-1 {
			break
		}

		delay := e.policy.Backoff(attempt)
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", e.policy.MaxAttempts).
			Dur("backoff", delay).
			Msg("retryable failure, backing off")

		if err := e.sleep(ctx, delay); err != nil {
			return zero, &Error{Attempts: attempt + 1, Retryable: true, Err: err}
		}
	}

	e.logger.Error().Err(lastErr).Int("attempts", e.policy.MaxAttempts).Msg("retries exhausted")
	return zero, &Error{Attempts: e.policy.MaxAttempts, Retryable: true, Err: lastErr}
}

type result[T any] struct {
	val T
	err error
}

// race runs op against a timer. The first to settle decides the attempt; the
// buffered channel lets a losing op finish without blocking.
func race[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		val, err := op(attemptCtx)
		done <- result[T]{val: val, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.val, res.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Error is returned by Do for every failed call.
type Error struct {
	Attempts  int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Retryable {
		return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed on attempt %d: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Exhausted reports whether err is a retry.Error that ran out of retryable attempts.
func Exhausted(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Retryable
}
