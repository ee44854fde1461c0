// Package poll provides a bounded retry primitive for waiting on
// eventually-consistent cluster state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotReady signals that the polled condition has not been met yet.
// Predicates return it to request another attempt; any other error is
// treated as a control-plane communication failure.
var ErrNotReady = errors.New("not ready")

// ControlPlaneError reports repeated failures reaching the registry or
// orchestrator. It is distinct from a timeout: the cluster may be fine,
// we just cannot observe it.
type ControlPlaneError struct {
	Attempts int
	Cause    error
}

func (e *ControlPlaneError) Error() string {
	return fmt.Sprintf("control plane unreachable after %d consecutive attempts: %v", e.Attempts, e.Cause)
}

func (e *ControlPlaneError) Unwrap() error { return e.Cause }

// Outcome is the tagged result of a bounded poll. Exactly one of the
// states holds: Converged with the satisfying value, or not converged
// with the last observed (possibly partial) value and the reason.
type Outcome[T any] struct {
	Converged bool
	Value     T // satisfying value, or last partial observation on timeout
	Err       error
}

// Options configures a single poll loop.
type Options struct {
	// Timeout bounds the whole poll in wall-clock time.
	Timeout time.Duration
	// Interval is the sleep between attempts.
	Interval time.Duration
	// MaxConsecutiveErrors bounds tolerated transient communication
	// failures before the poll gives up with a ControlPlaneError.
	MaxConsecutiveErrors int

	// Hooks for tests; real clock when nil.
	Now   func() time.Time
	Sleep func(context.Context, time.Duration) bool
}

// DefaultOptions returns the polling defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:              60 * time.Second,
		Interval:             time.Second,
		MaxConsecutiveErrors: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}

	if o.Interval == 0 {
		o.Interval = d.Interval
	}

	if o.MaxConsecutiveErrors == 0 {
		o.MaxConsecutiveErrors = d.MaxConsecutiveErrors
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	if o.Sleep == nil {
		o.Sleep = sleep
	}

	return o
}

// sleep blocks for d or until ctx is done, reporting whether the full
// interval elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Until repeatedly invokes fn until it returns a value, the deadline
// elapses, or the transient-error budget is exhausted.
//
// fn returns ErrNotReady to request another attempt. Any other error
// counts as a consecutive communication failure; a successful attempt
// (value or ErrNotReady) resets that count. On timeout the outcome
// carries the last value fn produced alongside ErrNotReady, so callers
// can report partial state. fn must be read-only: Until may invoke it
// any number of times.
func Until[T any](ctx context.Context, fn func(context.Context) (T, error), opts Options) Outcome[T] {
	opts = opts.withDefaults()
	deadline := opts.Now().Add(opts.Timeout)

	var last T
	var consecutive int

	for {
		select {
		case <-ctx.Done():
			return Outcome[T]{Value: last, Err: ctx.Err()}
		default:
		}

		value, err := fn(ctx)
		switch {
		case err == nil:
			return Outcome[T]{Converged: true, Value: value}
		case errors.Is(err, ErrNotReady):
			last = value
			consecutive = 0
		case ctx.Err() != nil:
			return Outcome[T]{Value: last, Err: ctx.Err()}
		default:
			consecutive++
			if consecutive >= opts.MaxConsecutiveErrors {
				return Outcome[T]{Value: last, Err: &ControlPlaneError{Attempts: consecutive, Cause: err}}
			}
		}

		if !opts.Now().Add(opts.Interval).Before(deadline) {
			return Outcome[T]{Value: last, Err: fmt.Errorf("deadline %s elapsed: %w", opts.Timeout, ErrNotReady)}
		}

		if !opts.Sleep(ctx, opts.Interval) {
			return Outcome[T]{Value: last, Err: ctx.Err()}
		}
	}
}
