package fallback

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/hupe1980/finmesh/logging"
)

var (
	// ErrBackendUnavailable wraps any error or empty value returned by a backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendTimeout marks an attempt that exceeded its timeout.
	ErrBackendTimeout = errors.New("backend timeout")
	// ErrNoBackendsConfigured is reported by chains without backends.
	ErrNoBackendsConfigured = errors.New("no backends configured")
)

// Backend is one interchangeable implementation of a capability.
type Backend[A, T any] struct {
	// Name identifies the backend in results, events and logs.
	Name string
	// Priority orders backends; lower values are tried first. Ties keep
	// registration order.
	Priority int
	// Timeout bounds a single attempt. Zero selects the chain default.
	Timeout time.Duration
	// Invoke performs the call.
	Invoke func(ctx context.Context, args A) (T, error)
}

// Failure records why a backend attempt did not produce a value.
type Failure struct {
	Backend  string        `json:"backend"`
	Err      error         `json:"-"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Timeout reports whether the attempt timed out.
func (f Failure) Timeout() bool { return errors.Is(f.Err, ErrBackendTimeout) }

// Result is the outcome of Chain.Invoke.
type Result[T any] struct {
	// Value is the first successful value; zero when Degraded.
	Value T
	// Backend names the backend that produced Value.
	Backend string
	// Degraded is set when no backend produced a value.
	Degraded bool
	// Failures lists every failed attempt in the order tried.
	Failures []Failure
	// Cause is the terminal reason for a degraded result: nil on success,
	// ErrNoBackendsConfigured for empty chains, the context error when the
	// request was cancelled, ErrBackendUnavailable otherwise.
	Cause error
}

// OK reports whether a backend produced a value.
func (r Result[T]) OK() bool { return !r.Degraded }

// Err joins the cause and every recorded failure. It is nil on success.
func (r Result[T]) Err() error {
	if !r.Degraded {
		return nil
	}
	errs := []error{r.Cause}
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Backend, f.Err))
	}
	return errors.Join(errs...)
}

// Options configures a Chain.
type Options[T any] struct {
	// Capability labels the chain in logs (e.g. "generation", "search").
	Capability string
	// DefaultTimeout bounds attempts of backends without their own timeout.
	DefaultTimeout time.Duration
	// IsEmpty decides whether a returned value counts as a failure. The
	// default treats zero values, empty strings and empty slices as empty.
	IsEmpty func(T) bool
	// Logger receives one entry per attempt.
	Logger logging.Logger
}

// Chain is an ordered list of backends for one capability. It is immutable
// after construction and safe for concurrent use.
type Chain[A, T any] struct {
	backends []Backend[A, T]
	opts     Options[T]
}

// New builds a chain from backends, ordered by ascending Priority.
func New[A, T any](backends []Backend[A, T], optFns ...func(o *Options[T])) *Chain[A, T] {
	opts := Options[T]{
		Capability:     "backend",
		DefaultTimeout: 30 * time.Second,
		IsEmpty:        IsZero[T],
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}

	sorted := slices.Clone(backends)
	slices.SortStableFunc(sorted, func(a, b Backend[A, T]) int { return cmp.Compare(a.Priority, b.Priority) })

	return &Chain[A, T]{backends: sorted, opts: opts}
}

// WithEmptyCheck overrides the empty value predicate.
func WithEmptyCheck[T any](fn func(T) bool) func(o *Options[T]) {
	return func(o *Options[T]) { o.IsEmpty = fn }
}

// Names returns backend names in the order they are tried.
func (c *Chain[A, T]) Names() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name
	}
	return names
}

// Len returns the number of backends.
func (c *Chain[A, T]) Len() int { return len(c.backends) }

// Invoke tries each backend once, in order, until one returns a non-empty
// value. It never panics and never returns an error; inspect Result.Degraded.
func (c *Chain[A, T]) Invoke(ctx context.Context, args A) Result[T] {
	var res Result[T]
	if len(c.backends) == 0 {
		res.Degraded = true
		res.Cause = ErrNoBackendsConfigured
		c.opts.Logger.Warn("Fallback chain has no backends", "capability", c.opts.Capability)
		return res
	}

	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			res.Degraded = true
			res.Cause = err
			return res
		}

		start := time.Now()
		v, err := c.attempt(ctx, b, args)
		dur := time.Since(start)

		if err == nil && c.opts.IsEmpty(v) {
			err = fmt.Errorf("%w: empty result", ErrBackendUnavailable)
		}
		if err == nil {
			c.opts.Logger.Debug("Backend call completed", "capability", c.opts.Capability, "backend", b.Name, "duration", dur)
			res.Value = v
			res.Backend = b.Name
			return res
		}

		c.opts.Logger.Warn("Backend call failed", "capability", c.opts.Capability, "backend", b.Name, "duration", dur, "error", err)
		res.Failures = append(res.Failures, Failure{Backend: b.Name, Err: err, Message: err.Error(), Duration: dur})

		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Degraded = true
			res.Cause = ctxErr
			return res
		}
	}

	res.Degraded = true
	res.Cause = ErrBackendUnavailable
	c.opts.Logger.Error("All backends failed", "capability", c.opts.Capability, "attempts", len(res.Failures))
	return res
}

type outcome[T any] struct {
	value T
	err   error
}

// attempt runs one backend call bounded by its timeout. The call runs in its
// own goroutine so a backend that ignores ctx is still abandoned on time.
func (c *Chain[A, T]) attempt(ctx context.Context, b Backend[A, T], args A) (T, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = c.opts.DefaultTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: panic: %v", ErrBackendUnavailable, r)}
			}
		}()
		v, err := b.Invoke(actx, args)
		done <- outcome[T]{value: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return zero, fmt.Errorf("%w after %s: %v", ErrBackendTimeout, timeout, o.err)
			}
			if errors.Is(o.err, ErrBackendUnavailable) || errors.Is(o.err, ErrBackendTimeout) {
				return zero, o.err
			}
			return zero, fmt.Errorf("%w: %w", ErrBackendUnavailable, o.err)
		}
		return o.value, nil
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrBackendTimeout, timeout)
	}
}

// IsZero reports whether v is the zero value of its type, an empty string or
// an empty slice or map.
func IsZero[T any](v T) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}
