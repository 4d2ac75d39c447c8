// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package poll waits for a predicate to produce a result.
//
// A poll checks its predicate once immediately and then once per interval
// until the predicate reports a result, the context ends, the handle is
// stopped, or (for bounded polls) the timeout elapses. Every poll resolves
// exactly once and releases its ticker when it does.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the polling cadence used when none is given.
const DefaultInterval = 20 * time.Millisecond

var (
	// ErrTimeout is returned by bounded polls whose predicate never held.
	ErrTimeout = errors.New("poll: timed out")
	// ErrStopped is returned when the owner of a Handle called Stop.
	ErrStopped = errors.New("poll: stopped")
	// ErrInvalidInterval is returned when the interval is not positive.
	ErrInvalidInterval = errors.New("poll: interval must be positive")
)

// Predicate reports whether a usable result is available. The boolean is
// false while the result is still empty.
type Predicate[T any] func(ctx context.Context) (T, bool, error)

// Logger interface allows passing *testing.T or log.Printf.
type Logger interface {
	Logf(format string, args ...any)
}

// LogFunc adapts a printf-style function such as log.Printf to Logger.
type LogFunc func(format string, args ...any)

func (f LogFunc) Logf(format string, args ...any) { f(format, args...) }

// ErrorPolicy decides what a predicate error does to a running poll.
type ErrorPolicy int

const (
	// PropagateErrors resolves the poll with the first predicate error.
	PropagateErrors ErrorPolicy = iota
	// RetryErrors logs the error and checks again on the next tick.
	RetryErrors
)

func (p ErrorPolicy) String() string {
	switch p {
	case PropagateErrors:
		return "propagate"
	case RetryErrors:
		return "retry"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

type config struct {
	interval time.Duration
	timeout  time.Duration
	policy   ErrorPolicy
	logger   Logger
	name     string
}

// Option configures a poll.
type Option func(*config)

// WithInterval sets the time between two checks.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithErrorPolicy sets how predicate errors are handled.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithLogger sets the logger used for retried predicate errors.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithName labels the poll in log messages.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

func withTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func newConfig(opts []Option) config {
	c := config{interval: DefaultInterval, name: "poll"}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c config) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Logf(format, args...)
	}
}

// Handle is one in-flight poll.
type Handle[T any] struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelCauseFunc

	value T
	err   error
	calls int
}

// Start begins polling pred in a new goroutine. The poll ends when ctx ends,
// so cancelling ctx is the way to abandon an unbounded wait.
func Start[T any](ctx context.Context, pred Predicate[T], opts ...Option) *Handle[T] {
	cfg := newConfig(opts)
	ctx, cancel := context.WithCancelCause(ctx)
	h := &Handle[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	if cfg.interval <= 0 {
		var zero T
		h.resolve(zero, fmt.Errorf("%s: %w", cfg.name, ErrInvalidInterval))
		return h
	}
	go h.run(ctx, pred, cfg)
	return h
}

func (h *Handle[T]) run(ctx context.Context, pred Predicate[T], cfg config) {
	var zero T

	// The deadline bounds the predicate too, so a driver call that blocks
	// cannot hold a bounded poll past its timeout.
	if cfg.timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, cfg.timeout, ErrTimeout)
		defer stop()
	}
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		h.calls++
		v, ok, err := pred(ctx)
		switch {
		case ctx.Err() != nil:
			h.resolve(zero, context.Cause(ctx))
			return
		case err != nil && cfg.policy == PropagateErrors:
			h.resolve(zero, err)
			return
		case err != nil:
			cfg.logf("%s: check %d failed, retrying: %v", cfg.name, h.calls, err)
		case ok:
			h.resolve(v, nil)
			return
		}
		if cfg.timeout < 0 {
			h.resolve(zero, ErrTimeout)
			return
		}

		select {
		case <-ctx.Done():
			h.resolve(zero, context.Cause(ctx))
			return
		case <-ticker.C:
		}
	}
}

func (h *Handle[T]) resolve(v T, err error) {
	h.once.Do(func() {
		h.value = v
		h.err = err
		close(h.done)
		h.cancel(nil)
	})
}

// Done is closed once the poll has resolved.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Result returns the resolved value, or an error if Done is not closed yet.
func (h *Handle[T]) Result() (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	default:
		var zero T
		return zero, errNotResolved
	}
}

var errNotResolved = errors.New("poll: not resolved yet")

// Wait blocks until the poll resolves. If ctx ends first the poll is
// stopped and ctx's error is returned.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		select {
		case <-h.done:
			return h.value, h.err
		default:
		}
		h.Stop()
		var zero T
		return zero, ctx.Err()
	}
}

// Stop abandons the poll. A poll that already resolved is unaffected.
// Stop returns once no further predicate call can start.
func (h *Handle[T]) Stop() {
	h.cancel(ErrStopped)
	<-h.done
}

// Until polls until pred holds or ctx ends.
func Until[T any](ctx context.Context, pred Predicate[T], opts ...Option) (T, error) {
	return Start(ctx, pred, opts...).Wait(ctx)
}

// Within polls until pred holds, ctx ends, or timeout elapses, in which case
// it returns ErrTimeout. The ctx passed to pred carries the deadline. A
// timeout that is not positive allows exactly one check, which the deadline
// does not bound.
func Within[T any](ctx context.Context, timeout time.Duration, pred Predicate[T], opts ...Option) (T, error) {
	if timeout <= 0 {
		timeout = -1
	}
	opts = append(opts[:len(opts):len(opts)], withTimeout(timeout))
	return Start(ctx, pred, opts...).Wait(ctx)
}
