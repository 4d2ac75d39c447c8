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

package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestUntilResolvesWithFirstResult(t *testing.T) {
	var calls atomic.Int32
	v, err := Until(t.Context(), func(ctx context.Context) (string, bool, error) {
		n := calls.Add(1)
		if n < 3 {
			return "", false, nil
		}
		return "ready", true, nil
	}, WithInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("Until failed: %v", err)
	}
	if v != "ready" {
		t.Errorf("Expected ready, got %q", v)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 checks, got %d", got)
	}
}

func TestFirstCheckIsImmediate(t *testing.T) {
	start := time.Now()
	_, err := Until(t.Context(), func(ctx context.Context) (int, bool, error) {
		return 1, true, nil
	}, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("Until failed: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("First check waited for the interval")
	}
}

func TestResolvesAtOrAfterConditionHolds(t *testing.T) {
	readyAt := time.Now().Add(60 * time.Millisecond)
	got, err := Until(t.Context(), func(ctx context.Context) (time.Time, bool, error) {
		now := time.Now()
		return now, !now.Before(readyAt), nil
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Until failed: %v", err)
	}
	if got.Before(readyAt) {
		t.Errorf("Resolved at %v, before the condition held at %v", got, readyAt)
	}
	if d := got.Sub(readyAt); d > 500*time.Millisecond {
		t.Errorf("Resolved %v after the condition held", d)
	}
}

func TestWithinTimesOut(t *testing.T) {
	const timeout = 100 * time.Millisecond
	start := time.Now()
	_, err := Within(t.Context(), timeout, func(ctx context.Context) (string, bool, error) {
		return "", false, nil
	}, WithInterval(10*time.Millisecond))
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Errorf("Timed out after %v, before %v", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("Timed out after %v, far beyond %v", elapsed, timeout)
	}
}

func TestWithinNonPositiveTimeoutChecksOnce(t *testing.T) {
	var calls atomic.Int32
	_, err := Within(t.Context(), 0, func(ctx context.Context) (string, bool, error) {
		calls.Add(1)
		return "", false, nil
	}, WithInterval(time.Millisecond))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 check, got %d", got)
	}
}

func TestStopEndsPolling(t *testing.T) {
	var calls atomic.Int32
	h := Start(t.Context(), func(ctx context.Context) (string, bool, error) {
		calls.Add(1)
		return "", false, nil
	}, WithInterval(5*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	h.Stop()

	_, err := h.Result()
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Expected ErrStopped, got %v", err)
	}
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("Predicate called %d more times after Stop", got-after)
	}
}

func TestContextCancelEndsUnboundedWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err := Until(ctx, func(ctx context.Context) (string, bool, error) {
		return "", false, nil
	}, WithInterval(5*time.Millisecond))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestResolvesExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	h := Start(t.Context(), func(ctx context.Context) (int, bool, error) {
		return int(calls.Add(1)), true, nil
	}, WithInterval(time.Millisecond))
	<-h.Done()
	time.Sleep(20 * time.Millisecond)

	v, err := h.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected first result 1, got %d", v)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Predicate called %d times after resolution", got)
	}
	h.Stop()
	if v, err := h.Result(); v != 1 || err != nil {
		t.Errorf("Stop changed a resolved handle: %d, %v", v, err)
	}
}

func TestErrorPolicy(t *testing.T) {
	boom := errors.New("boom")

	t.Run("Propagate", func(t *testing.T) {
		var calls atomic.Int32
		_, err := Until(t.Context(), func(ctx context.Context) (string, bool, error) {
			calls.Add(1)
			return "", false, boom
		}, WithInterval(time.Millisecond))
		if !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("Expected 1 check, got %d", got)
		}
	})

	t.Run("Retry", func(t *testing.T) {
		var calls atomic.Int32
		v, err := Until(t.Context(), func(ctx context.Context) (string, bool, error) {
			if calls.Add(1) < 3 {
				return "", false, boom
			}
			return "ok", true, nil
		}, WithInterval(time.Millisecond), WithErrorPolicy(RetryErrors), WithLogger(t))
		if err != nil {
			t.Fatalf("Until failed: %v", err)
		}
		if v != "ok" {
			t.Errorf("Expected ok, got %q", v)
		}
	})
}

func TestInvalidInterval(t *testing.T) {
	_, err := Until(t.Context(), func(ctx context.Context) (string, bool, error) {
		t.Error("Predicate must not run")
		return "", false, nil
	}, WithInterval(0))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("Expected ErrInvalidInterval, got %v", err)
	}
}

func TestResultBeforeResolution(t *testing.T) {
	h := Start(t.Context(), func(ctx context.Context) (string, bool, error) {
		return "", false, nil
	}, WithInterval(time.Hour))
	defer h.Stop()
	if _, err := h.Result(); err == nil {
		t.Error("Expected an error before resolution")
	}
}

func TestWithinBoundsBlockedPredicate(t *testing.T) {
	const timeout = 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := Within(ctx, timeout, func(ctx context.Context) (string, bool, error) {
		<-ctx.Done()
		return "", false, ctx.Err()
	}, WithInterval(10*time.Millisecond))
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout || elapsed > timeout+time.Second {
		t.Errorf("Gave up after %v, want about %v", elapsed, timeout)
	}
}

func TestWithinParentCancelKeepsCause(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithCancelCause(t.Context())
	h := Start(ctx, func(ctx context.Context) (string, bool, error) {
		<-ctx.Done()
		return "", false, ctx.Err()
	}, WithInterval(10*time.Millisecond), withTimeout(time.Minute))
	cancel(boom)
	<-h.Done()
	if _, err := h.Result(); !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
}

func TestWaitPrefersResolvedResult(t *testing.T) {
	cancelled, cancel := context.WithCancel(t.Context())
	cancel()
	for i := range 100 {
		h := Start(t.Context(), func(ctx context.Context) (int, bool, error) {
			return 7, true, nil
		}, WithInterval(time.Millisecond))
		<-h.Done()
		v, err := h.Wait(cancelled)
		if err != nil || v != 7 {
			t.Fatalf("Attempt %d: got %d, %v", i, v, err)
		}
	}
}
