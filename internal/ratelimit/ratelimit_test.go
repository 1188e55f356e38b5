package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/traceback-dev/traceback/internal/logging"
)

func newTestLimiter(spacing, coolDown time.Duration) *Limiter {
	return New(spacing, coolDown, logging.Discard())
}

func TestObserveAnthropicHeaders(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(time.Millisecond, time.Millisecond)
	l.now = func() time.Time { return base }

	h := http.Header{}
	h.Set("anthropic-ratelimit-requests-remaining", "0")
	h.Set("anthropic-ratelimit-tokens-remaining", "12000")
	h.Set("anthropic-ratelimit-requests-reset", base.Add(time.Minute).Format(time.RFC3339))
	l.Observe(h)

	if l.requestsRemaining != 0 {
		t.Errorf("requestsRemaining = %d, want 0", l.requestsRemaining)
	}
	if l.tokensRemaining != 12000 {
		t.Errorf("tokensRemaining = %d, want 12000", l.tokensRemaining)
	}
	if !l.ShouldThrottle() {
		t.Error("ShouldThrottle() = false with quota spent and reset pending")
	}

	// Past the reset boundary the spent quota no longer gates, and with
	// the clock advanced past the spacing floor nothing else does.
	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	if l.ShouldThrottle() {
		t.Error("ShouldThrottle() = true after the reset boundary passed")
	}
}

func TestObserveOpenAIHeaders(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(time.Millisecond, time.Millisecond)
	l.now = func() time.Time { return base }

	h := http.Header{}
	h.Set("x-ratelimit-remaining-requests", "3")
	h.Set("x-ratelimit-remaining-tokens", "90000")
	h.Set("x-ratelimit-reset-requests", "6m0s")
	l.Observe(h)

	if l.requestsRemaining != 3 {
		t.Errorf("requestsRemaining = %d, want 3", l.requestsRemaining)
	}
	if l.tokensRemaining != 90000 {
		t.Errorf("tokensRemaining = %d, want 90000", l.tokensRemaining)
	}
	if want := base.Add(6 * time.Minute); !l.resetTime.Equal(want) {
		t.Errorf("resetTime = %v, want %v", l.resetTime, want)
	}
}

func TestObserveIgnoresAbsentHeaders(t *testing.T) {
	l := newTestLimiter(time.Millisecond, time.Millisecond)
	before := l.requestsRemaining
	l.Observe(http.Header{})
	if l.requestsRemaining != before {
		t.Errorf("requestsRemaining changed from %d to %d on empty headers", before, l.requestsRemaining)
	}
	l.Observe(nil)
}

func TestShouldThrottleSpacingFloor(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(200*time.Millisecond, time.Millisecond)
	l.now = func() time.Time { return base }

	if l.ShouldThrottle() {
		t.Error("ShouldThrottle() = true before any request")
	}

	l.Observe(http.Header{"Anthropic-Ratelimit-Requests-Remaining": []string{"40"}})
	if !l.ShouldThrottle() {
		t.Error("ShouldThrottle() = false immediately after a request")
	}

	l.now = func() time.Time { return base.Add(250 * time.Millisecond) }
	if l.ShouldThrottle() {
		t.Error("ShouldThrottle() = true after the spacing floor elapsed")
	}
}

func TestThrottleRestoresBudgetAfterReset(t *testing.T) {
	l := newTestLimiter(time.Millisecond, time.Millisecond)

	h := http.Header{}
	h.Set("anthropic-ratelimit-requests-remaining", "0")
	h.Set("x-ratelimit-reset-requests", "5ms")
	l.Observe(h)

	if err := l.Throttle(context.Background()); err != nil {
		t.Fatalf("Throttle: %v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.requestsRemaining != conservativeBudget {
		t.Errorf("requestsRemaining = %d after reset, want %d", l.requestsRemaining, conservativeBudget)
	}
	if !l.resetTime.IsZero() {
		t.Errorf("resetTime = %v after reset, want zero", l.resetTime)
	}
}

func TestThrottleHonorsCancellation(t *testing.T) {
	l := newTestLimiter(time.Millisecond, time.Millisecond)

	h := http.Header{}
	h.Set("anthropic-ratelimit-requests-remaining", "0")
	h.Set("x-ratelimit-reset-requests", "10m")
	l.Observe(h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := l.Throttle(ctx); err == nil {
		t.Error("Throttle with spent quota and cancelled context returned nil")
	}
}

func TestCoolDownWaitsAndReturns(t *testing.T) {
	l := newTestLimiter(time.Millisecond, 5*time.Millisecond)
	start := time.Now()
	if err := l.CoolDown(context.Background()); err != nil {
		t.Fatalf("CoolDown: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("CoolDown returned after %v, want at least 5ms", elapsed)
	}
}

func TestHeaderTimeFormats(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", "2026-08-25T12:30:00Z", now.Add(30 * time.Minute)},
		{"duration", "90s", now.Add(90 * time.Second)},
		{"seconds", "30", now.Add(30 * time.Second)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("x-ratelimit-reset-requests", tc.value)
			got, ok := headerTime(h, now, "x-ratelimit-reset-requests")
			if !ok {
				t.Fatalf("headerTime(%q) reported no value", tc.value)
			}
			if !got.Equal(tc.want) {
				t.Errorf("headerTime(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}

	h := http.Header{}
	h.Set("x-ratelimit-reset-requests", "not-a-time")
	if _, ok := headerTime(h, now, "x-ratelimit-reset-requests"); ok {
		t.Error("headerTime accepted an unparseable value")
	}
}
