// Package ratelimit serializes outbound oracle calls process-wide.
// Quota is a shared upstream resource, so every session must gate its
// calls through one Limiter instance.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSpacing is the minimum interval between requests. It
	// smooths bursts even while quota is healthy.
	DefaultSpacing = 200 * time.Millisecond

	// DefaultCoolDown is slept after a quota-exhausted response before
	// the call is retried.
	DefaultCoolDown = 5 * time.Second

	// conservativeBudget is assumed after crossing a reset boundary
	// without fresh header data.
	conservativeBudget = 10
)

// Limiter tracks remaining request/token quota reported by response
// headers and enforces the spacing floor between calls.
type Limiter struct {
	pacer    *rate.Limiter
	spacing  time.Duration
	coolDown time.Duration
	logger   *slog.Logger

	mu                sync.Mutex
	requestsRemaining int
	tokensRemaining   int
	resetTime         time.Time
	lastRequest       time.Time
	now               func() time.Time
}

// New builds a limiter with the given spacing floor and quota cool-down.
// Non-positive durations fall back to the defaults.
func New(spacing, coolDown time.Duration, logger *slog.Logger) *Limiter {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	if coolDown <= 0 {
		coolDown = DefaultCoolDown
	}
	return &Limiter{
		pacer:             rate.NewLimiter(rate.Every(spacing), 1),
		spacing:           spacing,
		coolDown:          coolDown,
		logger:            logger,
		requestsRemaining: conservativeBudget,
		tokensRemaining:   -1,
		now:               time.Now,
	}
}

// Observe parses quota headers from an oracle response. Both the
// anthropic-ratelimit-* and x-ratelimit-* families are understood;
// absent headers leave the current state untouched.
func (l *Limiter) Observe(h http.Header) {
	if h == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := headerInt(h, "anthropic-ratelimit-requests-remaining", "x-ratelimit-remaining-requests"); ok {
		l.requestsRemaining = v
	}
	if v, ok := headerInt(h, "anthropic-ratelimit-tokens-remaining", "x-ratelimit-remaining-tokens"); ok {
		l.tokensRemaining = v
	}
	if t, ok := headerTime(h, l.now(), "anthropic-ratelimit-requests-reset", "x-ratelimit-reset-requests"); ok {
		l.resetTime = t
	}
	l.lastRequest = l.now()

	l.logger.Debug("observed quota headers",
		"requests_remaining", l.requestsRemaining,
		"tokens_remaining", l.tokensRemaining,
		"reset_time", l.resetTime)
}

// ShouldThrottle reports whether the next call must wait: either the
// request quota is spent and the reset has not passed, or the spacing
// floor since the last request has not elapsed.
func (l *Limiter) ShouldThrottle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quotaSpentLocked() || l.spacingPendingLocked()
}

func (l *Limiter) quotaSpentLocked() bool {
	return l.requestsRemaining <= 0 && !l.resetTime.IsZero() && l.now().Before(l.resetTime)
}

func (l *Limiter) spacingPendingLocked() bool {
	return !l.lastRequest.IsZero() && l.now().Sub(l.lastRequest) < l.spacing
}

// Throttle blocks until it is safe to issue the next call. On return
// either requests remain or the reset boundary has passed, and the
// spacing floor since the previous request has elapsed. Crossing the
// reset boundary restores a conservative request budget.
func (l *Limiter) Throttle(ctx context.Context) error {
	for {
		l.mu.Lock()
		if !l.quotaSpentLocked() {
			l.mu.Unlock()
			break
		}
		wait := l.resetTime.Sub(l.now())
		if wait < l.spacing {
			wait = l.spacing
		}
		l.mu.Unlock()

		l.logger.Info("quota spent, waiting for reset", "wait", wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}

		l.mu.Lock()
		if !l.resetTime.IsZero() && !l.now().Before(l.resetTime) {
			l.requestsRemaining = conservativeBudget
			l.resetTime = time.Time{}
		}
		l.mu.Unlock()
	}

	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.lastRequest = l.now()
	l.mu.Unlock()
	return nil
}

// CoolDown sleeps the fixed quota-exhaustion back-off.
func (l *Limiter) CoolDown(ctx context.Context) error {
	l.logger.Info("quota exhausted, cooling down", "duration", l.coolDown)
	return sleepCtx(ctx, l.coolDown)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func headerInt(h http.Header, names ...string) (int, bool) {
	for _, name := range names {
		raw := strings.TrimSpace(h.Get(name))
		if raw == "" {
			continue
		}
		if v, err := strconv.Atoi(raw); err == nil {
			return v, true
		}
	}
	return 0, false
}

// headerTime accepts either an RFC 3339 timestamp (anthropic style) or
// a relative duration like "6m0s" / "30" seconds (openai style).
func headerTime(h http.Header, now time.Time, names ...string) (time.Time, bool) {
	for _, name := range names {
		raw := strings.TrimSpace(h.Get(name))
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, true
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return now.Add(d), true
		}
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			return now.Add(time.Duration(secs * float64(time.Second))), true
		}
	}
	return time.Time{}, false
}
