package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultCooldown is how long a channel refuses to contact its provider after
// a failed delivery.
const DefaultCooldown = 120 * time.Second

// Guard suppresses delivery attempts for a fixed window after the most recent
// failure. Each channel instance owns exactly one Guard.
//
// The zero value is not usable; create guards with NewGuard.
type Guard struct {
	mu          sync.Mutex
	name        string
	cooldown    time.Duration
	now         func() time.Time
	lastFailure time.Time // zero means no failure recorded
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// NewGuard creates a Guard for the channel called name. A non-positive
// cooldown selects DefaultCooldown.
func NewGuard(name string, cooldown time.Duration, opts ...GuardOption) *Guard {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	g := &Guard{name: name, cooldown: cooldown, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cooldown returns the configured cooldown window.
func (g *Guard) Cooldown() time.Duration { return g.cooldown }

// MayAttempt reports whether a delivery attempt is currently allowed.
func (g *Guard) MayAttempt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked() == 0
}

// Remaining returns how much of the cooldown is left, or zero.
func (g *Guard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

// RecordFailure restarts the cooldown window from now.
func (g *Guard) RecordFailure() {
	g.mu.Lock()
	g.lastFailure = g.now()
	g.mu.Unlock()
}

// RecordSuccess clears any recorded failure.
func (g *Guard) RecordSuccess() {
	g.mu.Lock()
	g.lastFailure = time.Time{}
	g.mu.Unlock()
}

// Do runs attempt as one critical section: check the cooldown, call the
// transport, record the outcome. Concurrent callers on the same Guard are
// serialized, so at most one of them reaches a failing provider per window.
//
// It returns a *ThrottledError without calling attempt while cooling down,
// and wraps any attempt error in a *TransportError.
func (g *Guard) Do(ctx context.Context, attempt func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if left := g.remainingLocked(); left > 0 {
		return &ThrottledError{Channel: g.name, Remaining: left}
	}
	if err := ctx.Err(); err != nil {
		// The caller gave up before the provider was contacted; this says
		// nothing about the provider's health.
		return &TransportError{Channel: g.name, Err: err}
	}

	if err := safeAttempt(ctx, attempt); err != nil {
		g.lastFailure = g.now()
		var te *TransportError
		if errors.As(err, &te) {
			return te
		}
		return &TransportError{Channel: g.name, Err: err}
	}
	g.lastFailure = time.Time{}
	return nil
}

func (g *Guard) remainingLocked() time.Duration {
	if g.lastFailure.IsZero() {
		return 0
	}
	elapsed := g.now().Sub(g.lastFailure)
	if elapsed > g.cooldown {
		return 0
	}
	left := g.cooldown - elapsed
	if left <= 0 {
		// elapsed == cooldown is still inside the window.
		left = time.Nanosecond
	}
	return left
}

// safeAttempt converts a panicking transport into an error so a provider
// client bug cannot leave the guard locked or crash the dispatcher.
func safeAttempt(ctx context.Context, attempt func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return attempt(ctx)
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("transport panicked: %v", e.value) }
