// Package lockout tracks failed authentication attempts per identifier and
// enforces a temporary lockout window after repeated failures.
//
// Each identifier (a username, or a source tag like "local" for attempts
// that matched nobody) moves through three states:
//
//	CLEAR → WARNED (failures below the maximum)
//	WARNED → LOCKED (failure count reaches the maximum)
//	LOCKED → CLEAR (lockout expires, or a success resets the record)
//
// Records are created lazily on the first failure and reset rather than
// destroyed. State is in-memory only: a process restart clears all
// lockouts, which the deployment accepts as degraded behavior (profiles and
// sessions are the durable collections, not attempt counters).
package lockout

import (
	"sync"
	"time"
)

// Defaults, matching the deployment policy of three strikes and a
// five-minute cooldown.
const (
	DefaultMaxAttempts     = 3
	DefaultLockoutDuration = 5 * time.Minute
)

// record tracks failures for one identifier.
type record struct {
	failures    int
	lockedUntil time.Time // zero when not locked
}

// Tracker is the per-identifier failed-attempt counter and lockout gate.
// It is safe for concurrent use.
type Tracker struct {
	mu              sync.Mutex
	records         map[string]*record
	maxAttempts     int
	lockoutDuration time.Duration
	now             func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxAttempts sets the failure count that triggers lockout (default 3).
func WithMaxAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithLockoutDuration sets how long a lockout lasts (default 5 minutes).
func WithLockoutDuration(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.lockoutDuration = d
		}
	}
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Tracker with the given options.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		records:         make(map[string]*record),
		maxAttempts:     DefaultMaxAttempts,
		lockoutDuration: DefaultLockoutDuration,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CheckAllowed reports whether an authentication attempt for the identifier
// may proceed. When blocked, retryAfter is the remaining lockout time.
//
// A lockout whose deadline has passed is reset to CLEAR as part of this
// check, so the next evaluation starts from zero failures.
func (t *Tracker) CheckAllowed(identifier string) (allowed bool, retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[identifier]
	if !ok || r.lockedUntil.IsZero() {
		return true, 0
	}

	now := t.now()
	if now.Before(r.lockedUntil) {
		return false, r.lockedUntil.Sub(now)
	}

	// Lockout expired: implicit reset.
	r.failures = 0
	r.lockedUntil = time.Time{}
	return true, 0
}

// RecordFailure increments the identifier's failure count. When the count
// reaches the maximum, the identifier enters LOCKED for the configured
// duration and the count stays at the maximum until expiry or success.
//
// Returns whether the identifier is now locked and how many attempts remain
// before it would be.
func (t *Tracker) RecordFailure(identifier string) (locked bool, remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[identifier]
	if !ok {
		r = &record{}
		t.records[identifier] = r
	}

	if r.failures < t.maxAttempts {
		r.failures++
	}
	if r.failures >= t.maxAttempts {
		r.lockedUntil = t.now().Add(t.lockoutDuration)
		return true, 0
	}
	return false, t.maxAttempts - r.failures
}

// RecordSuccess resets the identifier to CLEAR: zero failures, no lockout.
func (t *Tracker) RecordSuccess(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.records[identifier]; ok {
		r.failures = 0
		r.lockedUntil = time.Time{}
	}
}

// Failures returns the current failure count for an identifier. Zero for
// unknown identifiers.
func (t *Tracker) Failures(identifier string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.records[identifier]; ok {
		return r.failures
	}
	return 0
}
