// Package session owns the lifetime of authorization sessions.
//
// A session is a time-bounded token minted after a successful
// authentication. Validation is a cheap in-memory lookup that never touches
// the matcher or shares a lock with it; the durable copy lives in
// [kv.Store] so unexpired sessions survive a process restart.
//
// Expiry policy is fixed at construction: either every successful Validate
// slides the expiry window forward, or the expiry set at creation (and only
// creation) stands. Mixing the two in one deployment is not possible.
//
// Expired sessions are removed by [Manager.Sweep], driven by an explicit
// timer loop ([Manager.RunSweeper]) that the process lifecycle owns. The
// Manager never starts goroutines behind the caller's back.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Session is one live authorization window for a user. Multiple sessions
// per username are independent (multi-device use); revoking one leaves the
// others intact.
type Session struct {
	// ID is the opaque session token: 32 random bytes, hex-encoded.
	ID string `json:"id" msgpack:"id"`

	// Username is the authenticated user this session belongs to.
	Username string `json:"username" msgpack:"username"`

	// CreatedAt is when the session was minted.
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	// LastActivityAt is the last successful validation (sliding mode) or
	// CreatedAt (fixed mode).
	LastActivityAt time.Time `json:"last_activity_at" msgpack:"last_activity_at"`

	// ExpiresAt is LastActivityAt plus the session timeout. The session is
	// valid iff the current time is before ExpiresAt.
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`
}

// Valid reports whether the session is unexpired at the given time.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// newSessionID returns a cryptographically random, unguessable token.
// An entropy-source failure is a system error, never a silent fallback.
func newSessionID() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// RunSweeper calls Sweep on a fixed interval until the context is
// cancelled. Run it in a goroutine owned by the process lifecycle:
//
//	go mgr.RunSweeper(ctx, 5*time.Minute)
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.log.Warn("session sweep failed", "err", err)
			}
		}
	}
}
