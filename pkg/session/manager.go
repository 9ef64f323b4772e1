package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/voicegate/pkg/kv"
)

// Key layout:
//
//	vg:session:{id} → msgpack-encoded Session
//
// The in-memory map is the authority for validation; the kv copy exists so
// sessions survive restart. Durable writes happen outside the map lock, so
// a crash between the two can lose the latest touch. The durable copy is
// eventually consistent.

// DefaultTimeout is the session lifetime used when none is configured.
const DefaultTimeout = 30 * time.Minute

// Manager owns the set of live sessions. It is safe for concurrent use:
// Validate takes a read lock on the session map and never blocks on
// authentication work happening elsewhere.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	kv      kv.Store
	prefix  kv.Key
	timeout time.Duration
	sliding bool
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the session lifetime (default 30 minutes).
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithSliding enables sliding expiry: every successful Validate pushes
// ExpiresAt forward by the timeout. Off by default (fixed expiry).
func WithSliding(sliding bool) Option {
	return func(m *Manager) { m.sliding = sliding }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger for background activity (sweeper, best-effort
// persistence warnings). Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a Manager over the given kv backend and restores any
// unexpired sessions persisted by a previous process. Records that are
// already expired at load time are deleted instead of restored.
func NewManager(ctx context.Context, store kv.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		sessions: make(map[string]*Session),
		kv:       store,
		prefix:   kv.Key{"vg", "session"},
		timeout:  DefaultTimeout,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	now := m.now()
	var stale []kv.Key
	for entry, err := range store.List(ctx, m.prefix) {
		if err != nil {
			return nil, fmt.Errorf("session: restore: %w", err)
		}
		var s Session
		if err := msgpack.Unmarshal(entry.Value, &s); err != nil {
			return nil, fmt.Errorf("session: decode %s: %w", entry.Key, err)
		}
		if !s.Valid(now) {
			stale = append(stale, entry.Key)
			continue
		}
		m.sessions[s.ID] = &s
	}
	if len(stale) > 0 {
		if err := store.BatchDelete(ctx, stale); err != nil {
			return nil, fmt.Errorf("session: purge stale on restore: %w", err)
		}
	}
	return m, nil
}

// Create mints a session for the given username. The returned session is a
// copy; the Manager keeps the authoritative record.
func (m *Manager) Create(ctx context.Context, username string) (Session, error) {
	id, err := newSessionID()
	if err != nil {
		return Session{}, err
	}

	now := m.now()
	s := Session{
		ID:             id,
		Username:       username,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.timeout),
	}

	m.mu.Lock()
	m.sessions[s.ID] = &s
	m.mu.Unlock()

	// Durable write outside the lock.
	if err := m.persist(ctx, &s); err != nil {
		// A session that cannot be persisted must not exist at all:
		// the caller reports a system error, not a half-created session.
		m.mu.Lock()
		delete(m.sessions, s.ID)
		m.mu.Unlock()
		return Session{}, err
	}
	return s, nil
}

// Validate looks up a session by ID. Missing or expired sessions are
// invalid. In sliding mode a successful validation also pushes ExpiresAt
// forward; the refreshed durable copy is written outside the lock and a
// write failure is logged, not returned. The in-memory extension stands,
// and losing it on crash is the documented degraded behavior.
func (m *Manager) Validate(ctx context.Context, id string) (username string, ok bool) {
	now := m.now()

	if !m.sliding {
		m.mu.RLock()
		s, found := m.sessions[id]
		valid := found && s.Valid(now)
		if valid {
			username = s.Username
		}
		m.mu.RUnlock()
		return username, valid
	}

	// Sliding mode mutates the record, so take the write lock.
	m.mu.Lock()
	s, found := m.sessions[id]
	if !found || !s.Valid(now) {
		m.mu.Unlock()
		return "", false
	}
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(m.timeout)
	cp := *s
	m.mu.Unlock()

	if err := m.persist(ctx, &cp); err != nil {
		m.log.Warn("session touch not persisted", "err", err)
	}
	return cp.Username, true
}

// Get returns a copy of the session if it exists and is unexpired.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, found := m.sessions[id]
	if !found || !s.Valid(m.now()) {
		return Session{}, false
	}
	return *s, true
}

// Revoke removes a session immediately. Idempotent: revoking an absent
// session is not an error.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.kv.Delete(ctx, m.prefix.Child(id)); err != nil {
		return fmt.Errorf("session: revoke %q: %w", id, err)
	}
	return nil
}

// RevokeUser removes every session belonging to the username. Used when a
// user is removed from the system.
func (m *Manager) RevokeUser(ctx context.Context, username string) error {
	m.mu.Lock()
	var keys []kv.Key
	for id, s := range m.sessions {
		if s.Username == username {
			delete(m.sessions, id)
			keys = append(keys, m.prefix.Child(id))
		}
	}
	m.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if err := m.kv.BatchDelete(ctx, keys); err != nil {
		return fmt.Errorf("session: revoke user %q: %w", username, err)
	}
	return nil
}

// Sweep removes exactly the sessions whose ExpiresAt has passed and returns
// how many were removed. Safe to run concurrently with Create, Validate,
// and Revoke: removal and validation serialize on the same map lock, so a
// session being touched is either extended before the sweep sees it or
// already expired.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	var keys []kv.Key
	for id, s := range m.sessions {
		if !s.Valid(now) {
			delete(m.sessions, id)
			keys = append(keys, m.prefix.Child(id))
		}
	}
	m.mu.Unlock()

	if len(keys) == 0 {
		return 0, nil
	}
	if err := m.kv.BatchDelete(ctx, keys); err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	m.log.Debug("swept expired sessions", "count", len(keys))
	return len(keys), nil
}

// Len returns the number of tracked sessions, expired or not. For tests
// and stats.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns copies of all unexpired sessions, ordered by creation time
// (ties broken by ID).
func (m *Manager) List() []Session {
	now := m.now()

	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Valid(now) {
			out = append(out, *s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) persist(ctx context.Context, s *Session) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %q: %w", s.ID, err)
	}
	if err := m.kv.Set(ctx, m.prefix.Child(s.ID), data); err != nil {
		return fmt.Errorf("session: persist %q: %w", s.ID, err)
	}
	return nil
}
