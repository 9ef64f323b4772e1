package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/voicegate/pkg/kv"
)

// Key layout:
//
//	vg:user:{username} → msgpack-encoded Profile
//
// Usernames are the natural key; List scans the vg:user prefix.

// Store owns profile lifetime on top of a kv.Store.
//
// It is safe for concurrent use. A single mutex serializes the
// check-then-write sequences (Create, Replace, Touch); profile cardinality
// is small, so a coarse lock is fine.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	prefix kv.Key
}

// NewStore creates a profile Store over the given kv backend.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s, prefix: kv.Key{"vg", "user"}}
}

func (s *Store) key(username string) kv.Key {
	return s.prefix.Child(username)
}

// Create persists a new profile. Returns ErrExists if the username is
// already enrolled.
func (s *Store) Create(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.kv.Get(ctx, s.key(p.Username))
	if err == nil {
		return ErrExists
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("profile: check existing %q: %w", p.Username, err)
	}
	return s.put(ctx, p)
}

// Replace overwrites an existing profile (re-enrollment). Returns
// ErrNotFound if the username was never enrolled.
func (s *Store) Replace(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.get(ctx, p.Username)
	if err != nil {
		return err
	}
	// Re-enrollment keeps the original enrollment time.
	p.CreatedAt = old.CreatedAt
	return s.put(ctx, p)
}

// Get returns the profile for a username, or ErrNotFound.
func (s *Store) Get(ctx context.Context, username string) (Profile, error) {
	return s.get(ctx, username)
}

// Delete removes a profile. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(ctx, username); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, s.key(username)); err != nil {
		return fmt.Errorf("profile: delete %q: %w", username, err)
	}
	return nil
}

// List returns all enrolled profiles sorted by username.
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	var out []Profile
	for entry, err := range s.kv.List(ctx, s.prefix) {
		if err != nil {
			return nil, fmt.Errorf("profile: list: %w", err)
		}
		var p Profile
		if err := msgpack.Unmarshal(entry.Value, &p); err != nil {
			return nil, fmt.Errorf("profile: decode %s: %w", entry.Key, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Touch records a successful authentication time on the profile.
func (s *Store) Touch(ctx context.Context, username string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.get(ctx, username)
	if err != nil {
		return err
	}
	p.LastAuthenticatedAt = &at
	return s.put(ctx, p)
}

func (s *Store) get(ctx context.Context, username string) (Profile, error) {
	data, err := s.kv.Get(ctx, s.key(username))
	if errors.Is(err, kv.ErrNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("profile: get %q: %w", username, err)
	}
	var p Profile
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: decode %q: %w", username, err)
	}
	return p, nil
}

func (s *Store) put(ctx context.Context, p Profile) error {
	data, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: encode %q: %w", p.Username, err)
	}
	if err := s.kv.Set(ctx, s.key(p.Username), data); err != nil {
		return fmt.Errorf("profile: put %q: %w", p.Username, err)
	}
	return nil
}
