package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/voicegate/pkg/kv"
)

// newBadgerStore opens an in-memory badger Store for testing.
func newBadgerStore(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerRequiresDir(t *testing.T) {
	_, err := kv.NewBadger(kv.BadgerOptions{})
	if err == nil {
		t.Fatal("expected error for missing Dir in on-disk mode")
	}
}

func TestBadgerGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newBadgerStore(t)

	key := kv.Key{"vg", "session", "abc123"}
	val := []byte("session record")

	_, err := s.Get(ctx, key)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, key, val); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("Get = %q, want %q", got, val)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestBadgerListAndBatchDelete(t *testing.T) {
	ctx := context.Background()
	s := newBadgerStore(t)

	keys := []kv.Key{
		{"vg", "session", "a"},
		{"vg", "session", "b"},
		{"vg", "user", "alice"},
	}
	for _, k := range keys {
		if err := s.Set(ctx, k, []byte(k.String())); err != nil {
			t.Fatalf("Set %v: %v", k, err)
		}
	}

	var got []string
	for entry, err := range s.List(ctx, kv.Key{"vg", "session"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String())
	}
	want := []string{"vg:session:a", "vg:session:b"}
	if !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	if err := s.BatchDelete(ctx, keys[:2]); err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	for _, k := range keys[:2] {
		if _, err := s.Get(ctx, k); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected %v removed, got err %v", k, err)
		}
	}
}
