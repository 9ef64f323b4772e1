// Package kv provides the key-value persistence interface that backs
// voicegate's durable state (user profiles and sessions). Keys are
// hierarchical string slices (e.g., ["vg", "user", "alice"]) encoded with
// a ':' separator.
//
// Two implementations are included: a BadgerDB-backed store for production
// deployments and an in-memory store for tests. The rest of the system only
// depends on [Store], so any storage technology with get/put/delete/scan
// semantics can be swapped in.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded representation.
// Key segments must not contain this byte.
const Separator byte = ':'

// Key is a hierarchical path represented as a slice of string segments.
// Key{"vg", "session", "ab12"} encodes to "vg:session:ab12".
type Key []string

// String returns the encoded form of the key.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Child returns a new key with extra segments appended. The receiver is
// not modified.
func (k Key) Child(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	out = append(out, segments...)
	return out
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the persistence interface for voicegate's durable state.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with the given prefix,
	// in lexicographic order of the encoded key. An empty prefix scans the
	// whole store.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchDelete atomically removes multiple keys.
	BatchDelete(ctx context.Context, keys []Key) error

	// Close releases any resources held by the store.
	Close() error
}

// encode converts a Key to its stored byte representation.
// Panics if a segment contains the separator. Callers own input
// validation: segments are fixed literals, generated IDs, or usernames
// that the gate has already checked, so a separator reaching this point
// is a programmer error.
func encode(k Key) []byte {
	n := 0
	for i, seg := range k {
		if strings.IndexByte(seg, Separator) >= 0 {
			panic("kv: key segment contains separator: " + seg)
		}
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, Separator)
		}
		buf = append(buf, seg...)
	}
	return buf
}

// decode converts a stored byte representation back to a Key.
func decode(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// scanPrefix returns the encoded prefix used for List scans. A separator
// is appended so that prefix "a:b" matches "a:b:*" but not "a:bc:*".
func scanPrefix(prefix Key) []byte {
	p := encode(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, Separator)
}
