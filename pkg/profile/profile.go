// Package profile owns the enrolled-user profiles. Each profile is a set
// of voice embeddings for one username, all produced by the same extraction
// method, plus enrollment metadata.
//
// Profiles are msgpack-encoded and persisted through [kv.Store] so they
// survive process restart. The Store is the only component that touches
// profile records; everything else goes through it.
package profile

import (
	"errors"
	"time"

	"github.com/haivivi/voicegate/pkg/embedding"
)

// Sentinel errors.
var (
	// ErrExists is returned when enrolling a username that already has a profile.
	ErrExists = errors.New("profile: user already exists")

	// ErrNotFound is returned when no profile exists for a username.
	ErrNotFound = errors.New("profile: user not found")
)

// Profile is one enrolled user: a username, the embeddings captured at
// enrollment, and timestamps.
//
// All embeddings in a profile share one extraction method; the single
// Method field makes mixing structurally impossible. Re-enrollment with a
// different method replaces the vectors, never mixes them.
type Profile struct {
	// Username is the unique, immutable key.
	Username string `json:"username" msgpack:"username"`

	// Method is the extraction method all Vectors were produced with.
	Method embedding.Method `json:"method" msgpack:"method"`

	// Vectors are the enrolled embedding vectors, in enrollment order.
	// Always at least one; enrollment policy requires more (see gate config).
	Vectors [][]float32 `json:"vectors" msgpack:"vectors"`

	// CreatedAt is when the profile was first enrolled.
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	// LastAuthenticatedAt is when the user last authenticated successfully.
	// Nil until the first successful authentication.
	LastAuthenticatedAt *time.Time `json:"last_authenticated_at,omitempty" msgpack:"last_authenticated_at,omitempty"`
}

// Embeddings returns the profile's vectors as tagged embeddings.
func (p *Profile) Embeddings() []embedding.Embedding {
	out := make([]embedding.Embedding, len(p.Vectors))
	for i, v := range p.Vectors {
		out[i] = embedding.Embedding{Method: p.Method, Vector: v}
	}
	return out
}
