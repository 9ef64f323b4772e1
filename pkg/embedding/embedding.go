// Package embedding defines the voice-embedding vocabulary shared by the
// matcher and the profile store.
//
// An embedding is a fixed-length float32 vector tagged with the extraction
// method that produced it. voicegate never extracts embeddings itself; the
// audio pipeline upstream hands it finished vectors. The method tag travels
// with every vector so that vectors from different feature spaces are never
// compared against each other.
//
// # Methods
//
// Two extraction methods are supported:
//
//   - [MethodDeep]: deep speaker-embedding network output (typically
//     256-dimensional). Preferred; tighter decision boundary.
//   - [MethodSpectral]: spectral features (typically 13-dimensional MFCC
//     means). Fallback; coarser feature space, looser boundary.
//
// The accept thresholds for each method live in the gate configuration,
// not here.
package embedding

import (
	"fmt"
	"math"
)

// Method identifies the extraction technique that produced an embedding.
// Embeddings from different methods live in unrelated feature spaces and
// must never be compared.
type Method int

const (
	// MethodUnknown is the zero value; records carrying it are rejected.
	MethodUnknown Method = iota

	// MethodDeep is the deep speaker-embedding network.
	MethodDeep

	// MethodSpectral is the spectral-feature fallback pipeline.
	MethodSpectral
)

func (m Method) String() string {
	switch m {
	case MethodDeep:
		return "deep"
	case MethodSpectral:
		return "spectral"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod converts a method name ("deep" or "spectral") back to a
// Method. Returns an error for anything else.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "deep":
		return MethodDeep, nil
	case "spectral":
		return MethodSpectral, nil
	default:
		return MethodUnknown, fmt.Errorf("embedding: unknown method %q", s)
	}
}

// Valid reports whether m is one of the known extraction methods.
func (m Method) Valid() bool {
	return m == MethodDeep || m == MethodSpectral
}

// MarshalText implements encoding.TextMarshaler, so methods appear as
// "deep"/"spectral" in JSON and YAML rather than raw integers.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("embedding: cannot marshal method %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Embedding is a voice feature vector tagged with its extraction method.
type Embedding struct {
	// Method is the extraction technique that produced Vector.
	Method Method `json:"method" msgpack:"method"`

	// Vector is the dense feature vector.
	Vector []float32 `json:"vector" msgpack:"vector"`
}

// Cosine computes the unnormalized cosine similarity between two vectors,
// in [-1, 1]. Higher means more similar. This is the convention the accept
// thresholds are calibrated against: raw cosine, not (cos+1)/2.
//
// A length mismatch or a zero-norm vector returns -1, the minimum
// similarity, so degenerate inputs can never clear a threshold.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return -1
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point drift.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
