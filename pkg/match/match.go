// Package match scores a candidate embedding against enrolled profiles.
//
// The matcher is a pure function: no state, no side effects, safe to call
// concurrently. Only profiles whose stored method matches the candidate's
// method are considered, since vectors from different extraction methods
// live in unrelated feature spaces. Per profile the best enrolled sample
// wins; across profiles the best user wins.
//
// Accept thresholds are calibration, not matching: the matcher reports raw
// cosine scores in [-1, 1] and leaves the accept decision to
// [Result.Accepted] with a caller-supplied threshold.
package match

import (
	"github.com/haivivi/voicegate/pkg/embedding"
	"github.com/haivivi/voicegate/pkg/profile"
)

// Result is the outcome of scoring a candidate against the profile set.
type Result struct {
	// Username is the best-scoring eligible profile.
	Username string

	// Score is the best cosine similarity found, in [-1, 1].
	Score float64
}

// Accepted reports whether the result's score clears the given threshold.
func (r Result) Accepted(threshold float64) bool {
	return r.Score >= threshold
}

// Best scores the candidate against every eligible profile and returns the
// best match. The boolean is false when no profile is eligible (no profile
// shares the candidate's method); callers must treat that as "nobody
// enrolled for this method", which is distinct from a low score.
func Best(candidate embedding.Embedding, profiles []profile.Profile) (Result, bool) {
	best := Result{Score: -1}
	eligible := false

	for _, p := range profiles {
		if p.Method != candidate.Method || len(p.Vectors) == 0 {
			continue
		}
		eligible = true

		// Best-sample-wins within a profile.
		score := -1.0
		for _, v := range p.Vectors {
			if s := embedding.Cosine(candidate.Vector, v); s > score {
				score = s
			}
		}

		// Best-user-wins across profiles.
		if score > best.Score || best.Username == "" {
			best = Result{Username: p.Username, Score: score}
		}
	}

	if !eligible {
		return Result{}, false
	}
	return best, true
}
