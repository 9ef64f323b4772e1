package gate

import (
	"fmt"

	"github.com/haivivi/voicegate/pkg/jsontime"
)

// Outcome classifies the result of one authentication attempt. Rejections
// are expected, first-class outcomes: callers branch on Outcome, and only
// a non-nil error means the system itself failed.
type Outcome int

const (
	// OutcomeAccept means the candidate matched an enrolled profile above
	// threshold and a session was created.
	OutcomeAccept Outcome = iota

	// OutcomeNotMatched means no eligible profile scored above threshold.
	// The attempt counts toward lockout.
	OutcomeNotMatched

	// OutcomeLockedOut means the identifier is temporarily blocked after
	// repeated failures. The candidate was never scored.
	OutcomeLockedOut

	// OutcomeNoProfiles means nobody is enrolled for the candidate's
	// method. A configuration problem, not an impostor attempt: it does
	// not count toward lockout.
	OutcomeNoProfiles
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "accept"
	case OutcomeNotMatched:
		return "not_matched"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeNoProfiles:
		return "no_profiles"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler, so outcomes render as
// their names in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Decision is the structured result of [Gate.Authenticate]. It carries
// enough for a consumer to build a user-facing message; the gate itself
// produces no text.
type Decision struct {
	// Outcome classifies the attempt.
	Outcome Outcome `json:"outcome"`

	// Username is the matched user. Set only on accept.
	Username string `json:"username,omitempty"`

	// SessionID is the minted session token. Set only on accept.
	SessionID string `json:"session_id,omitempty"`

	// Score is the best cosine similarity observed, in [-1, 1]. Set on
	// accept and not-matched; zero-valued for locked-out (the matcher
	// never ran) and no-profiles.
	Score float64 `json:"score,omitempty"`

	// RetryAfter is the remaining lockout time, serialized as a duration
	// string ("3m0s"). Set only on locked-out.
	RetryAfter jsontime.Duration `json:"retry_after,omitempty"`

	// AttemptsLeft is how many more failures the identifier can absorb
	// before lockout. Set only on not-matched.
	AttemptsLeft int `json:"attempts_left,omitempty"`
}

// Accepted reports whether the attempt succeeded.
func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeAccept
}
