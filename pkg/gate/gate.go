// Package gate is the authentication facade: the single entry point the
// rest of the application consumes. It orchestrates the lockout tracker,
// the embedding matcher, the profile store, and the session manager into
// one fixed decision pipeline:
//
//	lockout gate → match → lockout update → session mint
//
// The order is load-bearing. A locked-out identifier is rejected before the
// matcher runs, so it can leak neither timing nor score information. On
// accept, the session exists and the lockout is reset before the decision
// is returned; a session that cannot be created turns the whole attempt
// into a system error, never a silent reject.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/voicegate/pkg/embedding"
	"github.com/haivivi/voicegate/pkg/jsontime"
	"github.com/haivivi/voicegate/pkg/kv"
	"github.com/haivivi/voicegate/pkg/lockout"
	"github.com/haivivi/voicegate/pkg/match"
	"github.com/haivivi/voicegate/pkg/profile"
	"github.com/haivivi/voicegate/pkg/session"
)

// Input errors, surfaced synchronously to the caller.
var (
	// ErrDuplicateUser is returned when enrolling a username that is
	// already enrolled.
	ErrDuplicateUser = errors.New("gate: user already enrolled")

	// ErrTooFewSamples is returned when an enrollment carries fewer
	// embeddings than the configured minimum.
	ErrTooFewSamples = errors.New("gate: too few enrollment samples")

	// ErrMixedMethods is returned when one enrollment call mixes
	// embeddings from different extraction methods.
	ErrMixedMethods = errors.New("gate: mixed embedding methods in enrollment")

	// ErrInvalidEmbedding is returned for embeddings with an unknown
	// method or an empty vector.
	ErrInvalidEmbedding = errors.New("gate: invalid embedding")

	// ErrUserNotFound is returned when operating on a username that is
	// not enrolled.
	ErrUserNotFound = errors.New("gate: user not found")

	// ErrInvalidUsername is returned for usernames that cannot be stored:
	// empty, or containing the key separator byte.
	ErrInvalidUsername = errors.New("gate: invalid username")
)

// DefaultIdentifier is the lockout identifier used when the caller has no
// better source tag. A local single-seat deployment has exactly one
// attempt source.
const DefaultIdentifier = "local"

// Gate is the authentication facade. Construct one per process with [New]
// and share it; all methods are safe for concurrent use.
type Gate struct {
	cfg      Config
	profiles *profile.Store
	lockouts *lockout.Tracker
	sessions *session.Manager
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger for authentication events.
// Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock overrides the time source for the gate and every component it
// constructs. For tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New builds a Gate over the given kv backend. Profiles and sessions are
// persisted there; unexpired sessions from a previous process are restored.
// The caller owns the kv store's lifetime.
func New(ctx context.Context, store kv.Store, cfg Config, opts ...Option) (*Gate, error) {
	cfg.applyDefaults()
	g := &Gate{
		cfg: cfg,
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.profiles = profile.NewStore(store)
	g.lockouts = lockout.New(
		lockout.WithMaxAttempts(cfg.MaxFailedAttempts),
		lockout.WithLockoutDuration(cfg.LockoutDuration.Duration()),
		lockout.WithClock(g.now),
	)

	sessions, err := session.NewManager(ctx, store,
		session.WithTimeout(cfg.SessionTimeout.Duration()),
		session.WithSliding(cfg.SlidingExpiry),
		session.WithClock(g.now),
		session.WithLogger(g.log),
	)
	if err != nil {
		return nil, err
	}
	g.sessions = sessions
	return g, nil
}

// Config returns the effective configuration (defaults applied).
func (g *Gate) Config() Config {
	return g.cfg
}

// Enroll creates a profile for a new user from the given embeddings.
// Policy requires at least MinEnrollmentSamples embeddings, all produced
// by the same extraction method. On any input error no profile is created.
func (g *Gate) Enroll(ctx context.Context, username string, embs []embedding.Embedding) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	method, err := g.checkSamples(embs)
	if err != nil {
		return err
	}

	p := profile.Profile{
		Username:  username,
		Method:    method,
		Vectors:   vectors(embs),
		CreatedAt: g.now(),
	}
	if err := g.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, profile.ErrExists) {
			return ErrDuplicateUser
		}
		return err
	}

	g.log.Info("user enrolled",
		"username", username,
		"method", method.String(),
		"samples", len(embs),
	)
	return nil
}

// Reenroll replaces an existing user's embeddings. The new set may use a
// different extraction method; the old vectors are replaced wholesale,
// never mixed.
func (g *Gate) Reenroll(ctx context.Context, username string, embs []embedding.Embedding) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	method, err := g.checkSamples(embs)
	if err != nil {
		return err
	}

	p := profile.Profile{
		Username: username,
		Method:   method,
		Vectors:  vectors(embs),
	}
	if err := g.profiles.Replace(ctx, p); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	g.log.Info("user re-enrolled",
		"username", username,
		"method", method.String(),
		"samples", len(embs),
	)
	return nil
}

// Authenticate evaluates one candidate embedding and returns a Decision.
// identifier tags the attempt source for lockout accounting; pass
// [DefaultIdentifier] when there is no better tag.
//
// A non-nil error means the system failed (persistence, entropy). It is
// never a disguised rejection, and the returned Decision is meaningless.
func (g *Gate) Authenticate(ctx context.Context, candidate embedding.Embedding, identifier string) (Decision, error) {
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	attemptID := uuid.New().String()
	log := g.log.With("attempt", attemptID, "identifier", identifier)

	if !candidate.Method.Valid() || len(candidate.Vector) == 0 {
		return Decision{}, ErrInvalidEmbedding
	}

	// Lockout gate runs strictly before matching.
	if allowed, retryAfter := g.lockouts.CheckAllowed(identifier); !allowed {
		log.Warn("authentication blocked", "outcome", OutcomeLockedOut.String(), "retry_after", retryAfter)
		return Decision{Outcome: OutcomeLockedOut, RetryAfter: jsontime.Duration(retryAfter)}, nil
	}

	profiles, err := g.profiles.List(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("gate: load profiles: %w", err)
	}

	res, eligible := match.Best(candidate, profiles)
	if !eligible {
		// Nobody enrolled for this method: configuration problem, not an
		// impostor. Does not count against the identifier.
		log.Warn("no eligible profiles", "outcome", OutcomeNoProfiles.String(), "method", candidate.Method.String())
		return Decision{Outcome: OutcomeNoProfiles}, nil
	}

	threshold := g.cfg.threshold(candidate.Method)
	if !res.Accepted(threshold) {
		_, remaining := g.lockouts.RecordFailure(identifier)
		log.Warn("authentication rejected",
			"outcome", OutcomeNotMatched.String(),
			"score", res.Score,
			"threshold", threshold,
			"attempts_left", remaining,
		)
		return Decision{Outcome: OutcomeNotMatched, Score: res.Score, AttemptsLeft: remaining}, nil
	}

	// Accept: the session must exist and the lockout must be reset before
	// the decision is returned. The session is minted first so that a
	// failed attempt never leaves LastAuthenticatedAt advanced.
	s, err := g.sessions.Create(ctx, res.Username)
	if err != nil {
		return Decision{}, fmt.Errorf("gate: create session: %w", err)
	}
	if err := g.profiles.Touch(ctx, res.Username, g.now()); err != nil {
		// An attempt reported as a system error must not leave a live
		// session behind.
		if rerr := g.sessions.Revoke(ctx, s.ID); rerr != nil {
			log.Warn("could not revoke session after touch failure", "err", rerr)
		}
		return Decision{}, fmt.Errorf("gate: touch profile: %w", err)
	}
	g.lockouts.RecordSuccess(identifier)

	log.Info("authentication accepted",
		"outcome", OutcomeAccept.String(),
		"username", res.Username,
		"score", res.Score,
		"threshold", threshold,
	)
	return Decision{
		Outcome:   OutcomeAccept,
		Username:  res.Username,
		SessionID: s.ID,
		Score:     res.Score,
	}, nil
}

// ValidateSession reports whether a session token is live and, if so, whose
// it is. Cheap: an in-memory lookup, independent of any matching work.
func (g *Gate) ValidateSession(ctx context.Context, sessionID string) (username string, ok bool) {
	return g.sessions.Validate(ctx, sessionID)
}

// Logout revokes a session. Idempotent.
func (g *Gate) Logout(ctx context.Context, sessionID string) error {
	return g.sessions.Revoke(ctx, sessionID)
}

// RemoveUser deletes a user's profile and revokes all of their sessions.
func (g *Gate) RemoveUser(ctx context.Context, username string) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := g.profiles.Delete(ctx, username); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := g.sessions.RevokeUser(ctx, username); err != nil {
		return err
	}
	g.log.Info("user removed", "username", username)
	return nil
}

// UserInfo is one row of [Gate.ListUsers].
type UserInfo struct {
	Username            string     `json:"username"`
	Method              string     `json:"method"`
	EnrolledAt          time.Time  `json:"enrolled_at"`
	LastAuthenticatedAt *time.Time `json:"last_authenticated_at,omitempty"`
}

// ListUsers returns all enrolled users sorted by username.
func (g *Gate) ListUsers(ctx context.Context) ([]UserInfo, error) {
	profiles, err := g.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserInfo, len(profiles))
	for i, p := range profiles {
		out[i] = UserInfo{
			Username:            p.Username,
			Method:              p.Method.String(),
			EnrolledAt:          p.CreatedAt,
			LastAuthenticatedAt: p.LastAuthenticatedAt,
		}
	}
	return out, nil
}

// ListSessions returns all live sessions ordered by creation time.
func (g *Gate) ListSessions() []session.Session {
	return g.sessions.List()
}

// Sweep removes expired sessions once. See also [Gate.RunSweeper].
func (g *Gate) Sweep(ctx context.Context) (int, error) {
	return g.sessions.Sweep(ctx)
}

// RunSweeper runs the periodic session sweeper until ctx is cancelled,
// using the configured interval. The process lifecycle owns the goroutine:
//
//	go gate.RunSweeper(ctx)
func (g *Gate) RunSweeper(ctx context.Context) {
	g.sessions.RunSweeper(ctx, g.cfg.SweepInterval.Duration())
}

// checkUsername rejects usernames the profile store cannot key: empty
// strings and anything containing the kv separator byte. Usernames are
// end-user input and must never reach key encoding unchecked.
func checkUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if strings.IndexByte(username, kv.Separator) >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidUsername, username, string(kv.Separator))
	}
	return nil
}

// checkSamples validates an enrollment sample set and returns its method.
func (g *Gate) checkSamples(embs []embedding.Embedding) (embedding.Method, error) {
	if len(embs) < g.cfg.MinEnrollmentSamples {
		return embedding.MethodUnknown, fmt.Errorf("%w: got %d, need %d",
			ErrTooFewSamples, len(embs), g.cfg.MinEnrollmentSamples)
	}
	method := embs[0].Method
	if !method.Valid() {
		return embedding.MethodUnknown, ErrInvalidEmbedding
	}
	for _, e := range embs {
		if len(e.Vector) == 0 {
			return embedding.MethodUnknown, ErrInvalidEmbedding
		}
		if e.Method != method {
			return embedding.MethodUnknown, ErrMixedMethods
		}
	}
	return method, nil
}

func vectors(embs []embedding.Embedding) [][]float32 {
	out := make([][]float32, len(embs))
	for i, e := range embs {
		v := make([]float32, len(e.Vector))
		copy(v, e.Vector)
		out[i] = v
	}
	return out
}
