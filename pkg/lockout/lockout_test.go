package lockout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/haivivi/voicegate/pkg/lockout"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestUnknownIdentifierIsAllowed(t *testing.T) {
	tr := lockout.New()
	allowed, retryAfter := tr.CheckAllowed("nobody")
	if !allowed || retryAfter != 0 {
		t.Fatalf("CheckAllowed = (%v, %v), want (true, 0)", allowed, retryAfter)
	}
}

func TestLockAfterMaxFailures(t *testing.T) {
	clock := newFakeClock()
	tr := lockout.New(
		lockout.WithMaxAttempts(3),
		lockout.WithLockoutDuration(5*time.Minute),
		lockout.WithClock(clock.Now),
	)

	if locked, remaining := tr.RecordFailure("local"); locked || remaining != 2 {
		t.Fatalf("failure 1 = (%v, %d), want (false, 2)", locked, remaining)
	}
	if locked, remaining := tr.RecordFailure("local"); locked || remaining != 1 {
		t.Fatalf("failure 2 = (%v, %d), want (false, 1)", locked, remaining)
	}
	if locked, _ := tr.RecordFailure("local"); !locked {
		t.Fatal("failure 3 must lock")
	}

	allowed, retryAfter := tr.CheckAllowed("local")
	if allowed {
		t.Fatal("locked identifier must not be allowed")
	}
	if retryAfter <= 0 || retryAfter > 5*time.Minute {
		t.Fatalf("retryAfter = %v, want in (0, 5m]", retryAfter)
	}

	// Counter stays at max while locked.
	if got := tr.Failures("local"); got != 3 {
		t.Fatalf("Failures = %d, want 3", got)
	}
}

func TestLockoutExpiryResets(t *testing.T) {
	clock := newFakeClock()
	tr := lockout.New(
		lockout.WithLockoutDuration(5*time.Minute),
		lockout.WithClock(clock.Now),
	)

	for i := 0; i < 3; i++ {
		tr.RecordFailure("local")
	}
	if allowed, _ := tr.CheckAllowed("local"); allowed {
		t.Fatal("must be locked")
	}

	clock.Advance(5*time.Minute + time.Second)

	allowed, retryAfter := tr.CheckAllowed("local")
	if !allowed || retryAfter != 0 {
		t.Fatalf("after expiry: CheckAllowed = (%v, %v), want (true, 0)", allowed, retryAfter)
	}
	// The expired check resets the counter: next evaluation starts from 0.
	if got := tr.Failures("local"); got != 0 {
		t.Fatalf("Failures after expiry = %d, want 0", got)
	}
}

func TestSuccessResets(t *testing.T) {
	tr := lockout.New()
	tr.RecordFailure("alice")
	tr.RecordFailure("alice")
	tr.RecordSuccess("alice")

	if got := tr.Failures("alice"); got != 0 {
		t.Fatalf("Failures after success = %d, want 0", got)
	}
	if allowed, _ := tr.CheckAllowed("alice"); !allowed {
		t.Fatal("must be allowed after success")
	}
	// Success on an unknown identifier is a no-op, not a crash.
	tr.RecordSuccess("nobody")
}

func TestIdentifiersAreIndependent(t *testing.T) {
	tr := lockout.New()
	for i := 0; i < 3; i++ {
		tr.RecordFailure("attacker")
	}

	if allowed, _ := tr.CheckAllowed("attacker"); allowed {
		t.Fatal("attacker must be locked")
	}
	if allowed, _ := tr.CheckAllowed("alice"); !allowed {
		t.Fatal("alice must be unaffected by attacker's lockout")
	}
}

func TestRetryAfterShrinks(t *testing.T) {
	clock := newFakeClock()
	tr := lockout.New(
		lockout.WithLockoutDuration(5*time.Minute),
		lockout.WithClock(clock.Now),
	)
	for i := 0; i < 3; i++ {
		tr.RecordFailure("local")
	}

	_, first := tr.CheckAllowed("local")
	clock.Advance(2 * time.Minute)
	_, second := tr.CheckAllowed("local")

	if second >= first {
		t.Fatalf("retryAfter did not shrink: %v then %v", first, second)
	}
	if want := 3 * time.Minute; second != want {
		t.Fatalf("retryAfter = %v, want %v", second, want)
	}
}

func TestConcurrentFailures(t *testing.T) {
	tr := lockout.New(lockout.WithMaxAttempts(100))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				tr.RecordFailure("shared")
			}
		}()
	}
	wg.Wait()

	if got := tr.Failures("shared"); got != 50 {
		t.Fatalf("Failures = %d, want 50", got)
	}
}
