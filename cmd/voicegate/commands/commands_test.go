package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/voicegate/pkg/embedding"
	"github.com/haivivi/voicegate/pkg/gate"
	"github.com/haivivi/voicegate/pkg/kv"
)

func setupTestGate(t *testing.T) {
	t.Helper()
	g, err := gate.New(context.Background(), kv.NewMemory(), gate.Config{},
		gate.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}
	testGateOverride = g
	t.Cleanup(func() { testGateOverride = nil })
}

// writeSample writes an embedding JSON file and returns its path.
func writeSample(t *testing.T, name string, e embedding.Embedding) string {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func deepSample(t *testing.T, name string, v ...float32) string {
	t.Helper()
	return writeSample(t, name, embedding.Embedding{Method: embedding.MethodDeep, Vector: v})
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	// Reset global flags to avoid state pollution between tests.
	verbose = false
	formatOutput = "table"
	dataDir = ""
	configPath = ""

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	// Reset all cobra command flag state to prevent leaks between tests.
	resetFlags(rootCmd)

	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func enrollAlice(t *testing.T) {
	t.Helper()
	_, stderr, code := runCmd(t, "enroll", "alice",
		deepSample(t, "s1.json", 1, 0, 0),
		deepSample(t, "s2.json", 0.9, 0.1, 0),
		deepSample(t, "s3.json", 0.95, 0, 0.05),
	)
	if code != 0 {
		t.Fatalf("enroll exit %d: %s", code, stderr)
	}
}

func TestEnrollAndUsers(t *testing.T) {
	setupTestGate(t)
	enrollAlice(t)

	stdout, _, code := runCmd(t, "users")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "alice") || !strings.Contains(stdout, "deep") {
		t.Fatalf("expected alice with method deep, got: %s", stdout)
	}
}

func TestEnrollTooFewSamples(t *testing.T) {
	setupTestGate(t)

	_, stderr, code := runCmd(t, "enroll", "alice", deepSample(t, "s1.json", 1, 0, 0))
	if code == 0 {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr, "too few") {
		t.Fatalf("expected 'too few', got: %s", stderr)
	}
}

func TestAuthAcceptAndValidate(t *testing.T) {
	setupTestGate(t)
	enrollAlice(t)

	stdout, stderr, code := runCmd(t, "auth", deepSample(t, "c.json", 1, 0, 0))
	if code != 0 {
		t.Fatalf("auth exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "alice") {
		t.Fatalf("expected matched alice, got: %s", stdout)
	}

	// Extract the session token from the "session: <id>" line.
	var sessionID string
	for _, line := range strings.Split(stdout, "\n") {
		if rest, ok := strings.CutPrefix(line, "session: "); ok {
			sessionID = strings.TrimSpace(rest)
		}
	}
	if len(sessionID) != 64 {
		t.Fatalf("session ID not found in output: %s", stdout)
	}

	stdout, _, code = runCmd(t, "validate", sessionID)
	if code != 0 {
		t.Fatalf("validate exit %d", code)
	}
	if !strings.Contains(stdout, "alice") {
		t.Fatalf("expected valid session for alice, got: %s", stdout)
	}

	if _, _, code = runCmd(t, "logout", sessionID); code != 0 {
		t.Fatalf("logout exit %d", code)
	}
	stdout, _, _ = runCmd(t, "validate", sessionID)
	if !strings.Contains(stdout, "invalid") {
		t.Fatalf("expected invalid after logout, got: %s", stdout)
	}
}

func TestAuthRejectJSON(t *testing.T) {
	setupTestGate(t)
	enrollAlice(t)

	stdout, stderr, code := runCmd(t, "auth", deepSample(t, "c.json", 0, 1, 0), "--format", "json")
	if code != 0 {
		t.Fatalf("auth exit %d: %s", code, stderr)
	}

	var d struct {
		Outcome      string `json:"outcome"`
		AttemptsLeft int    `json:"attempts_left"`
	}
	if err := json.Unmarshal([]byte(stdout), &d); err != nil {
		t.Fatalf("parse output: %v\n%s", err, stdout)
	}
	if d.Outcome != "not_matched" {
		t.Fatalf("outcome = %q, want not_matched", d.Outcome)
	}
	if d.AttemptsLeft != 2 {
		t.Fatalf("attempts_left = %d, want 2", d.AttemptsLeft)
	}
}

func TestRemoveUser(t *testing.T) {
	setupTestGate(t)
	enrollAlice(t)

	stdout, _, code := runCmd(t, "remove", "alice")
	if code != 0 {
		t.Fatalf("remove exit %d", code)
	}
	if !strings.Contains(stdout, "alice") {
		t.Fatalf("expected removal notice, got: %s", stdout)
	}

	stdout, _, _ = runCmd(t, "users")
	if !strings.Contains(stdout, "No users") {
		t.Fatalf("expected empty user list, got: %s", stdout)
	}
}

func TestSessionsAndSweep(t *testing.T) {
	setupTestGate(t)
	enrollAlice(t)

	if _, stderr, code := runCmd(t, "auth", deepSample(t, "c.json", 1, 0, 0)); code != 0 {
		t.Fatalf("auth exit %d: %s", code, stderr)
	}

	stdout, _, code := runCmd(t, "sessions")
	if code != 0 {
		t.Fatalf("sessions exit %d", code)
	}
	if !strings.Contains(stdout, "alice") || !strings.Contains(stdout, "(1 sessions)") {
		t.Fatalf("expected one session for alice, got: %s", stdout)
	}

	// Nothing has expired yet.
	stdout, _, code = runCmd(t, "sweep")
	if code != 0 {
		t.Fatalf("sweep exit %d", code)
	}
	if !strings.Contains(stdout, "removed 0") {
		t.Fatalf("expected 'removed 0', got: %s", stdout)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "voicegate") {
		t.Fatalf("expected version line, got: %s", stdout)
	}
}
