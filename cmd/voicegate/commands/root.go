package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/cli"
	"github.com/haivivi/voicegate/pkg/embedding"
	"github.com/haivivi/voicegate/pkg/gate"
	"github.com/haivivi/voicegate/pkg/kv"
)

var (
	verbose      bool
	formatOutput string
	dataDir      string
	configPath   string
)

var styles = cli.NewStyles(cli.DefaultTheme)

var rootCmd = &cobra.Command{
	Use:   "voicegate",
	Short: "Local voice-biometric gatekeeper",
	Long: `voicegate — enroll voice profiles and authenticate against them.

Embeddings come from an upstream audio pipeline as JSON files:
  {"method": "deep", "vector": [0.12, -0.03, ...]}

Commands:
  enroll     Enroll a new user from embedding sample files
  reenroll   Replace an enrolled user's embeddings
  auth       Authenticate a candidate embedding
  validate   Check whether a session token is still valid
  logout     Revoke a session
  users      List enrolled users
  remove     Remove a user and revoke their sessions
  sessions   List live sessions
  sweep      Remove expired sessions once

Examples:
  voicegate enroll alice s1.json s2.json s3.json
  voicegate auth candidate.json
  voicegate validate 3f2a...
  voicegate users --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "profile database directory (default ~/.voicegate/data)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.voicegate/config.yaml)")
}

// testGateOverride is set during tests to share a gate across commands.
var testGateOverride *gate.Gate

// openGate opens the profile database and builds the gate. The returned
// close func releases the database; call it before the process exits.
func openGate(ctx context.Context) (*gate.Gate, func() error, error) {
	if testGateOverride != nil {
		return testGateOverride, func() error { return nil }, nil
	}

	paths, err := cli.NewPaths()
	if err != nil {
		return nil, nil, err
	}

	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = paths.ConfigFile()
	}
	cfg, err := gate.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	dir := dataDir
	if dir == "" {
		if err := paths.EnsureDataDir(); err != nil {
			return nil, nil, err
		}
		dir = paths.DataDir()
	}
	printVerbose("opening database at %s", dir)

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, nil, err
	}
	g, err := gate.New(ctx, store, cfg, gate.WithLogger(newLogger()))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return g, store.Close, nil
}

// newLogger routes structured logs to stderr; quiet unless --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// readEmbedding loads one embedding JSON file produced by the audio
// pipeline.
func readEmbedding(path string) (embedding.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return embedding.Embedding{}, err
	}
	var e embedding.Embedding
	if err := json.Unmarshal(data, &e); err != nil {
		return embedding.Embedding{}, fmt.Errorf("parse embedding %s: %w", path, err)
	}
	return e, nil
}

func readEmbeddings(paths []string) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, 0, len(paths))
	for _, p := range paths {
		e, err := readEmbedding(p)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}
