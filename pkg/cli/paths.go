// Package cli provides filesystem paths and terminal styling shared by
// voicegate command line tools.
package cli

import (
	"os"
	"path/filepath"
)

const (
	// DefaultBaseDir is the per-user voicegate directory under $HOME.
	DefaultBaseDir = ".voicegate"

	// DefaultConfigFile is the config file name inside the base directory.
	DefaultConfigFile = "config.yaml"
)

// Paths resolves the voicegate directory layout for the current user.
type Paths struct {
	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths creates a Paths rooted at the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the voicegate directory (~/.voicegate).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.voicegate/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the profile/session database directory
// (~/.voicegate/data).
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0o755)
}
