package gate

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/voicegate/pkg/embedding"
	"github.com/haivivi/voicegate/pkg/jsontime"
)

// Config is the tuning surface of the gate. Zero fields fall back to the
// documented defaults, so a partial YAML file (or an empty Config literal)
// is always usable.
//
// The thresholds and sample counts are product defaults, not derived
// invariants. Deployments are expected to tune them.
type Config struct {
	// SessionTimeout is how long a session stays valid without renewal.
	// Default 30m.
	SessionTimeout jsontime.Duration `yaml:"session_timeout" json:"session_timeout"`

	// SlidingExpiry renews the session window on every successful
	// validation. Fixed at construction for the whole deployment.
	// Default false (fixed expiry).
	SlidingExpiry bool `yaml:"sliding_expiry" json:"sliding_expiry"`

	// MaxFailedAttempts is the failure count that triggers lockout.
	// Default 3.
	MaxFailedAttempts int `yaml:"max_failed_attempts" json:"max_failed_attempts"`

	// LockoutDuration is how long a locked identifier stays blocked.
	// Default 5m.
	LockoutDuration jsontime.Duration `yaml:"lockout_duration" json:"lockout_duration"`

	// ThresholdDeep is the cosine accept threshold for deep embeddings.
	// Default 0.80.
	ThresholdDeep float64 `yaml:"threshold_deep" json:"threshold_deep"`

	// ThresholdSpectral is the cosine accept threshold for spectral
	// embeddings. Coarser feature space, stricter threshold. Default 0.85.
	ThresholdSpectral float64 `yaml:"threshold_spectral" json:"threshold_spectral"`

	// MinEnrollmentSamples is the minimum number of embeddings required
	// to enroll a user. Default 3.
	MinEnrollmentSamples int `yaml:"min_enrollment_samples" json:"min_enrollment_samples"`

	// SweepInterval is how often the background sweeper removes expired
	// sessions. Default 5m.
	SweepInterval jsontime.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:       jsontime.Duration(30 * time.Minute),
		MaxFailedAttempts:    3,
		LockoutDuration:      jsontime.Duration(5 * time.Minute),
		ThresholdDeep:        0.80,
		ThresholdSpectral:    0.85,
		MinEnrollmentSamples: 3,
		SweepInterval:        jsontime.Duration(5 * time.Minute),
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// A missing file is not an error: the defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("gate: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("gate: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero fields with the documented defaults. Bool
// fields keep their zero value: false is a meaningful setting.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.ThresholdDeep == 0 {
		c.ThresholdDeep = d.ThresholdDeep
	}
	if c.ThresholdSpectral == 0 {
		c.ThresholdSpectral = d.ThresholdSpectral
	}
	if c.MinEnrollmentSamples <= 0 {
		c.MinEnrollmentSamples = d.MinEnrollmentSamples
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
}

// threshold returns the accept threshold for a method.
func (c *Config) threshold(m embedding.Method) float64 {
	if m == embedding.MethodSpectral {
		return c.ThresholdSpectral
	}
	return c.ThresholdDeep
}
