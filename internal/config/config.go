// Package config provides environment-variable-driven configuration for
// pkgplan, following the same accessor/validation pattern as the teacher's
// internal/config package: an env var is read, parsed, clamped to a
// reasonable range with a stderr warning on anything out of bounds, and a
// default is used when unset or unparseable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvHome overrides the default pkgplan home directory.
	EnvHome = "PKGPLAN_HOME"

	// EnvAPITimeout configures the timeout for outbound VCS-metadata
	// requests (internal/vcsinfo).
	EnvAPITimeout = "PKGPLAN_API_TIMEOUT"

	// EnvFingerprintCacheTTL configures how long a persisted fingerprint
	// is trusted without being recomputed.
	EnvFingerprintCacheTTL = "PKGPLAN_FINGERPRINT_CACHE_TTL"

	// DefaultAPITimeout is used when EnvAPITimeout is unset or invalid.
	DefaultAPITimeout = 30 * time.Second

	// DefaultFingerprintCacheTTL is used when EnvFingerprintCacheTTL is
	// unset or invalid.
	DefaultFingerprintCacheTTL = 24 * time.Hour
)

// GetAPITimeout returns the configured VCS-metadata request timeout.
// Accepts duration strings like "30s", "1m". Clamped to [1s, 10m].
func GetAPITimeout() time.Duration {
	return getDuration(EnvAPITimeout, DefaultAPITimeout, time.Second, 10*time.Minute)
}

// GetFingerprintCacheTTL returns the configured fingerprint cache TTL.
// Clamped to [1m, 30d].
func GetFingerprintCacheTTL() time.Duration {
	return getDuration(EnvFingerprintCacheTTL, DefaultFingerprintCacheTTL, time.Minute, 30*24*time.Hour)
}

func getDuration(envVar string, def, min, max time.Duration) time.Duration {
	raw := os.Getenv(envVar)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n", envVar, raw, def)
		return def
	}
	if d < min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n", envVar, d, min)
		return min
	}
	if d > max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n", envVar, d, max)
		return max
	}
	return d
}

// Config holds process-wide pkgplan configuration, resolved once at
// startup and passed down explicitly rather than read from globals deep
// inside the core.
type Config struct {
	HomeDir        string // $PKGPLAN_HOME
	SpecsDir       string // $PKGPLAN_HOME/specs
	FingerprintDir string // $PKGPLAN_HOME/fingerprints
	APITimeout     time.Duration
	FingerprintTTL time.Duration
}

// DefaultConfig resolves Config from the environment.
func DefaultConfig() (*Config, error) {
	home := os.Getenv(EnvHome)
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve user home directory: %w", err)
		}
		home = filepath.Join(dir, ".pkgplan")
	}
	return &Config{
		HomeDir:        home,
		SpecsDir:       filepath.Join(home, "specs"),
		FingerprintDir: filepath.Join(home, "fingerprints"),
		APITimeout:     GetAPITimeout(),
		FingerprintTTL: GetFingerprintCacheTTL(),
	}, nil
}

// EnsureDirectories creates the directories Config names, if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.SpecsDir, c.FingerprintDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	return nil
}
