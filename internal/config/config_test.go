package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig() failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	expectedHome := filepath.Join(home, ".pkgplan")

	if cfg.HomeDir != expectedHome {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, expectedHome)
	}
	if cfg.SpecsDir != filepath.Join(expectedHome, "specs") {
		t.Errorf("SpecsDir = %q, want %q", cfg.SpecsDir, filepath.Join(expectedHome, "specs"))
	}
	if cfg.FingerprintDir != filepath.Join(expectedHome, "fingerprints") {
		t.Errorf("FingerprintDir = %q, want %q", cfg.FingerprintDir, filepath.Join(expectedHome, "fingerprints"))
	}
}

func TestGetAPITimeoutDefault(t *testing.T) {
	os.Unsetenv(EnvAPITimeout)
	if got := GetAPITimeout(); got != DefaultAPITimeout {
		t.Errorf("GetAPITimeout() = %v, want %v", got, DefaultAPITimeout)
	}
}

func TestGetAPITimeoutClampsLow(t *testing.T) {
	t.Setenv(EnvAPITimeout, "100ms")
	if got := GetAPITimeout(); got != time.Second {
		t.Errorf("GetAPITimeout() = %v, want clamped to 1s", got)
	}
}

func TestGetAPITimeoutClampsHigh(t *testing.T) {
	t.Setenv(EnvAPITimeout, "1h")
	if got := GetAPITimeout(); got != 10*time.Minute {
		t.Errorf("GetAPITimeout() = %v, want clamped to 10m", got)
	}
}

func TestGetAPITimeoutInvalid(t *testing.T) {
	t.Setenv(EnvAPITimeout, "not-a-duration")
	if got := GetAPITimeout(); got != DefaultAPITimeout {
		t.Errorf("GetAPITimeout() = %v, want default on invalid input", got)
	}
}
