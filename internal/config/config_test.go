package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("PANOPTIC_DB_PATH", "")
	t.Setenv("PANOPTIC_SECRETS_PATH", "")
	t.Setenv("PANOPTIC_REFRESH_INTERVAL", "")
	t.Setenv("PANOPTIC_COST_ALERT_USD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RefreshInterval != defaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, defaultRefreshInterval)
	}
	if cfg.CostAlertUSD != 0 {
		t.Errorf("CostAlertUSD = %v, want 0", cfg.CostAlertUSD)
	}
	if filepath.Base(cfg.SecretsPath) != "panoptic-secrets.json" {
		t.Errorf("unexpected secrets path: %s", cfg.SecretsPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("PANOPTIC_DB_PATH", filepath.Join(tmp, "custom.db"))
	t.Setenv("PANOPTIC_SECRETS_PATH", filepath.Join(tmp, "keys.json"))
	t.Setenv("PANOPTIC_REFRESH_INTERVAL", "30s")
	t.Setenv("PANOPTIC_COST_ALERT_USD", "12.5")
	t.Setenv("PANOPTIC_OPENAI_BASE_URL", "http://localhost:9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.CostAlertUSD != 12.5 {
		t.Errorf("CostAlertUSD = %v, want 12.5", cfg.CostAlertUSD)
	}
	if cfg.OpenAIBaseURL != "http://localhost:9999" {
		t.Errorf("OpenAIBaseURL = %q", cfg.OpenAIBaseURL)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90")
	if d := getEnvDuration("TEST_DURATION", time.Minute); d != 90*time.Second {
		t.Errorf("plain seconds: got %v", d)
	}

	t.Setenv("TEST_DURATION", "2m")
	if d := getEnvDuration("TEST_DURATION", time.Minute); d != 2*time.Minute {
		t.Errorf("duration string: got %v", d)
	}

	t.Setenv("TEST_DURATION", "bogus")
	if d := getEnvDuration("TEST_DURATION", time.Minute); d != time.Minute {
		t.Errorf("invalid value should fall back: got %v", d)
	}
}
