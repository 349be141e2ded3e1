package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestForTestingIsValid(t *testing.T) {
	if err := ForTesting().Validate(); err != nil {
		t.Errorf("ForTesting().Validate() error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	//nolint:govet // Test table - alignment not critical
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero hot size", func(c *Config) { c.Hot.MaxSizeMB = 0 }},
		{"non power of 2 shards", func(c *Config) { c.Hot.Shards = 100 }},
		{"zero retention", func(c *Config) { c.Hot.Retention = 0 }},
		{"persistent enabled without address", func(c *Config) {
			c.Persistent.Enabled = true
			c.Persistent.Address = ""
		}},
		{"zero rate window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"zero rate requests", func(c *Config) { c.RateLimit.MaxRequests = 0 }},
		{"breaker enabled zero threshold", func(c *Config) { c.Breaker.RateLimitThreshold = 0 }},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"admission enabled zero concurrent", func(c *Config) { c.Admission.MaxConcurrent = 0 }},
		{"zero default ttl", func(c *Config) { c.Defaults.TTL = 0 }},
		{"zero default max stale", func(c *Config) { c.Defaults.MaxStale = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestTTLFor(t *testing.T) {
	d := DefaultsConfig{
		TTL: 5 * time.Minute,
		OperationTTLs: map[string]time.Duration{
			"quotes/latest": 30 * time.Second,
		},
	}

	if got := d.TTLFor("quotes/latest"); got != 30*time.Second {
		t.Errorf("TTLFor(quotes/latest) = %v, want 30s", got)
	}
	if got := d.TTLFor("anything/else"); got != 5*time.Minute {
		t.Errorf("TTLFor(anything/else) = %v, want 5m", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.RateLimit.MaxRequests != DefaultConfig().RateLimit.MaxRequests {
			t.Error("missing file did not yield defaults")
		}
	})

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Hot.MaxSizeMB != 256 {
			t.Errorf("Hot.MaxSizeMB = %d, want 256", cfg.Hot.MaxSizeMB)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{
			"hot": {"retention": 3600000000000, "maxSizeMB": 64, "shards": 256, "maxEntrySize": 1048576},
			"rateLimit": {"maxRequests": 10, "window": 60000000000},
			"breaker": {"enabled": true, "rateLimitThreshold": 3, "cooldown": 60000000000},
			"retry": {"maxAttempts": 5},
			"defaults": {"ttl": 60000000000, "maxStale": 3600000000000}
		}`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.RateLimit.MaxRequests != 10 {
			t.Errorf("RateLimit.MaxRequests = %d, want 10", cfg.RateLimit.MaxRequests)
		}
		if cfg.Breaker.RateLimitThreshold != 3 {
			t.Errorf("Breaker.RateLimitThreshold = %d, want 3", cfg.Breaker.RateLimitThreshold)
		}
		if cfg.Retry.MaxAttempts != 5 {
			t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte(`{nope`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() of malformed JSON = nil, want error")
		}
	})
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FETCHGATE_RATE_MAX_REQUESTS", "42")
	t.Setenv("FETCHGATE_BREAKER_COOLDOWN", "90s")
	t.Setenv("FETCHGATE_STORE_PASSWORD", "hunter2")

	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}

	if cfg.RateLimit.MaxRequests != 42 {
		t.Errorf("RateLimit.MaxRequests = %d, want 42", cfg.RateLimit.MaxRequests)
	}
	if cfg.Breaker.Cooldown != 90*time.Second {
		t.Errorf("Breaker.Cooldown = %v, want 90s", cfg.Breaker.Cooldown)
	}
	if cfg.Persistent.Password.Value() != "hunter2" {
		t.Error("password override not applied")
	}
	if cfg.Persistent.Password.String() == "hunter2" {
		t.Error("password String() leaked the secret")
	}
}
