package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FETCHGATE_HOT_MAX_SIZE_MB"); v != "" {
		cfg.Hot.MaxSizeMB = parseInt(v, cfg.Hot.MaxSizeMB)
	}
	if v := os.Getenv("FETCHGATE_HOT_RETENTION"); v != "" {
		cfg.Hot.Retention = parseDuration(v, cfg.Hot.Retention)
	}

	if v := os.Getenv("FETCHGATE_STORE_ENABLED"); v != "" {
		cfg.Persistent.Enabled = parseBool(v)
	}
	if v := os.Getenv("FETCHGATE_STORE_ADDRESS"); v != "" {
		cfg.Persistent.Address = v
	}
	if v := os.Getenv("FETCHGATE_STORE_PASSWORD"); v != "" {
		cfg.Persistent.Password = NewSecretString(v)
	}
	if v := os.Getenv("FETCHGATE_STORE_DB"); v != "" {
		cfg.Persistent.DB = parseInt(v, cfg.Persistent.DB)
	}
	if v := os.Getenv("FETCHGATE_STORE_KEY_PREFIX"); v != "" {
		cfg.Persistent.KeyPrefix = v
	}
	if v := os.Getenv("FETCHGATE_STORE_MAX_STALE"); v != "" {
		cfg.Persistent.MaxStale = parseDuration(v, cfg.Persistent.MaxStale)
	}
	if v := os.Getenv("FETCHGATE_STORE_MIN_PERSIST_TTL"); v != "" {
		cfg.Persistent.MinPersistTTL = parseDuration(v, cfg.Persistent.MinPersistTTL)
	}
	if v := os.Getenv("FETCHGATE_STORE_ENABLE_TLS"); v != "" {
		cfg.Persistent.EnableTLS = parseBool(v)
	}

	if v := os.Getenv("FETCHGATE_RATE_MAX_REQUESTS"); v != "" {
		cfg.RateLimit.MaxRequests = parseInt(v, cfg.RateLimit.MaxRequests)
	}
	if v := os.Getenv("FETCHGATE_RATE_WINDOW"); v != "" {
		cfg.RateLimit.Window = parseDuration(v, cfg.RateLimit.Window)
	}
	if v := os.Getenv("FETCHGATE_RATE_MIN_DELAY"); v != "" {
		cfg.RateLimit.MinDelay = parseDuration(v, cfg.RateLimit.MinDelay)
	}

	if v := os.Getenv("FETCHGATE_BREAKER_ENABLED"); v != "" {
		cfg.Breaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("FETCHGATE_BREAKER_THRESHOLD"); v != "" {
		cfg.Breaker.RateLimitThreshold = parseInt(v, cfg.Breaker.RateLimitThreshold)
	}
	if v := os.Getenv("FETCHGATE_BREAKER_COOLDOWN"); v != "" {
		cfg.Breaker.Cooldown = parseDuration(v, cfg.Breaker.Cooldown)
	}

	if v := os.Getenv("FETCHGATE_RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}

	if v := os.Getenv("FETCHGATE_ADMISSION_MAX_CONCURRENT"); v != "" {
		cfg.Admission.MaxConcurrent = parseInt(v, cfg.Admission.MaxConcurrent)
	}

	if v := os.Getenv("FETCHGATE_DEFAULT_TTL"); v != "" {
		cfg.Defaults.TTL = parseDuration(v, cfg.Defaults.TTL)
	}
	if v := os.Getenv("FETCHGATE_FETCH_TIMEOUT"); v != "" {
		cfg.Defaults.FetchTimeout = parseDuration(v, cfg.Defaults.FetchTimeout)
	}

	if v := os.Getenv("FETCHGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Hot.MaxSizeMB <= 0 {
		return fmt.Errorf("hot.maxSizeMB must be positive")
	}
	if c.Hot.Shards <= 0 || (c.Hot.Shards&(c.Hot.Shards-1)) != 0 {
		return fmt.Errorf("hot.shards must be a positive power of 2")
	}
	if c.Hot.Retention <= 0 {
		return fmt.Errorf("hot.retention must be positive")
	}

	if c.Persistent.Enabled {
		if c.Persistent.Address == "" {
			return fmt.Errorf("persistent.address is required when the persistent tier is enabled")
		}
		if c.Persistent.PoolSize <= 0 {
			return fmt.Errorf("persistent.poolSize must be positive")
		}
		if c.Persistent.MaxStale <= 0 {
			return fmt.Errorf("persistent.maxStale must be positive")
		}
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rateLimit.maxRequests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rateLimit.window must be positive")
	}

	if c.Breaker.Enabled {
		if c.Breaker.RateLimitThreshold <= 0 {
			return fmt.Errorf("breaker.rateLimitThreshold must be positive")
		}
		if c.Breaker.Cooldown <= 0 {
			return fmt.Errorf("breaker.cooldown must be positive")
		}
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.maxAttempts must be positive")
	}

	if c.Admission.Enabled && c.Admission.MaxConcurrent <= 0 {
		return fmt.Errorf("admission.maxConcurrent must be positive")
	}

	if c.Defaults.TTL <= 0 {
		return fmt.Errorf("defaults.ttl must be positive")
	}
	if c.Defaults.MaxStale <= 0 {
		return fmt.Errorf("defaults.maxStale must be positive")
	}

	return nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return b
}

func parseInt(v string, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return i
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return d
}
