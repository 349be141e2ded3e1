package config

import "time"

// DefaultConfig returns a configuration with sensible defaults. The retry
// and pacing numbers are tuned for upstreams with both a short-burst limit
// and a low sustained quota.
func DefaultConfig() *Config {
	return &Config{
		Hot: HotConfig{
			Retention:       24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			MaxSizeMB:       256,
			Shards:          1024,
			MaxEntrySize:    10 * 1024 * 1024, // 10MB
		},
		Persistent: PersistentConfig{
			Enabled:             false,
			Address:             "localhost:6379",
			Password:            SecretString{},
			DB:                  0,
			KeyPrefix:           "fetchgate:",
			FreshWindow:         1 * time.Hour,
			MaxStale:            7 * 24 * time.Hour,
			MinPersistTTL:       60 * time.Second,
			SweepInterval:       0,
			PoolSize:            50,
			MinIdleConns:        5,
			DialTimeout:         5 * time.Second,
			ReadTimeout:         3 * time.Second,
			WriteTimeout:        3 * time.Second,
			PoolTimeout:         4 * time.Second,
			HealthCheckInterval: 5 * time.Second,
			EnableTLS:           false,
			TLSSkipVerify:       false,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:  5,
			Window:       time.Minute,
			MinDelay:     8 * time.Second,
			SafetyBuffer: 10 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:            true,
			RateLimitThreshold: 2,
			Cooldown:           5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:          3,
			RateLimitBackoffBase: 20 * time.Second,
			TransientBackoffStep: 5 * time.Second,
			PermanentBackoff:     3 * time.Second,
			MaxBackoff:           2 * time.Minute,
		},
		Admission: AdmissionConfig{
			Enabled:        true,
			MaxConcurrent:  1,
			MaxQueue:       32,
			AcquireTimeout: 30 * time.Second,
		},
		Defaults: DefaultsConfig{
			TTL:           5 * time.Minute,
			MaxStale:      7 * 24 * time.Hour,
			NoDataTTL:     60 * time.Second,
			FetchTimeout:  5 * time.Minute,
			OperationTTLs: map[string]time.Duration{},
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "fetchgate",
				Tags:      []string{},
			},
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxLength:         512,
			AllowEmpty:        false,
			AllowControlChars: false,
			AllowWhitespace:   false,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// pacing and backoffs collapsed to near-zero, persistence disabled.
func ForTesting() *Config {
	return &Config{
		Hot: HotConfig{
			Retention:       time.Hour,
			CleanupInterval: time.Second,
			MaxSizeMB:       16,
			Shards:          64,
			MaxEntrySize:    1024 * 1024, // 1MB
		},
		Persistent: PersistentConfig{
			Enabled:             false,
			Address:             "localhost:6379",
			KeyPrefix:           "fetchgate:test:",
			FreshWindow:         time.Minute,
			MaxStale:            time.Hour,
			MinPersistTTL:       60 * time.Second,
			PoolSize:            5,
			MinIdleConns:        1,
			DialTimeout:         time.Second,
			ReadTimeout:         time.Second,
			WriteTimeout:        time.Second,
			PoolTimeout:         time.Second,
			HealthCheckInterval: 0,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:  1000,
			Window:       time.Minute,
			MinDelay:     0,
			SafetyBuffer: 0,
		},
		Breaker: BreakerConfig{
			Enabled:            true,
			RateLimitThreshold: 2,
			Cooldown:           time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:          3,
			RateLimitBackoffBase: time.Millisecond,
			TransientBackoffStep: time.Millisecond,
			PermanentBackoff:     time.Millisecond,
			MaxBackoff:           10 * time.Millisecond,
		},
		Admission: AdmissionConfig{
			Enabled:        true,
			MaxConcurrent:  1,
			MaxQueue:       32,
			AcquireTimeout: time.Second,
		},
		Defaults: DefaultsConfig{
			TTL:           time.Minute,
			MaxStale:      time.Hour,
			NoDataTTL:     0,
			FetchTimeout:  5 * time.Second,
			OperationTTLs: map[string]time.Duration{},
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: time.Second,
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxLength:         512,
			AllowEmpty:        false,
			AllowControlChars: false,
			AllowWhitespace:   false,
		},
	}
}

// ForTestingWithStore returns a test config with the persistent tier enabled.
func ForTestingWithStore(addr string) *Config {
	cfg := ForTesting()
	cfg.Persistent.Enabled = true
	cfg.Persistent.Address = addr
	return cfg
}
