// Package config provides configuration management for fetchgate.
package config

import (
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the fetchgate manager.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Hot           HotConfig           `json:"hot"`
	Persistent    PersistentConfig    `json:"persistent"`
	RateLimit     RateLimitConfig     `json:"rateLimit"`
	Breaker       BreakerConfig       `json:"breaker"`
	Retry         RetryConfig         `json:"retry"`
	Admission     AdmissionConfig     `json:"admission"`
	Defaults      DefaultsConfig      `json:"defaults"`
	Metrics       MetricsConfig       `json:"metrics"`
	KeyValidation KeyValidationConfig `json:"keyValidation"`
}

// HotConfig contains configuration for the hot in-process tier.
type HotConfig struct {
	// Retention bounds how long entries survive past their TTL so they remain
	// available for stale fallback. It is the tier's eviction horizon, not a
	// freshness window.
	Retention       time.Duration `json:"retention"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	MaxSizeMB       int           `json:"maxSizeMB"`
	Shards          int           `json:"shards"`
	MaxEntrySize    int           `json:"maxEntrySize"`
}

// PersistentConfig contains configuration for the persistent tier.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type PersistentConfig struct {
	// FreshWindow bounds how old a persistent entry may be and still satisfy
	// a fresh read on a hot-tier miss.
	FreshWindow time.Duration `json:"freshWindow"`
	// MaxStale bounds degraded-mode reads; entries older than this are
	// deleted on stale lookup and by the sweep.
	MaxStale time.Duration `json:"maxStale"`
	// MinPersistTTL is the persistence predicate: only entries whose TTL
	// exceeds it are worth writing durably.
	MinPersistTTL time.Duration `json:"minPersistTTL"`
	// SweepInterval enables a background sweep of over-age entries when > 0.
	SweepInterval       time.Duration `json:"sweepInterval"`
	DialTimeout         time.Duration `json:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout"`
	PoolTimeout         time.Duration `json:"poolTimeout"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	Password            SecretString  `json:"password"`
	Address             string        `json:"address"`
	KeyPrefix           string        `json:"keyPrefix"`
	DB                  int           `json:"db"`
	PoolSize            int           `json:"poolSize"`
	MinIdleConns        int           `json:"minIdleConns"`
	Enabled             bool          `json:"enabled"`
	EnableTLS           bool          `json:"enableTLS"`
	TLSSkipVerify       bool          `json:"tlsSkipVerify"`
}

// RateLimitConfig paces outbound upstream calls.
type RateLimitConfig struct {
	// MaxRequests per Window, enforced against a sliding window of call
	// timestamps.
	MaxRequests int           `json:"maxRequests"`
	Window      time.Duration `json:"window"`
	// MinDelay is the minimum spacing between any two calls, independent of
	// window occupancy. Guards against burst-sensitive upstream limits.
	MinDelay time.Duration `json:"minDelay"`
	// SafetyBuffer is added to window waits so we re-check strictly after
	// the oldest call has left the window.
	SafetyBuffer time.Duration `json:"safetyBuffer"`
}

// BreakerConfig contains configuration for the circuit breaker.
type BreakerConfig struct {
	Enabled bool `json:"enabled"`
	// RateLimitThreshold is the number of consecutive rate-limited failures
	// that opens the breaker.
	RateLimitThreshold int `json:"rateLimitThreshold"`
	// Cooldown is how long the breaker stays open before self-closing.
	Cooldown time.Duration `json:"cooldown"`
}

// RetryConfig contains configuration for the retry executor.
type RetryConfig struct {
	MaxAttempts int `json:"maxAttempts"`
	// RateLimitBackoffBase grows as base * 2^attempt for rate-limited failures.
	RateLimitBackoffBase time.Duration `json:"rateLimitBackoffBase"`
	// TransientBackoffStep grows as step * (attempt+1) for connection failures.
	TransientBackoffStep time.Duration `json:"transientBackoffStep"`
	// PermanentBackoff is the fixed short delay for all other failures.
	PermanentBackoff time.Duration `json:"permanentBackoff"`
	MaxBackoff       time.Duration `json:"maxBackoff"`
}

// AdmissionConfig serializes outbound upstream calls across all keys.
type AdmissionConfig struct {
	Enabled bool `json:"enabled"`
	// MaxConcurrent outbound pipelines. The upstream quota is low enough
	// that the default is 1.
	MaxConcurrent  int           `json:"maxConcurrent"`
	MaxQueue       int           `json:"maxQueue"`
	AcquireTimeout time.Duration `json:"acquireTimeout"`
}

// DefaultsConfig contains default values for fetch operations.
type DefaultsConfig struct {
	// TTL is the freshness window for operations without an entry in
	// OperationTTLs.
	TTL time.Duration `json:"ttl"`
	// MaxStale bounds stale fallback reads.
	MaxStale time.Duration `json:"maxStale"`
	// NoDataTTL caches a "no data" outcome briefly to absorb hammering.
	// Zero disables negative caching.
	NoDataTTL time.Duration `json:"noDataTTL"`
	// FetchTimeout bounds a whole coalesced fetch pipeline. Caller contexts
	// that expire sooner fall back to stale data; the flight keeps running.
	FetchTimeout time.Duration `json:"fetchTimeout"`
	// OperationTTLs overrides the freshness window per operation.
	OperationTTLs map[string]time.Duration `json:"operationTTLs"`
}

// TTLFor returns the freshness window for an operation.
func (d DefaultsConfig) TTLFor(operation string) time.Duration {
	if ttl, ok := d.OperationTTLs[operation]; ok {
		return ttl
	}
	return d.TTL
}

// KeyValidationConfig contains configuration for operation-name validation.
type KeyValidationConfig struct {
	MaxLength         int  `json:"maxLength"`
	Enabled           bool `json:"enabled"`
	AllowEmpty        bool `json:"allowEmpty"`
	AllowControlChars bool `json:"allowControlChars"`
	AllowWhitespace   bool `json:"allowWhitespace"`
}

// ToTypesConfig converts this config to a types.KeyValidationConfig.
func (c KeyValidationConfig) ToTypesConfig() types.KeyValidationConfig {
	return types.KeyValidationConfig{
		MaxLength:         c.MaxLength,
		AllowEmpty:        c.AllowEmpty,
		AllowControlChars: c.AllowControlChars,
		AllowWhitespace:   c.AllowWhitespace,
	}
}

// MetricsConfig contains configuration for metrics publishing.
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}
