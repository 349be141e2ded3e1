package types

// Option is a functional option for configuring a single fetch.
type Option func(*FetchOptions)

// ApplyOptions applies functional options to create FetchOptions.
func ApplyOptions(opts ...Option) *FetchOptions {
	options := DefaultFetchOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ManagerOptions holds construction-time dependencies for the manager.
type ManagerOptions struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Serializer is the value serializer.
	Serializer Serializer

	// Clock overrides the time source. Used by tests; nil means time.Now.
	Clock Clock

	// StoreAddress overrides the persistent store address from config.
	StoreAddress string

	// StorePassword overrides the persistent store password from config.
	// Uses SecretString to prevent accidental logging of sensitive values.
	StorePassword SecretString

	// StoreDB overrides the persistent store database index from config.
	StoreDB int

	// DisablePersistence disables the persistent tier entirely.
	DisablePersistence bool

	// DisableResilience disables the circuit breaker, retry backoffs, and
	// rate limiting. Intended for tests against a fake upstream.
	DisableResilience bool
}
