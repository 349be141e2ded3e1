package fetchgate

import (
	"log/slog"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/fetch"
	"github.com/jmcrae/fetchgate/internal/upstream"
)

// New creates a fetcher over the given upstream with default configuration.
func New(client UpstreamClient, opts ...ManagerOption) (Fetcher, error) {
	return NewFromConfig(config.DefaultConfig(), client, opts...)
}

// NewFromConfig creates a fetcher from configuration.
func NewFromConfig(cfg *config.Config, client UpstreamClient, opts ...ManagerOption) (Fetcher, error) {
	managerOpts := &ManagerOptions{}
	for _, opt := range opts {
		opt(managerOpts)
	}

	m, err := fetch.NewManager(cfg, client, managerOpts)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewFromFile creates a fetcher from a JSON config file with environment
// overrides applied.
func NewFromFile(path string, client UpstreamClient, opts ...ManagerOption) (Fetcher, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, client, opts...)
}

// NewHTTP creates a fetcher whose upstream is a JSON HTTP API rooted at
// baseURL. Operations are request paths; params become the query string.
func NewHTTP(baseURL string, opts ...ManagerOption) (Fetcher, error) {
	return New(upstream.NewHTTPClient(baseURL, slog.Default()), opts...)
}

// Config returns a default configuration that can be modified before
// creating a fetcher.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}

// UpstreamFunc adapts a plain function into an UpstreamClient.
type UpstreamFunc = upstream.Func
