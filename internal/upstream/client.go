// Package upstream defines the client contract for the remote data source
// and an HTTP implementation that classifies failures for the retry and
// circuit breaker policies.
package upstream

import (
	"context"
	"encoding/json"
)

// Client is the single seam to the remote data source. Implementations must
// return errors classified via types.UpstreamError so the retry executor can
// distinguish rate-limit, transient, and permanent failures.
type Client interface {
	Invoke(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error)
}

// Func adapts a plain function into a Client.
type Func func(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error)

// Invoke implements Client.
func (f Func) Invoke(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
	return f(ctx, operation, params)
}
