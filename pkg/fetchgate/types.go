package fetchgate

import (
	"github.com/jmcrae/fetchgate/internal/types"
)

type (
	// FetchOptions contains per-call options for fetch operations.
	FetchOptions = types.FetchOptions

	// Envelope is the stored unit: a serialized payload plus freshness metadata.
	Envelope = types.Envelope

	// HotTierStats contains counters for the in-process tier.
	HotTierStats = types.HotTierStats

	// PersistentTierStats describes the persistent tier's contents.
	PersistentTierStats = types.PersistentTierStats

	// Logger is the pluggable logging interface.
	Logger = types.Logger

	// MetricsRecorder is the pluggable metrics interface.
	MetricsRecorder = types.MetricsRecorder

	// Serializer is the pluggable serialization interface.
	Serializer = types.Serializer

	// Clock supplies the current time.
	Clock = types.Clock

	// FailureClass categorizes an upstream failure.
	FailureClass = types.FailureClass

	// UpstreamError is a classified failure from the upstream source.
	UpstreamError = types.UpstreamError
)

const (
	// FailureRateLimited is an explicit rate-limit signal from the upstream.
	FailureRateLimited = types.FailureRateLimited
	// FailureTransient is a timeout or connection-level failure.
	FailureTransient = types.FailureTransient
	// FailurePermanent is any other failure.
	FailurePermanent = types.FailurePermanent
)

// NewUpstreamError creates a classified upstream error. Custom UpstreamClient
// implementations should wrap their failures with this so the retry and
// breaker policies can classify them.
func NewUpstreamError(operation string, class FailureClass, statusCode int, err error) *UpstreamError {
	return types.NewUpstreamError(operation, class, statusCode, err)
}
