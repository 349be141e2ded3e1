package fetchgate

import (
	"github.com/jmcrae/fetchgate/internal/types"
)

var (
	// ErrCacheMiss indicates that a requested key was not found in either tier.
	ErrCacheMiss = types.ErrCacheMiss
	// ErrNoData indicates the upstream had nothing for this operation.
	ErrNoData = types.ErrNoData
	// ErrCircuitOpen indicates the circuit breaker is open and no stale
	// fallback was available.
	ErrCircuitOpen = types.ErrCircuitOpen
	// ErrExhausted indicates all retry attempts failed and no stale fallback
	// was available.
	ErrExhausted = types.ErrExhausted
	// ErrStoreUnavailable indicates the persistent store is not reachable.
	ErrStoreUnavailable = types.ErrStoreUnavailable
	// ErrClosed indicates the fetcher has been closed.
	ErrClosed = types.ErrClosed
	// ErrAdmissionTimeout indicates the caller timed out waiting for an
	// outbound pipeline slot.
	ErrAdmissionTimeout = types.ErrAdmissionTimeout
	// ErrInvalidKey indicates an operation name failed validation.
	ErrInvalidKey = types.ErrInvalidKey
)

// IsCacheMiss returns true if the error is a cache miss.
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}

// IsNoData returns true if the error indicates the upstream had no data.
func IsNoData(err error) bool {
	return types.IsNoData(err)
}

// IsCircuitOpen returns true if the error indicates the breaker is open.
func IsCircuitOpen(err error) bool {
	return types.IsCircuitOpen(err)
}

// IsExhausted returns true if the error indicates retries were exhausted.
func IsExhausted(err error) bool {
	return types.IsExhausted(err)
}

// IsStoreUnavailable returns true if the error indicates the persistent
// store is unreachable.
func IsStoreUnavailable(err error) bool {
	return types.IsStoreUnavailable(err)
}

// IsInvalidKey returns true if the error indicates an invalid operation name.
func IsInvalidKey(err error) bool {
	return types.IsInvalidKey(err)
}
