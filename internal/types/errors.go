package types

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var (
	ErrCacheMiss        = errors.New("fetchgate: key not found")
	ErrNoData           = errors.New("fetchgate: no data available")
	ErrCircuitOpen      = errors.New("fetchgate: circuit breaker open")
	ErrExhausted        = errors.New("fetchgate: retry attempts exhausted")
	ErrStoreUnavailable = errors.New("fetchgate: persistent store unavailable")
	ErrClosed           = errors.New("fetchgate: manager closed")
	ErrAdmissionTimeout = errors.New("fetchgate: timed out waiting for admission slot")
	ErrInvalidKey       = errors.New("fetchgate: invalid key")
	ErrNilDest          = errors.New("fetchgate: destination must be a non-nil pointer")
)

// FailureClass categorizes an upstream failure for retry and breaker policy.
type FailureClass int

const (
	// FailureRateLimited is an explicit rate-limit signal from the upstream.
	// These count toward opening the circuit breaker.
	FailureRateLimited FailureClass = iota + 1
	// FailureTransient is a timeout or connection-level failure.
	FailureTransient
	// FailurePermanent is any other failure; retried with a short fixed delay.
	FailurePermanent
)

func (c FailureClass) String() string {
	switch c {
	case FailureRateLimited:
		return "rate-limited"
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// UpstreamError is a classified failure from the upstream source.
type UpstreamError struct {
	Operation  string
	Class      FailureClass
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s failed (%s, status %d): %v",
			e.Operation, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s failed (%s): %v", e.Operation, e.Class, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a classified upstream error.
func NewUpstreamError(operation string, class FailureClass, statusCode int, err error) *UpstreamError {
	return &UpstreamError{
		Operation:  operation,
		Class:      class,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Classify maps an error to its failure class. Pre-classified upstream
// errors keep their class; network timeouts and connection failures are
// transient; everything else is permanent.
func Classify(err error) FailureClass {
	if err == nil {
		return 0
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Class
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return FailureTransient
	}

	return FailurePermanent
}

// StoreError wraps a failure from one of the cache tiers.
type StoreError struct {
	Op   string
	Key  string
	Tier string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s on %s [%s]: %v", e.Op, e.Tier, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s on %s: %v", e.Op, e.Tier, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, key, tier string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Tier: tier, Err: err}
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
