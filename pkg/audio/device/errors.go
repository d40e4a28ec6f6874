// ABOUTME: Sentinel errors for device backends
// ABOUTME: Wrapped with backend details, checked with errors.Is
package device

import "errors"

var (
	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("device: unknown backend")

	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("device: backend not available in this build")

	// ErrInvalidConfig is returned for non-positive rates, channels or buffer sizes.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrStreamClosed is returned by Start after Close.
	ErrStreamClosed = errors.New("device: stream closed")
)
