// ABOUTME: Sentinel errors for the duplex package
// ABOUTME: Checked by callers with errors.Is
package duplex

import "errors"

var (
	// ErrQueueClosed is returned by Push once the queue has been closed.
	ErrQueueClosed = errors.New("duplex: cache queue closed")

	// ErrUnknownPolicy is returned when parsing an unrecognised overflow policy.
	ErrUnknownPolicy = errors.New("duplex: unknown overflow policy")
)
