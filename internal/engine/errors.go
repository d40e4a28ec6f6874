// ABOUTME: Sentinel errors for the engine
// ABOUTME: Checked by callers with errors.Is
package engine

import "errors"

// ErrClosed is returned by SetEffectOn(true) after Close
var ErrClosed = errors.New("engine: closed")
