package common

import "errors"

// ErrProtocolPaused is returned by Guard when the global circuit breaker is
// engaged. Every mutating entry point checks it before touching state.
var ErrProtocolPaused = errors.New("protocol paused")

// PauseView reports the global pause flag maintained by governance.
type PauseView interface {
	IsPaused() bool
}

// Guard fails fast when the protocol is paused. A nil view means no pause
// wiring is configured and the operation proceeds.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	if p.IsPaused() {
		return ErrProtocolPaused
	}
	return nil
}
