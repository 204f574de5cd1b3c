package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoomSelected is reported by ticks that run before a room is selected.
	ErrNoRoomSelected = errors.New("no room selected")
	// ErrStopped is returned by commands sent after the event loop exited.
	ErrStopped = errors.New("simulator stopped")
)

// ConfigFetchError reports a failed threshold refresh. The previous thresholds
// stay in effect.
type ConfigFetchError struct {
	RoomID int
	Err    error
}

func (e *ConfigFetchError) Error() string {
	return fmt.Sprintf("refresh thresholds of room %d: %v", e.RoomID, e.Err)
}

func (e *ConfigFetchError) Unwrap() error {
	return e.Err
}
