package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCodec means codec negotiation exhausted every candidate.
	ErrNoCodec = errors.New("no supported codec")

	// ErrEmptyRecording means finalization found no encoded data at all.
	ErrEmptyRecording = errors.New("recording produced empty output")

	// ErrSessionBusy means a session already owns the encoder handles.
	ErrSessionBusy = errors.New("recording session already in progress")

	// ErrCancelled means the session was stopped before finishing.
	ErrCancelled = errors.New("session cancelled")
)

// InputError flags a request that is rejected before any session is created:
// empty script, script over the length ceiling, no loadable images.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// NewInputError builds an InputError with a formatted reason.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// DeviceError is fatal to a session: codec negotiation failure, audio device
// unavailable, or a mid-recording encoder fault. The session releases its
// handles and surfaces the cause.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device failure during %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// SyncError is a recoverable degrade: the audio ended before the planned
// duration (or never started), so the session stops at the audio's actual end.
type SyncError struct {
	Planned float64
	Actual  float64
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("audio ended at %.2fs of planned %.2fs", e.Actual, e.Planned)
}
