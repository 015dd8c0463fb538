package recognition

import (
	"fmt"

	"github.com/xpanvictor/interm/pkg/io/stt"
)

type EventType string

const (
	EventResult       EventType = "RESULT"
	EventError        EventType = "ERROR"
	EventRestarted    EventType = "RESTARTED"
	EventStateChanged EventType = "STATE_CHANGED"
)

// Event is emitted by the manager in the order things happened.
type Event struct {
	Type     EventType
	Result   stt.Result
	Timeline Timeline
	Err      error
	// set on EventStateChanged
	From, To State
	// set on EventRestarted
	Trigger string
}

// TranscriptionApiError is any stream failure other than the duration
// limit. It never triggers a restart.
type TranscriptionApiError struct {
	Cause      error
	SubSession int
}

func (e *TranscriptionApiError) Error() string {
	return fmt.Sprintf("transcription api error (sub-session %d): %v", e.SubSession, e.Cause)
}

func (e *TranscriptionApiError) Unwrap() error { return e.Cause }
