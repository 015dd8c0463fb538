package io

import "context"

// Event names understood by every presentation surface.
const (
	EventTranscript          = "transcript"
	EventSuggestion          = "suggestion"
	EventSuggestionChunk     = "suggestion-chunk"
	EventRecordingStatus     = "recording-status"
	EventContextUpdate       = "context-update"
	EventError               = "error"
	EventScreenshotProcessed = "screenshot-processed"
	EventElaboration         = "elaboration"
	EventReady               = "ready"
)

// Emitter delivers a named event to whoever presents the session.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any)
}

type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type RecordingStatusPayload struct {
	IsRecording bool `json:"isRecording"`
}

type ReadyPayload struct {
	IsReady bool `json:"isReady"`
}

type TextPayload struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type ContextUpdatePayload struct {
	HasContext bool   `json:"hasContext"`
	Summary    string `json:"summary,omitempty"`
	Preview    string `json:"preview,omitempty"`
	IsFile     bool   `json:"isFile"`
	Message    string `json:"message,omitempty"`
}

type ScreenshotPayload struct {
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	ClearSuggestion bool   `json:"clearSuggestion,omitempty"`
}
