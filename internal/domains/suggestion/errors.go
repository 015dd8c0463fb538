package suggestion

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrEmptyScreenshot = errors.New("screenshot file is empty")
)

// TranscriptTooShortError rejects transcripts before any provider call.
type TranscriptTooShortError struct {
	Length int
	Min    int
}

func (e *TranscriptTooShortError) Error() string {
	return fmt.Sprintf("Question is too short to generate a meaningful response (%d of %d characters).", e.Length, e.Min)
}

type AISuggestionError struct {
	Cause error
}

func (e *AISuggestionError) Error() string {
	return fmt.Sprintf("Error generating AI suggestion: %v", e.Cause)
}

func (e *AISuggestionError) Unwrap() error { return e.Cause }

type ElaborationError struct {
	Cause error
}

func (e *ElaborationError) Error() string {
	return fmt.Sprintf("Error elaborating response: %v", e.Cause)
}

func (e *ElaborationError) Unwrap() error { return e.Cause }

type ScreenshotProcessingError struct {
	// read | ocr | solve
	Stage string
	Cause error
}

func (e *ScreenshotProcessingError) Error() string {
	return fmt.Sprintf("Error processing screenshot: %v", e.Cause)
}

func (e *ScreenshotProcessingError) Unwrap() error { return e.Cause }

// ContextBusyError rejects context changes while a recording is active.
type ContextBusyError struct {
	Operation string
}

func (e *ContextBusyError) Error() string {
	return fmt.Sprintf("cannot %s while recording is active", e.Operation)
}

type ContextProcessingError struct {
	Cause error
}

func (e *ContextProcessingError) Error() string {
	return fmt.Sprintf("Error processing context: %v", e.Cause)
}

func (e *ContextProcessingError) Unwrap() error { return e.Cause }

// ErrorKind names the error class carried on error events.
func ErrorKind(err error) string {
	var (
		short  *TranscriptTooShortError
		ai     *AISuggestionError
		elab   *ElaborationError
		shot   *ScreenshotProcessingError
		busy   *ContextBusyError
		ctxErr *ContextProcessingError
	)
	switch {
	case errors.As(err, &short):
		return "transcript_too_short"
	case errors.As(err, &busy):
		return "context_busy"
	case errors.As(err, &ai):
		return "ai_suggestion"
	case errors.As(err, &elab):
		return "elaboration"
	case errors.As(err, &shot):
		return "screenshot"
	case errors.As(err, &ctxErr):
		return "context"
	}
	return "internal"
}
