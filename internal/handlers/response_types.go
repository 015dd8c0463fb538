package handlers

import (
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/domains/sys_manager"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message" example:"Recording started"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error" example:"Something went wrong"`
	Kind  string `json:"kind,omitempty" example:"context_busy"`
}

type SuggestionRequest struct {
	// empty falls back to the latest final transcript
	Transcript string `json:"transcript"`
}

type ElaborateRequest struct {
	Text string `json:"text" binding:"required"`
}

type ContextRequest struct {
	Text string `json:"text" binding:"required"`
	// store the text as is, skipping extraction
	Raw bool `json:"raw"`
}

type PathRequest struct {
	Path string `json:"path" binding:"required"`
}

type RestoreRequest struct {
	UserID string `json:"userId"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type RestoreResponse struct {
	Restored bool `json:"restored"`
}

type ScreenshotResponse struct {
	Result suggestion.ScreenshotResult `json:"result"`
}

type StatusResponse struct {
	Status sys_manager.Status `json:"status"`
}

type SessionTimingsResponse struct {
	Sessions []session.SessionTiming `json:"sessions"`
}
