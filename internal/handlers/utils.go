package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/interm/internal/domains/recognition"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/models/processor"
	"github.com/xpanvictor/interm/pkg/io/capture"
)

// StatusFor maps a domain error to an HTTP status.
func StatusFor(err error) int {
	var (
		short *suggestion.TranscriptTooShortError
		busy  *suggestion.ContextBusyError
		shot  *suggestion.ScreenshotProcessingError
		dev   *capture.RecordingDeviceError
		api   *recognition.TranscriptionApiError
	)
	switch {
	case errors.As(err, &short),
		errors.Is(err, suggestion.ErrEmptyText),
		errors.Is(err, processor.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.As(err, &shot) && shot.Stage == "read":
		if errors.Is(err, os.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &busy), errors.Is(err, recognition.ErrNotIdle):
		return http.StatusConflict
	case errors.As(err, &dev):
		return http.StatusServiceUnavailable
	case errors.As(err, &api):
		return http.StatusBadGateway
	}
	if suggestion.ErrorKind(err) != "internal" {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), ErrorResponse{Error: err.Error(), Kind: suggestion.ErrorKind(err)})
}
