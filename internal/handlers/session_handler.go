package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/domains/sys_manager"
	"github.com/xpanvictor/interm/pkg/Logger"
)

// SessionService is what the HTTP and websocket surfaces drive.
type SessionService interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	RequestSuggestion(ctx context.Context, transcript string) (string, error)
	Elaborate(ctx context.Context, text string) (string, error)
	SetContext(ctx context.Context, blob string, process bool) error
	SetContextFile(ctx context.Context, path string) error
	RestoreContext(ctx context.Context, userID string) (bool, error)
	ClearContext(ctx context.Context) error
	ProcessScreenshot(ctx context.Context, path string) (suggestion.ScreenshotResult, error)
	Status() sys_manager.Status
	SessionTimings(ctx context.Context, limit int) ([]session.SessionTiming, error)
}

// SessionHandler handles recording and suggestion commands
type SessionHandler struct {
	svc    SessionService
	logger *Logger.Logger
}

func NewSessionHandler(svc SessionService, logger *Logger.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

func (h *SessionHandler) RegisterRoutes(r gin.IRouter) {
	rec := r.Group("/recording")
	{
		rec.POST("/start", h.StartRecording)
		rec.POST("/stop", h.StopRecording)
	}
	r.POST("/suggestion", h.RequestSuggestion)
	r.POST("/elaborate", h.Elaborate)

	cg := r.Group("/context")
	{
		cg.POST("", h.SetContext)
		cg.DELETE("", h.ClearContext)
		cg.POST("/file", h.SetContextFile)
		cg.POST("/restore", h.RestoreContext)
	}
	r.POST("/screenshot", h.ProcessScreenshot)
	r.GET("/status", h.Status)
	r.GET("/sessions", h.SessionTimings)
}

// StartRecording handles recording start
// @Summary Start recording
// @Tags Recording
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 503 {object} ErrorResponse "Recording device unavailable"
// @Router /recording/start [post]
func (h *SessionHandler) StartRecording(c *gin.Context) {
	if err := h.svc.StartRecording(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Recording started"})
}

// StopRecording handles recording stop
// @Summary Stop recording
// @Tags Recording
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /recording/stop [post]
func (h *SessionHandler) StopRecording(c *gin.Context) {
	if err := h.svc.StopRecording(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Recording stopped"})
}

// RequestSuggestion handles suggestion requests
// @Summary Suggest an answer
// @Description Streams chunks to connected clients and returns the full text
// @Tags Suggestion
// @Accept json
// @Produce json
// @Param request body SuggestionRequest false "Transcript, defaults to the latest final"
// @Success 200 {object} TextResponse
// @Failure 400 {object} ErrorResponse "Transcript too short"
// @Failure 502 {object} ErrorResponse "Model provider failed"
// @Router /suggestion [post]
func (h *SessionHandler) RequestSuggestion(c *gin.Context) {
	var req SuggestionRequest
	// an empty body is fine
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
			return
		}
	}
	text, err := h.svc.RequestSuggestion(c.Request.Context(), req.Transcript)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TextResponse{Text: text})
}

// Elaborate handles elaboration requests
// @Summary Elaborate a short answer
// @Tags Suggestion
// @Accept json
// @Produce json
// @Param request body ElaborateRequest true "Text to expand"
// @Success 200 {object} TextResponse
// @Router /elaborate [post]
func (h *SessionHandler) Elaborate(c *gin.Context) {
	var req ElaborateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
		return
	}
	text, err := h.svc.Elaborate(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TextResponse{Text: text})
}

// SetContext handles text context
// @Summary Set conversation context
// @Tags Context
// @Accept json
// @Produce json
// @Param request body ContextRequest true "Context text"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse "Recording in progress"
// @Router /context [post]
func (h *SessionHandler) SetContext(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
		return
	}
	if err := h.svc.SetContext(c.Request.Context(), req.Text, !req.Raw); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Context updated"})
}

func (h *SessionHandler) SetContextFile(c *gin.Context) {
	var req PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
		return
	}
	if err := h.svc.SetContextFile(c.Request.Context(), req.Path); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Context updated"})
}

func (h *SessionHandler) RestoreContext(c *gin.Context) {
	var req RestoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
			return
		}
	}
	ok, err := h.svc.RestoreContext(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RestoreResponse{Restored: ok})
}

func (h *SessionHandler) ClearContext(c *gin.Context) {
	if err := h.svc.ClearContext(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Context cleared"})
}

// ProcessScreenshot handles screenshot solving
// @Summary Solve the problem in a screenshot
// @Tags Suggestion
// @Accept json
// @Produce json
// @Param request body PathRequest true "Image path on the host"
// @Success 200 {object} ScreenshotResponse
// @Failure 404 {object} ErrorResponse "Image not found"
// @Router /screenshot [post]
func (h *SessionHandler) ProcessScreenshot(c *gin.Context) {
	var req PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data"})
		return
	}
	res, err := h.svc.ProcessScreenshot(c.Request.Context(), req.Path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScreenshotResponse{Result: res})
}

func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: h.svc.Status()})
}

// SessionTimings lists recent recordings
// @Summary List recent recording sessions
// @Tags Recording
// @Produce json
// @Param limit query int false "Max sessions" default(20)
// @Success 200 {object} SessionTimingsResponse
// @Router /sessions [get]
func (h *SessionHandler) SessionTimings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	timings, err := h.svc.SessionTimings(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("list session timings error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	if timings == nil {
		timings = []session.SessionTiming{}
	}
	c.JSON(http.StatusOK, SessionTimingsResponse{Sessions: timings})
}
