package sys_manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/domains/recognition"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/domains/transcript"
	"github.com/xpanvictor/interm/internal/observability"
	"github.com/xpanvictor/interm/pkg/Logger"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/io/capture"
)

// SourceFactory returns a fresh capture source for each recording.
type SourceFactory func() capture.Source

// RecordingSession describes the current (or last) recording.
type RecordingSession struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	IsActive  bool      `json:"isActive"`
}

type Status struct {
	Session    RecordingSession `json:"session"`
	State      string           `json:"state"`
	SubSession int              `json:"subSession"`
	HasContext bool             `json:"hasContext"`
	LastFinal  string           `json:"lastFinal"`
}

// sessionBinder is implemented by emitters that tag events with the
// recording session.
type sessionBinder interface {
	SetSession(id uuid.UUID)
}

type Config struct {
	UserID string
	// bounds the fire and forget session timing write
	PersistTimeout time.Duration
}

// Controller drives one user's recording lifecycle: capture feeds the
// recognition manager, results become transcript events and the
// suggestion engine is guarded while audio flows.
type Controller struct {
	cfg       Config
	newSource SourceFactory
	manager   *recognition.Manager
	formatter *transcript.Formatter
	engine    *suggestion.Engine
	repo      session.Repository
	em        xio.Emitter
	logger    *Logger.Logger

	recording atomic.Bool

	mu      sync.Mutex
	session RecordingSession
	source  capture.Source
	pump    sync.WaitGroup

	persist    sync.WaitGroup
	eventsDone chan struct{}
	closeOnce  sync.Once
}

// New wires the controller into the engine's recording guard and starts
// consuming manager events. repo may be nil.
func New(cfg Config, newSource SourceFactory, manager *recognition.Manager, engine *suggestion.Engine, repo session.Repository, em xio.Emitter, logger *Logger.Logger) *Controller {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	c := &Controller{
		cfg:        cfg,
		newSource:  newSource,
		manager:    manager,
		formatter:  transcript.NewFormatter(),
		engine:     engine,
		repo:       repo,
		em:         em,
		logger:     logger.Named("controller"),
		eventsDone: make(chan struct{}),
	}
	engine.SetRecordingState(c)
	go c.consume()
	return c
}

func (c *Controller) IsRecording() bool {
	return c.recording.Load()
}

// Ready restores the last stored context and tells clients the backend
// is up.
func (c *Controller) Ready(ctx context.Context) {
	if ok, err := c.engine.RestoreContext(ctx, c.cfg.UserID); err != nil {
		c.logger.Warnf("could not restore context: %v", err)
	} else if ok {
		c.logger.Info("restored stored context")
	}
	c.em.Emit(ctx, xio.EventReady, xio.ReadyPayload{IsReady: true})
}

// StartRecording spawns capture and a recognition session. Calling it
// while recording is a no-op.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording.Load() {
		return nil
	}

	src := c.newSource()
	chunks, err := src.Start(context.Background())
	if err != nil {
		var devErr *capture.RecordingDeviceError
		if !errors.As(err, &devErr) {
			err = &capture.RecordingDeviceError{Cause: err}
		}
		c.startFailed(ctx, err, "recording_device")
		return err
	}

	if err := c.manager.Start(ctx); err != nil {
		if stopErr := src.Stop(); stopErr != nil {
			c.logger.Warnf("stopping capture: %v", stopErr)
		}
		c.startFailed(ctx, err, "transcription_api")
		return err
	}

	c.session = RecordingSession{ID: uuid.New(), StartedAt: time.Now(), IsActive: true}
	c.source = src
	if b, ok := c.em.(sessionBinder); ok {
		b.SetSession(c.session.ID)
	}
	c.formatter.Reset()
	c.recording.Store(true)

	c.pump.Add(1)
	go c.forward(src, chunks, c.session.ID)

	c.logger.Infof("recording started, session %s", c.session.ID)
	c.em.Emit(ctx, xio.EventRecordingStatus, xio.RecordingStatusPayload{IsRecording: true})
	return nil
}

func (c *Controller) startFailed(ctx context.Context, err error, kind string) {
	c.logger.Errorf("could not start recording: %v", err)
	observability.RecordError(kind, "controller")
	c.em.Emit(ctx, xio.EventError, xio.ErrorPayload{Message: err.Error(), Kind: kind})
	c.em.Emit(ctx, xio.EventRecordingStatus, xio.RecordingStatusPayload{IsRecording: false})
}

// StopRecording ends capture and the recognition session. It is
// idempotent.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording.Swap(false) {
		return nil
	}

	if err := c.source.Stop(); err != nil {
		c.logger.Warnf("stopping capture: %v", err)
	}
	c.manager.Stop()
	c.pump.Wait()

	ended := time.Now()
	c.session.IsActive = false
	c.saveTiming(c.session.StartedAt, ended)

	c.logger.Infof("recording stopped after %s", ended.Sub(c.session.StartedAt).Round(time.Millisecond))
	c.em.Emit(ctx, xio.EventRecordingStatus, xio.RecordingStatusPayload{IsRecording: false})
	return nil
}

// forward pumps capture into the manager until the source ends.
func (c *Controller) forward(src capture.Source, chunks <-chan []byte, id uuid.UUID) {
	defer c.pump.Done()
	for chunk := range chunks {
		c.manager.Push(chunk)
	}

	err := src.Wait()
	if !c.recording.Load() {
		return
	}
	// StopRecording waits on this goroutine
	go c.captureLost(id, err)
}

func (c *Controller) captureLost(id uuid.UUID, err error) {
	ctx := context.Background()
	if c.Session().ID != id {
		return
	}
	if err == nil {
		c.logger.Info("audio source drained, stopping recording")
	} else {
		c.logger.Errorf("capture failed: %v", err)
		observability.RecordError("recording_device", "controller")
		c.em.Emit(ctx, xio.EventError, xio.ErrorPayload{Message: err.Error(), Kind: "recording_device"})
	}
	if stopErr := c.StopRecording(ctx); stopErr != nil {
		c.logger.Warnf("stopping after capture loss: %v", stopErr)
	}
}

// consume turns manager events into transcript and error events.
func (c *Controller) consume() {
	defer close(c.eventsDone)
	ctx := context.Background()

	for ev := range c.manager.Events() {
		switch ev.Type {
		case recognition.EventResult:
			te := c.formatter.Format(ev.Result, ev.Timeline, c.manager.StreamingLimitMs())
			if te.Text == "" {
				continue
			}
			c.em.Emit(ctx, xio.EventTranscript, te)

		case recognition.EventError:
			c.em.Emit(ctx, xio.EventError, xio.ErrorPayload{Message: ev.Err.Error(), Kind: "transcription_api"})

		case recognition.EventRestarted:
			c.logger.Debugf("recognition restarted (%s), sub-session %d", ev.Trigger, ev.Timeline.RestartCounter)

		case recognition.EventStateChanged:
			// the manager gave up on its own, e.g. a failed reopen
			if ev.To == recognition.Idle && c.recording.Load() {
				go func() {
					if err := c.StopRecording(ctx); err != nil {
						c.logger.Warnf("stopping after recognition ended: %v", err)
					}
				}()
			}
		}
	}
}

func (c *Controller) saveTiming(start, end time.Time) {
	if c.repo == nil {
		return
	}
	timing := session.NewSessionTiming(c.cfg.UserID, start, end)
	c.persist.Add(1)
	go func() {
		defer c.persist.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if err := c.repo.SaveSessionTiming(ctx, timing); err != nil {
			c.logger.Warnf("could not save session timing: %v", err)
		}
	}()
}

func (c *Controller) Session() RecordingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) Status() Status {
	tl := c.manager.Snapshot()
	return Status{
		Session:    c.Session(),
		State:      string(c.manager.State()),
		SubSession: tl.RestartCounter,
		HasContext: c.engine.Context() != "",
		LastFinal:  c.formatter.LastFinal(),
	}
}

// RequestSuggestion asks for a suggestion. An empty transcript falls
// back to the latest final result.
func (c *Controller) RequestSuggestion(ctx context.Context, text string) (string, error) {
	if text == "" {
		text = c.formatter.LastFinal()
	}
	return c.engine.RequestSuggestion(ctx, text)
}

func (c *Controller) Elaborate(ctx context.Context, text string) (string, error) {
	return c.engine.Elaborate(ctx, text)
}

// SetContext stores blob as is. With process set the text is first
// digested by the model.
func (c *Controller) SetContext(ctx context.Context, blob string, process bool) error {
	if process && blob != "" {
		return c.engine.IngestText(ctx, c.cfg.UserID, blob)
	}
	return c.engine.SetContext(ctx, blob)
}

func (c *Controller) SetContextFile(ctx context.Context, path string) error {
	return c.engine.IngestFile(ctx, c.cfg.UserID, path)
}

// RestoreContext applies the latest stored context of userID, or of the
// configured user when empty.
func (c *Controller) RestoreContext(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		userID = c.cfg.UserID
	}
	return c.engine.RestoreContext(ctx, userID)
}

func (c *Controller) ClearContext(ctx context.Context) error {
	return c.engine.DeleteContext(ctx, c.cfg.UserID)
}

func (c *Controller) ProcessScreenshot(ctx context.Context, path string) (suggestion.ScreenshotResult, error) {
	return c.engine.ProcessScreenshot(ctx, path)
}

// SessionTimings lists recent recordings, newest first.
func (c *Controller) SessionTimings(ctx context.Context, limit int) ([]session.SessionTiming, error) {
	if c.repo == nil {
		return nil, nil
	}
	return c.repo.ListSessionTimings(ctx, c.cfg.UserID, limit)
}

// Close stops recording and releases the manager. Pending writes are
// flushed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if err := c.StopRecording(context.Background()); err != nil {
			c.logger.Warnf("stop on close: %v", err)
		}
		c.manager.Close()
		<-c.eventsDone
		c.persist.Wait()
		c.engine.Close()
	})
}
