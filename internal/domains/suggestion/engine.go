package suggestion

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xpanvictor/interm/internal/constants/prompts"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/sys_manager/pipeline"
	"github.com/xpanvictor/interm/internal/models/processor"
	"github.com/xpanvictor/interm/internal/observability"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
	xio "github.com/xpanvictor/interm/pkg/io"
)

const previewChars = 160

// RecordingState tells the engine whether audio is being captured.
type RecordingState interface {
	IsRecording() bool
}

type idleState struct{}

func (idleState) IsRecording() bool { return false }

type Config struct {
	MinTranscriptChars int
	BasePrompt         string
	OCRTimeout         time.Duration
	SolveTimeout       time.Duration
	PersistTimeout     time.Duration
	Delta              adapters.ContractLLMCfg
}

func DefaultConfig() Config {
	return Config{
		MinTranscriptChars: 20,
		BasePrompt:         prompts.INTERVIEW_PROMPT.Text(),
		OCRTimeout:         30 * time.Second,
		SolveTimeout:       30 * time.Second,
		PersistTimeout:     5 * time.Second,
		Delta: adapters.ContractLLMCfg{
			DeltaBufferLimit:  24,
			DeltaTimeDuration: 150 * time.Millisecond,
		},
	}
}

// Engine turns finalized transcript text into suggestions. It owns the
// context blob and the chat history.
type Engine struct {
	cfg       Config
	provider  assistant.Provider
	proc      processor.Processor
	repo      session.Repository
	em        xio.Emitter
	pipe      pipeline.Pipeline
	logger    *Logger.Logger
	recording RecordingState

	mu          sync.RWMutex
	contextBlob string
	history     []adapters.ContractMessage
	// bumped whenever history is reset
	generation uint64

	persist sync.WaitGroup
}

// New builds an engine. repo may be nil, in which case context is never
// persisted.
func New(cfg Config, provider assistant.Provider, proc processor.Processor, repo session.Repository, em xio.Emitter, logger *Logger.Logger) *Engine {
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = 20
	}
	if cfg.BasePrompt == "" {
		cfg.BasePrompt = prompts.INTERVIEW_PROMPT.Text()
	}
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		proc:      proc,
		repo:      repo,
		em:        em,
		pipe:      pipeline.New(adapters.New(cfg.Delta), em, xio.EventSuggestionChunk),
		logger:    logger,
		recording: idleState{},
	}
}

// SetRecordingState wires the recording guard. Call before serving.
func (e *Engine) SetRecordingState(rs RecordingState) {
	e.recording = rs
}

// Close waits for pending persistence writes.
func (e *Engine) Close() {
	e.persist.Wait()
}

// RequestSuggestion streams a suggestion for transcript. Chunks go out as
// suggestion-chunk events and the full text as one final suggestion event.
func (e *Engine) RequestSuggestion(ctx context.Context, transcript string) (text string, err error) {
	start := time.Now()
	defer func() { observability.ObserveSuggestion("suggestion", start, err) }()

	trimmed := strings.TrimSpace(transcript)
	if n := utf8.RuneCountInString(trimmed); n < e.cfg.MinTranscriptChars {
		err = &TranscriptTooShortError{Length: n, Min: e.cfg.MinTranscriptChars}
		e.fail(ctx, err)
		return "", err
	}
	if q := MostRecentQuestion(transcript); q != "" {
		e.logger.Debugf("suggestion: latest interviewer question %q", q)
	}

	e.mu.RLock()
	blob, gen := e.contextBlob, e.generation
	history := append([]adapters.ContractMessage(nil), e.history...)
	e.mu.RUnlock()

	req := assistant.GenerateRequest{
		System:  e.systemInstruction(blob),
		History: history,
		Prompt:  transcript,
	}
	text, err = e.pipe.Broadcast(ctx, func(ctx context.Context, onChunk func(string) error) (string, error) {
		return e.provider.Stream(ctx, req, onChunk)
	})
	if err != nil {
		err = &AISuggestionError{Cause: err}
		e.fail(ctx, err)
		return "", err
	}

	e.em.Emit(ctx, xio.EventSuggestion, xio.TextPayload{Text: text, IsFinal: true})

	now := time.Now()
	e.mu.Lock()
	// a context change mid-request started a new conversation
	if e.generation == gen {
		e.history = append(e.history,
			adapters.ContractMessage{Role: adapters.USER, Content: transcript, CreatedAt: now},
			adapters.ContractMessage{Role: adapters.ASSISTANT, Content: text, CreatedAt: now},
		)
	}
	e.mu.Unlock()
	return text, nil
}

// Elaborate expands a short answer into one detailed paragraph. History
// is left alone.
func (e *Engine) Elaborate(ctx context.Context, text string) (out string, err error) {
	start := time.Now()
	defer func() { observability.ObserveSuggestion("elaborate", start, err) }()

	if strings.TrimSpace(text) == "" {
		err = &ElaborationError{Cause: ErrEmptyText}
		e.fail(ctx, err)
		return "", err
	}

	blob := e.Context()
	req := assistant.GenerateRequest{
		System: prompts.ContextHeader(blob) + e.cfg.BasePrompt + prompts.ELABORATION_CONTEXT.Text(),
		Prompt: prompts.ELABORATION_PROMPT.Format(text),
	}
	out, err = e.provider.Generate(ctx, req)
	if err != nil {
		err = &ElaborationError{Cause: err}
		e.fail(ctx, err)
		return "", err
	}
	e.em.Emit(ctx, xio.EventElaboration, xio.TextPayload{Text: out, IsFinal: true})
	return out, nil
}

// SetContext replaces the context blob and starts a fresh conversation.
// An empty blob clears the context.
func (e *Engine) SetContext(ctx context.Context, blob string) error {
	if blob == "" {
		return e.ClearContext(ctx)
	}
	return e.applyContext(ctx, "set context", blob, xio.ContextUpdatePayload{
		HasContext: true,
		Preview:    preview(blob),
	})
}

func (e *Engine) ClearContext(ctx context.Context) error {
	return e.applyContext(ctx, "clear context", "", xio.ContextUpdatePayload{HasContext: false})
}

func (e *Engine) applyContext(ctx context.Context, op, blob string, update xio.ContextUpdatePayload) error {
	if err := e.guard(op); err != nil {
		e.fail(ctx, err)
		return err
	}
	e.mu.Lock()
	e.contextBlob = blob
	e.history = nil
	e.generation++
	e.mu.Unlock()

	e.logger.Infof("suggestion: context updated (%d chars)", len(blob))
	e.em.Emit(ctx, xio.EventContextUpdate, update)
	return nil
}

func (e *Engine) guard(op string) error {
	if e.recording.IsRecording() {
		return &ContextBusyError{Operation: op}
	}
	return nil
}

// Context returns the current context blob.
func (e *Engine) Context() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.contextBlob
}

// ChatHistory returns a copy of the conversation so far.
func (e *Engine) ChatHistory() []adapters.ContractMessage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]adapters.ContractMessage(nil), e.history...)
}

// systemInstruction puts the context ahead of the base prompt.
func (e *Engine) systemInstruction(blob string) string {
	return prompts.ContextHeader(blob) + e.cfg.BasePrompt + prompts.CONTEXT_PRIORITY.Text()
}

func (e *Engine) fail(ctx context.Context, err error) {
	kind := ErrorKind(err)
	observability.RecordError(kind, "suggestion")
	e.logger.Warnf("suggestion: %v", err)
	e.em.Emit(ctx, xio.EventError, xio.ErrorPayload{Message: err.Error(), Kind: kind})
}

// MostRecentQuestion finds the last line tagged INTERVIEWER: in a
// transcript.
func MostRecentQuestion(transcript string) string {
	lines := strings.Split(transcript, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if q, ok := strings.CutPrefix(line, "INTERVIEWER:"); ok {
			return strings.TrimSpace(q)
		}
	}
	return ""
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewChars {
		return s
	}
	return string([]rune(s)[:previewChars]) + "..."
}
