package deepgram

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/stt"
)

// callbackHandler embeds the SDK default and only overrides what we use.
type callbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onError   func(*msginterfaces.ErrorResponse)
}

func (c *callbackHandler) Message(msg *msginterfaces.MessageResponse) error {
	c.onMessage(msg)
	return nil
}

func (c *callbackHandler) Error(er *msginterfaces.ErrorResponse) error {
	c.onError(er)
	return nil
}

// Recognizer streams audio to Deepgram's live transcription API.
type Recognizer struct {
	apiKey string
	model  string
	logger *Logger.Logger
}

func New(apiKey, model string, logger *Logger.Logger) *Recognizer {
	if model == "" {
		model = "nova-2"
	}
	return &Recognizer{apiKey: apiKey, model: model, logger: logger.Named("stt.deepgram")}
}

func (r *Recognizer) Name() string { return "deepgram" }

func (r *Recognizer) Open(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not configured")
	}

	sctx, cancel := context.WithCancel(ctx)
	s := newStream(cancel, r.logger)

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          r.model,
		Language:       cfg.LanguageCode,
		Punctuate:      true,
		InterimResults: cfg.InterimResults,
		Diarize:        cfg.Diarization.Enabled,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     int(cfg.SampleRateHz),
	}

	callback := &callbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage:              s.handleMessage,
		onError:                s.handleError,
	}

	client, err := listenClient.NewWSUsingCallback(sctx, r.apiKey, nil, tOptions, callback)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create deepgram client: %w", err)
	}
	if !client.Connect() {
		cancel()
		return nil, fmt.Errorf("failed to connect to deepgram")
	}
	s.client = client
	return s, nil
}

type stream struct {
	client *listenClient.WSCallback
	cancel context.CancelFunc
	logger *Logger.Logger

	mu      sync.Mutex
	closed  bool
	results chan stt.Result
	errs    chan error
}

func newStream(cancel context.CancelFunc, logger *Logger.Logger) *stream {
	return &stream{
		cancel:  cancel,
		logger:  logger,
		results: make(chan stt.Result, 64),
		errs:    make(chan error, 1),
	}
}

func (s *stream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stt.ErrStreamClosed
	}
	if _, err := s.client.Write(chunk); err != nil {
		return fmt.Errorf("failed to send audio to deepgram: %w", err)
	}
	return nil
}

func (s *stream) Results() <-chan stt.Result { return s.results }

func (s *stream) Errors() <-chan error { return s.errs }

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.client != nil {
		s.client.Finish()
	}
	s.cancel()
	close(s.results)
	return nil
}

func (s *stream) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil || msg.Type != "Results" {
		return
	}
	res, ok := convertMessage(msg)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.results <- res:
	default:
		s.logger.Warn("result channel full, dropping transcript")
	}
}

func (s *stream) handleError(er *msginterfaces.ErrorResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.errs <- fmt.Errorf("deepgram: %+v", *er):
	default:
	}
}

// convertMessage maps a Deepgram result onto stt.Result. Deepgram
// speakers are zero based, tags here start at one.
func convertMessage(msg *msginterfaces.MessageResponse) (stt.Result, bool) {
	if len(msg.Channel.Alternatives) == 0 {
		return stt.Result{}, false
	}
	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return stt.Result{}, false
	}

	a := stt.Alternative{Transcript: alt.Transcript, Confidence: float32(alt.Confidence)}
	for _, w := range alt.Words {
		tag := 0
		if w.Speaker != nil {
			tag = *w.Speaker + 1
		}
		a.Words = append(a.Words, stt.Word{Word: w.Word, SpeakerTag: tag})
	}

	end := time.Duration((msg.Start + msg.Duration) * float64(time.Second))
	return stt.Result{
		Alternatives:  []stt.Alternative{a},
		IsFinal:       msg.IsFinal,
		ResultEndTime: end,
	}, true
}
