package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/stt"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// google.rpc.Code OUT_OF_RANGE, sent when a stream outlives its limit
const codeDurationExceeded = int32(codes.OutOfRange)

const sendQueueSize = 256

// how long Close lets queued audio drain before cancelling the stream
const closeFlushTimeout = time.Second

// recognizeClient is the slice of the generated gRPC stream we use.
type recognizeClient interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

type Recognizer struct {
	client *speech.Client
	logger *Logger.Logger
}

// New dials Cloud Speech. With an empty apiKey, application default
// credentials are used.
func New(ctx context.Context, apiKey string, logger *Logger.Logger) (*Recognizer, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &Recognizer{client: client, logger: logger.Named("stt.google")}, nil
}

func (r *Recognizer) Name() string { return "google" }

// Open implements stt.Recognizer.
func (r *Recognizer) Open(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	sctx, cancel := context.WithCancel(ctx)
	grpcStream, err := r.client.StreamingRecognize(sctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open recognize stream: %w", err)
	}

	s, err := newStream(grpcStream, cfg, cancel, r.logger)
	if err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (r *Recognizer) Close() error {
	return r.client.Close()
}

type stream struct {
	rc     recognizeClient
	cancel context.CancelFunc
	logger *Logger.Logger

	mu     sync.Mutex
	closed bool
	ended  atomic.Bool
	sendCh chan []byte

	results    chan stt.Result
	errs       chan error
	writerDone chan struct{}
	closeOnce  sync.Once

	flushTimeout time.Duration
}

func newStream(rc recognizeClient, cfg stt.StreamConfig, cancel context.CancelFunc, logger *Logger.Logger) (*stream, error) {
	if err := rc.Send(configRequest(cfg)); err != nil {
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &stream{
		rc:         rc,
		cancel:     cancel,
		logger:     logger,
		sendCh:     make(chan []byte, sendQueueSize),
		results:    make(chan stt.Result, 64),
		errs:       make(chan error, 1),
		writerDone: make(chan struct{}),

		flushTimeout: closeFlushTimeout,
	}
	go s.writeLoop()
	go s.readLoop()
	return s, nil
}

func configRequest(cfg stt.StreamConfig) *speechpb.StreamingRecognizeRequest {
	rc := &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: cfg.SampleRateHz,
		LanguageCode:    cfg.LanguageCode,
	}
	if cfg.Diarization.Enabled {
		rc.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          cfg.Diarization.MinSpeakers,
			MaxSpeakerCount:          cfg.Diarization.MaxSpeakers,
		}
	}

	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         rc,
				InterimResults: cfg.InterimResults,
			},
		},
	}
}

// Send implements stt.Stream.
func (s *stream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.ended.Load() {
		return stt.ErrStreamClosed
	}
	select {
	case s.sendCh <- chunk:
		return nil
	default:
		return stt.ErrSendQueueFull
	}
}

func (s *stream) Results() <-chan stt.Result { return s.results }

func (s *stream) Errors() <-chan error { return s.errs }

// Close implements stt.Stream. Safe to call more than once. Queued audio
// gets flushTimeout to drain; a send stuck on flow control is released by
// cancelling the stream context.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.sendCh)
		s.mu.Unlock()

		timer := time.NewTimer(s.flushTimeout)
		defer timer.Stop()
		select {
		case <-s.writerDone:
		case <-timer.C:
			s.logger.Warnf("audio flush timed out after %s, cancelling stream", s.flushTimeout)
		}
		s.cancel()
		<-s.writerDone
	})
	return nil
}

func (s *stream) writeLoop() {
	defer close(s.writerDone)

	for chunk := range s.sendCh {
		if s.ended.Load() {
			continue
		}
		err := s.rc.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
		})
		if err != nil {
			// io.EOF means the server already hung up, Recv has the reason
			if !errors.Is(err, io.EOF) {
				s.logger.Warnf("audio send failed: %v", err)
			}
			s.ended.Store(true)
		}
	}
	if err := s.rc.CloseSend(); err != nil {
		s.logger.Debugf("close send: %v", err)
	}
}

func (s *stream) readLoop() {
	defer close(s.results)
	defer s.ended.Store(true)

	for {
		resp, err := s.rc.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.fail(mapError(err))
			return
		}

		if code := resp.GetError().GetCode(); code != 0 {
			if code == codeDurationExceeded {
				s.fail(stt.ErrStreamDurationExceeded)
			} else {
				s.fail(fmt.Errorf("recognition error %d: %s", code, resp.GetError().GetMessage()))
			}
			return
		}

		for _, res := range convertResponse(resp) {
			s.results <- res
		}
	}
}

func (s *stream) fail(err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		// we asked for this, nobody is listening for the reason
		return
	}
	select {
	case s.errs <- err:
	default:
	}
}

func mapError(err error) error {
	if status.Code(err) == codes.OutOfRange {
		return fmt.Errorf("%w: %v", stt.ErrStreamDurationExceeded, err)
	}
	return err
}

func convertResponse(resp *speechpb.StreamingRecognizeResponse) []stt.Result {
	out := make([]stt.Result, 0, len(resp.GetResults()))
	for _, res := range resp.GetResults() {
		r := stt.Result{
			IsFinal:       res.GetIsFinal(),
			ResultEndTime: res.GetResultEndTime().AsDuration(),
		}
		for _, alt := range res.GetAlternatives() {
			a := stt.Alternative{
				Transcript: alt.GetTranscript(),
				Confidence: alt.GetConfidence(),
			}
			for _, w := range alt.GetWords() {
				a.Words = append(a.Words, stt.Word{
					Word:       w.GetWord(),
					SpeakerTag: int(w.GetSpeakerTag()),
				})
			}
			r.Alternatives = append(r.Alternatives, a)
		}
		out = append(out, r)
	}
	return out
}
