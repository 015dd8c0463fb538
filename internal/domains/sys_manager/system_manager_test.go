package sys_manager

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xpanvictor/interm/internal/domains/recognition"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/domains/transcript"
	"github.com/xpanvictor/interm/internal/models/processor"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
	"github.com/xpanvictor/interm/pkg/assistant/assistanttest"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/io/capture"
	"github.com/xpanvictor/interm/pkg/io/iotest"
	"github.com/xpanvictor/interm/pkg/io/stt"
	"github.com/xpanvictor/interm/pkg/io/stt/stttest"
	"github.com/xpanvictor/interm/pkg/resilience"
)

const waitFor = 2 * time.Second

type fakeSource struct {
	startErr error

	once    sync.Once
	mu      sync.Mutex
	chunks  chan []byte
	waitErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{chunks: make(chan []byte, 16)}
}

func (f *fakeSource) Start(ctx context.Context) (<-chan []byte, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.chunks, nil
}

func (f *fakeSource) Wait() error {
	for range f.chunks {
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitErr
}

func (f *fakeSource) Stop() error {
	f.once.Do(func() { close(f.chunks) })
	return nil
}

// crash ends capture the way a dying recorder process would.
func (f *fakeSource) crash(err error) {
	f.mu.Lock()
	f.waitErr = err
	f.mu.Unlock()
	f.Stop()
}

type timingRepo struct {
	mu      sync.Mutex
	timings []session.SessionTiming
}

func (r *timingRepo) SaveContext(ctx context.Context, rec *session.ContextRecord) error {
	return nil
}

func (r *timingRepo) GetLatestContext(ctx context.Context, userID string) (*session.ContextRecord, error) {
	return nil, nil
}

func (r *timingRepo) DeleteContexts(ctx context.Context, userID string) error {
	return nil
}

func (r *timingRepo) SaveSessionTiming(ctx context.Context, t *session.SessionTiming) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, *t)
	return nil
}

func (r *timingRepo) ListSessionTimings(ctx context.Context, userID string, limit int) ([]session.SessionTiming, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.SessionTiming(nil), r.timings...), nil
}

type fixture struct {
	ctrl     *Controller
	rec      *stttest.Recognizer
	events   *iotest.Recorder
	provider *assistanttest.Provider
	repo     *timingRepo
}

func newFixture(t *testing.T, limit time.Duration, newSource SourceFactory) *fixture {
	t.Helper()
	rcfg := recognition.DefaultConfig()
	rcfg.StreamingLimit = limit
	rcfg.RestartSettle = time.Millisecond
	rcfg.OpenRetry = &resilience.RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}

	scfg := suggestion.DefaultConfig()
	scfg.Delta = adapters.ContractLLMCfg{DeltaBufferLimit: 1, DeltaTimeDuration: time.Hour}

	f := &fixture{
		rec:      stttest.NewRecognizer(),
		events:   iotest.NewRecorder(),
		provider: assistanttest.New("Use a token bucket."),
		repo:     &timingRepo{},
	}
	manager := recognition.New(rcfg, f.rec, Logger.NewNop())
	engine := suggestion.New(scfg, f.provider, processor.New(f.provider, Logger.NewNop()), f.repo, f.events, Logger.NewNop())
	f.ctrl = New(Config{UserID: "u1", PersistTimeout: 100 * time.Millisecond}, newSource, manager, engine, f.repo, f.events, Logger.NewNop())
	t.Cleanup(f.ctrl.Close)
	return f
}

func statuses(r *iotest.Recorder) []bool {
	var out []bool
	for _, ev := range r.Named(xio.EventRecordingStatus) {
		out = append(out, ev.Payload.(xio.RecordingStatusPayload).IsRecording)
	}
	return out
}

func TestRecordingLifecycle(t *testing.T) {
	src := newFakeSource()
	f := newFixture(t, time.Minute, func() capture.Source { return src })
	ctx := context.Background()

	if err := f.ctrl.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := f.ctrl.StartRecording(ctx); err != nil {
		t.Fatalf("Repeat StartRecording failed: %v", err)
	}
	if !f.ctrl.IsRecording() {
		t.Fatal("Expected recording")
	}

	stream, ok := f.rec.WaitStream(1, waitFor)
	if !ok {
		t.Fatal("Stream never opened")
	}
	src.chunks <- []byte{1, 2, 3, 4}
	deadline := time.Now().Add(waitFor)
	for len(stream.Sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(stream.Sent()) == 0 {
		t.Error("Captured audio never reached the stream")
	}

	stream.Emit(stt.Result{
		Alternatives: []stt.Alternative{{
			Transcript: "how would you design a rate limiter",
			Words:      []stt.Word{{Word: "how", SpeakerTag: 1}},
		}},
		IsFinal: true,
	})
	if !f.events.WaitFor(xio.EventTranscript, 1, waitFor) {
		t.Fatal("No transcript event")
	}
	te := f.events.Named(xio.EventTranscript)[0].Payload.(transcript.TranscriptEvent)
	if !te.IsFinal || !te.SpeakerInfo.HasSpeakerInfo {
		t.Errorf("Unexpected transcript event %+v", te)
	}

	var busy *suggestion.ContextBusyError
	if err := f.ctrl.SetContext(ctx, "resume", false); !errors.As(err, &busy) {
		t.Errorf("Expected ContextBusyError while recording, got %v", err)
	}

	if err := f.ctrl.StopRecording(ctx); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if err := f.ctrl.StopRecording(ctx); err != nil {
		t.Fatalf("Repeat StopRecording failed: %v", err)
	}
	if got := statuses(f.events); len(got) != 2 || !got[0] || got[1] {
		t.Errorf("Expected recording-status true then false, got %v", got)
	}
	if f.ctrl.Session().IsActive {
		t.Error("Session still marked active")
	}

	f.ctrl.Close()
	timings, _ := f.ctrl.SessionTimings(ctx, 10)
	if len(timings) != 1 || timings[0].UserID != "u1" {
		t.Errorf("Expected one saved timing, got %+v", timings)
	}
}

func TestSuggestionDefaultsToLastFinal(t *testing.T) {
	src := newFakeSource()
	f := newFixture(t, time.Minute, func() capture.Source { return src })
	ctx := context.Background()

	if err := f.ctrl.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	stream, ok := f.rec.WaitStream(1, waitFor)
	if !ok {
		t.Fatal("Stream never opened")
	}
	stream.Emit(stt.Result{Alternatives: []stt.Alternative{{Transcript: "how would you design a rate limiter"}}, IsFinal: true})
	if !f.events.WaitFor(xio.EventTranscript, 1, waitFor) {
		t.Fatal("No transcript event")
	}

	text, err := f.ctrl.RequestSuggestion(ctx, "")
	if err != nil {
		t.Fatalf("RequestSuggestion failed: %v", err)
	}
	if text != "Use a token bucket." {
		t.Errorf("Unexpected suggestion %q", text)
	}
	calls := f.provider.Calls()
	if len(calls) != 1 || calls[0].Request.Prompt != "how would you design a rate limiter" {
		t.Errorf("Expected last final as prompt, got %+v", calls)
	}
}

func TestCaptureStartFailure(t *testing.T) {
	src := newFakeSource()
	src.startErr = errors.New("no input device")
	f := newFixture(t, time.Minute, func() capture.Source { return src })

	err := f.ctrl.StartRecording(context.Background())
	var devErr *capture.RecordingDeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Expected RecordingDeviceError, got %v", err)
	}
	if f.ctrl.IsRecording() {
		t.Error("Expected not recording")
	}
	if f.rec.Attempts() != 0 {
		t.Error("Recognition should not start without capture")
	}
	errs := f.events.Named(xio.EventError)
	if len(errs) != 1 || errs[0].Payload.(xio.ErrorPayload).Kind != "recording_device" {
		t.Errorf("Expected a recording_device error event, got %+v", errs)
	}
	if got := statuses(f.events); len(got) != 1 || got[0] {
		t.Errorf("Expected recording-status false, got %v", got)
	}
}

func TestCaptureCrashForcesIdle(t *testing.T) {
	src := newFakeSource()
	f := newFixture(t, time.Minute, func() capture.Source { return src })

	if err := f.ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	src.crash(&capture.RecordingDeviceError{Cause: errors.New("exit status 1"), ExitCode: 1})

	if !f.events.WaitFor(xio.EventRecordingStatus, 2, waitFor) {
		t.Fatal("Recording never stopped")
	}
	if f.ctrl.IsRecording() {
		t.Error("Expected not recording after crash")
	}
	errs := f.events.Named(xio.EventError)
	if len(errs) != 1 || errs[0].Payload.(xio.ErrorPayload).Kind != "recording_device" {
		t.Errorf("Expected a recording_device error event, got %+v", errs)
	}
	deadline := time.Now().Add(waitFor)
	for f.ctrl.Status().State != string(recognition.Idle) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st := f.ctrl.Status().State; st != string(recognition.Idle) {
		t.Errorf("Expected manager idle, got %s", st)
	}
}

func TestDrainedSourceStopsRecording(t *testing.T) {
	f := newFixture(t, time.Minute, func() capture.Source {
		return capture.NewReaderSource(bytes.NewReader(make([]byte, 64)), 16, 0)
	})

	if err := f.ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if !f.events.WaitFor(xio.EventRecordingStatus, 2, waitFor) {
		t.Fatal("Recording never stopped")
	}
	if len(f.events.Named(xio.EventError)) != 0 {
		t.Error("A drained source is not an error")
	}

	// a new source per recording
	if err := f.ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("Second StartRecording failed: %v", err)
	}
	if !f.events.WaitFor(xio.EventRecordingStatus, 4, waitFor) {
		t.Fatal("Second recording never stopped")
	}
}

func TestRecognitionFailureStopsRecording(t *testing.T) {
	src := newFakeSource()
	f := newFixture(t, 50*time.Millisecond, func() capture.Source { return src })

	if err := f.ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if _, ok := f.rec.WaitStream(1, waitFor); !ok {
		t.Fatal("Stream never opened")
	}
	f.rec.FailNextOpens(errors.New("unavailable"), errors.New("unavailable"))

	if !f.events.WaitFor(xio.EventRecordingStatus, 2, waitFor) {
		t.Fatal("Recording never stopped")
	}
	if f.ctrl.IsRecording() {
		t.Error("Expected not recording")
	}
	if !f.events.WaitFor(xio.EventError, 1, waitFor) {
		t.Fatal("No error event")
	}
	if kind := f.events.Named(xio.EventError)[0].Payload.(xio.ErrorPayload).Kind; kind != "transcription_api" {
		t.Errorf("Expected transcription_api error, got %s", kind)
	}
}

func TestReadyEmitsEvent(t *testing.T) {
	f := newFixture(t, time.Minute, func() capture.Source { return newFakeSource() })

	f.ctrl.Ready(context.Background())
	ready := f.events.Named(xio.EventReady)
	if len(ready) != 1 || !ready[0].Payload.(xio.ReadyPayload).IsReady {
		t.Errorf("Expected ready event, got %+v", ready)
	}
}
