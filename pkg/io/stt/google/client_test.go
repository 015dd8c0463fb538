package google

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/stt"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

type fakeClient struct {
	mu        sync.Mutex
	sent      []*speechpb.StreamingRecognizeRequest
	closeSent bool
	responses chan *speechpb.StreamingRecognizeResponse
	recvErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: make(chan *speechpb.StreamingRecognizeResponse, 8)}
}

func (f *fakeClient) Send(req *speechpb.StreamingRecognizeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeClient) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	resp, ok := <-f.responses
	if !ok {
		if f.recvErr != nil {
			return nil, f.recvErr
		}
		return nil, io.EOF
	}
	return resp, nil
}

func (f *fakeClient) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSent = true
	return nil
}

func (f *fakeClient) requests() []*speechpb.StreamingRecognizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*speechpb.StreamingRecognizeRequest(nil), f.sent...)
}

func TestStreamSendsConfigFirst(t *testing.T) {
	fc := newFakeClient()
	s, err := newStream(fc, stt.DefaultStreamConfig(), func() {}, Logger.NewNop())
	if err != nil {
		t.Fatalf("newStream failed: %v", err)
	}

	if err := s.Send([]byte{1, 2}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	_ = s.Close()

	reqs := fc.requests()
	if len(reqs) != 2 {
		t.Fatalf("Expected config + 1 audio request, got %d", len(reqs))
	}
	cfg := reqs[0].GetStreamingConfig()
	if cfg == nil {
		t.Fatal("First request must carry the streaming config")
	}
	if cfg.GetConfig().GetSampleRateHertz() != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", cfg.GetConfig().GetSampleRateHertz())
	}
	if !cfg.GetConfig().GetDiarizationConfig().GetEnableSpeakerDiarization() {
		t.Error("Expected diarization enabled")
	}
	if !cfg.GetInterimResults() {
		t.Error("Expected interim results")
	}
	if string(reqs[1].GetAudioContent()) != string([]byte{1, 2}) {
		t.Errorf("Unexpected audio payload %v", reqs[1].GetAudioContent())
	}
	if !fc.closeSent {
		t.Error("Expected CloseSend after Close")
	}

	if err := s.Send([]byte{3}); !errors.Is(err, stt.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed after Close, got %v", err)
	}
	close(fc.responses)
}

func TestStreamDeliversResults(t *testing.T) {
	fc := newFakeClient()
	s, err := newStream(fc, stt.DefaultStreamConfig(), func() {}, Logger.NewNop())
	if err != nil {
		t.Fatalf("newStream failed: %v", err)
	}
	defer s.Close()

	fc.responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:       true,
			ResultEndTime: durationpb.New(2500 * time.Millisecond),
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "hello there",
				Words: []*speechpb.WordInfo{
					{Word: "hello", SpeakerTag: 1},
					{Word: "there", SpeakerTag: 2},
				},
			}},
		}},
	}
	close(fc.responses)

	var got []stt.Result
	for r := range s.Results() {
		got = append(got, r)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(got))
	}
	r := got[0]
	if !r.IsFinal || r.Transcript() != "hello there" {
		t.Errorf("Unexpected result %+v", r)
	}
	if r.ResultEndTime != 2500*time.Millisecond {
		t.Errorf("Expected 2.5s end time, got %v", r.ResultEndTime)
	}
	if w := r.Alternatives[0].Words; len(w) != 2 || w[1].SpeakerTag != 2 {
		t.Errorf("Speaker tags lost: %+v", w)
	}
}

func TestStreamMapsDurationExceeded(t *testing.T) {
	fc := newFakeClient()
	fc.recvErr = status.Error(codes.OutOfRange, "exceeded maximum allowed stream duration")
	s, err := newStream(fc, stt.DefaultStreamConfig(), func() {}, Logger.NewNop())
	if err != nil {
		t.Fatalf("newStream failed: %v", err)
	}
	defer s.Close()
	close(fc.responses)

	select {
	case err := <-s.Errors():
		if !errors.Is(err, stt.ErrStreamDurationExceeded) {
			t.Errorf("Expected ErrStreamDurationExceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("No error delivered")
	}
}

func TestStreamMapsInBandErrorCode(t *testing.T) {
	fc := newFakeClient()
	s, err := newStream(fc, stt.DefaultStreamConfig(), func() {}, Logger.NewNop())
	if err != nil {
		t.Fatalf("newStream failed: %v", err)
	}
	defer s.Close()

	fc.responses <- &speechpb.StreamingRecognizeResponse{
		Error: &rpcstatus.Status{Code: 11, Message: "too long"},
	}

	select {
	case err := <-s.Errors():
		if !errors.Is(err, stt.ErrStreamDurationExceeded) {
			t.Errorf("Expected ErrStreamDurationExceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("No error delivered")
	}
	close(fc.responses)
}

// stalledClient blocks audio sends until the stream context is cancelled,
// the way a gRPC send does when flow control never frees up.
type stalledClient struct {
	*fakeClient
	ctx context.Context
}

func (c *stalledClient) Send(req *speechpb.StreamingRecognizeRequest) error {
	if req.GetAudioContent() == nil {
		return c.fakeClient.Send(req)
	}
	<-c.ctx.Done()
	return c.ctx.Err()
}

func TestCloseReleasesStalledSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := &stalledClient{fakeClient: newFakeClient(), ctx: ctx}
	s, err := newStream(fc, stt.DefaultStreamConfig(), cancel, Logger.NewNop())
	if err != nil {
		t.Fatalf("newStream failed: %v", err)
	}
	s.flushTimeout = 20 * time.Millisecond

	if err := s.Send([]byte{1, 2}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung on a stalled send")
	}
	if ctx.Err() == nil {
		t.Error("Expected the stream context to be cancelled")
	}
	close(fc.responses)
}
