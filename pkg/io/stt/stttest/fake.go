// Package stttest provides an in-memory stt.Recognizer for tests.
package stttest

import (
	"context"
	"sync"
	"time"

	"github.com/xpanvictor/interm/pkg/io/stt"
)

type Recognizer struct {
	mu       sync.Mutex
	streams  []*Stream
	openErrs []error
	attempts int
	notify   chan struct{}
}

func NewRecognizer() *Recognizer {
	return &Recognizer{notify: make(chan struct{}, 64)}
}

func (r *Recognizer) Name() string { return "fake" }

// FailNextOpens makes the next len(errs) Open calls fail in order.
func (r *Recognizer) FailNextOpens(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openErrs = append(r.openErrs, errs...)
}

func (r *Recognizer) Open(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	if len(r.openErrs) > 0 {
		err := r.openErrs[0]
		r.openErrs = r.openErrs[1:]
		return nil, err
	}

	s := &Stream{
		Config:  cfg,
		results: make(chan stt.Result, 64),
		errs:    make(chan error, 4),
	}
	r.streams = append(r.streams, s)
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return s, nil
}

// Attempts counts Open calls, failed ones included.
func (r *Recognizer) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *Recognizer) Streams() []*Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Stream(nil), r.streams...)
}

// WaitStream waits until at least n streams were opened and returns the
// n-th one (1 based).
func (r *Recognizer) WaitStream(n int, timeout time.Duration) (*Stream, bool) {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		if len(r.streams) >= n {
			s := r.streams[n-1]
			r.mu.Unlock()
			return s, true
		}
		r.mu.Unlock()

		select {
		case <-r.notify:
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			return nil, false
		}
	}
}

// Stream records every chunk sent and lets tests script results.
type Stream struct {
	Config stt.StreamConfig

	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	linger  bool
	results chan stt.Result
	errs    chan error
}

func (s *Stream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stt.ErrStreamClosed
	}
	s.sent = append(s.sent, append([]byte(nil), chunk...))
	return nil
}

func (s *Stream) Results() <-chan stt.Result { return s.results }

func (s *Stream) Errors() <-chan error { return s.errs }

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		if !s.linger {
			close(s.results)
		}
	}
	return nil
}

// Linger keeps Results open after Close, the way a service may still
// flush results for audio it already received.
func (s *Stream) Linger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linger = true
}

// Emit delivers a result as if the service produced it. It is a no-op
// once the stream is closed, unless it lingers.
func (s *Stream) Emit(r stt.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && !s.linger {
		return
	}
	s.results <- r
}

// Fail delivers a terminal error.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.errs <- err
}

func (s *Stream) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WaitSent waits until at least n chunks were sent.
func (s *Stream) WaitSent(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(s.Sent()) >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return len(s.Sent()) >= n
}

// FinalResult builds a final result with per word speaker tags.
func FinalResult(text string, end time.Duration, words ...stt.Word) stt.Result {
	return stt.Result{
		Alternatives:  []stt.Alternative{{Transcript: text, Words: words}},
		IsFinal:       true,
		ResultEndTime: end,
	}
}

func InterimResult(text string, end time.Duration) stt.Result {
	return stt.Result{
		Alternatives:  []stt.Alternative{{Transcript: text}},
		ResultEndTime: end,
	}
}
