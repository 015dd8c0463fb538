package capture

import (
	"context"
	"io"
	"sync"
	"time"
)

// ReaderSource replays audio from any reader, e.g. a recorded file.
// With a non-zero pace it emits one chunk per pace interval.
type ReaderSource struct {
	r          io.Reader
	chunkBytes int
	pace       time.Duration

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	err     error
}

func NewReaderSource(r io.Reader, chunkBytes int, pace time.Duration) *ReaderSource {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	return &ReaderSource{r: r, chunkBytes: chunkBytes, pace: pace}
}

func (s *ReaderSource) Start(ctx context.Context) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, ErrAlreadyStarted
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	out := make(chan []byte, 32)
	go func() {
		defer close(s.done)
		go func() {
			select {
			case <-ctx.Done():
				s.Stop()
			case <-s.done:
			}
		}()

		if err := readChunks(s.r, s.chunkBytes, s.pace, out, s.stop); err != nil {
			s.mu.Lock()
			s.err = &RecordingDeviceError{Cause: err}
			s.mu.Unlock()
		}
	}()
	return out, nil
}

func (s *ReaderSource) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ReaderSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}
