package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// 16 kHz mono s16le, 128 ms per chunk
const DefaultChunkBytes = 4096

// RecordingDeviceError reports a capture utility that failed to start
// or exited on its own.
type RecordingDeviceError struct {
	Cause    error
	ExitCode int
	Stderr   string
}

func (e *RecordingDeviceError) Error() string {
	msg := fmt.Sprintf("recording device error: %v", e.Cause)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RecordingDeviceError) Unwrap() error { return e.Cause }

var ErrAlreadyStarted = errors.New("capture already started")

// Source produces raw little endian 16 bit PCM mono audio.
type Source interface {
	// Start begins capture. The returned channel is closed when capture
	// ends for any reason.
	Start(ctx context.Context) (<-chan []byte, error)
	// Wait blocks until capture has ended. It returns nil after Stop and
	// a *RecordingDeviceError when the device went away on its own.
	Wait() error
	Stop() error
}

// readChunks copies r into out in chunkBytes pieces until r is
// exhausted or stop closes. A trailing short chunk is still delivered.
func readChunks(r io.Reader, chunkBytes int, pace time.Duration, out chan<- []byte, stop <-chan struct{}) error {
	defer close(out)

	var ticker *time.Ticker
	if pace > 0 {
		ticker = time.NewTicker(pace)
		defer ticker.Stop()
	}

	for {
		buf := make([]byte, chunkBytes)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-stop:
					return nil
				}
			}
			select {
			case out <- buf[:n]:
			case <-stop:
				return nil
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
