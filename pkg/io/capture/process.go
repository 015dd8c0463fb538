package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/xpanvictor/interm/pkg/Logger"
)

// ProcessSource reads audio from the stdout of an external capture
// utility such as sox `rec` or `arecord`.
type ProcessSource struct {
	command    string
	args       []string
	chunkBytes int
	logger     *Logger.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stop    chan struct{}
	stopped bool
	done    chan struct{}
	waitErr error
}

func NewProcessSource(command string, args []string, chunkBytes int, logger *Logger.Logger) *ProcessSource {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	return &ProcessSource{
		command:    command,
		args:       args,
		chunkBytes: chunkBytes,
		logger:     logger.Named("capture"),
	}
}

func (p *ProcessSource) Start(ctx context.Context) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && !p.stopped {
		return nil, ErrAlreadyStarted
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &RecordingDeviceError{Cause: err}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &RecordingDeviceError{Cause: fmt.Errorf("failed to start %s: %w", p.command, err)}
	}
	p.logger.Infof("capture started: %s %s (pid %d)", p.command, strings.Join(p.args, " "), cmd.Process.Pid)

	p.cmd = cmd
	p.stop = make(chan struct{})
	p.stopped = false
	p.done = make(chan struct{})
	p.waitErr = nil

	out := make(chan []byte, 32)
	stop, done := p.stop, p.done
	go func() {
		defer close(done)

		readErr := readChunks(stdout, p.chunkBytes, 0, out, stop)
		exitErr := cmd.Wait()

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		switch {
		case exitErr != nil:
			rde := &RecordingDeviceError{Cause: exitErr, Stderr: strings.TrimSpace(stderr.String())}
			var ee *exec.ExitError
			if errors.As(exitErr, &ee) {
				rde.ExitCode = ee.ExitCode()
			}
			p.waitErr = rde
		case readErr != nil:
			p.waitErr = &RecordingDeviceError{Cause: readErr}
		default:
			p.waitErr = &RecordingDeviceError{Cause: errors.New("capture process exited")}
		}
		p.logger.Errorf("capture ended unexpectedly: %v", p.waitErr)
	}()

	return out, nil
}

func (p *ProcessSource) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	<-done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Stop kills the capture process. Safe to call when not running.
func (p *ProcessSource) Stop() error {
	p.mu.Lock()
	if p.cmd == nil || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stop)
	cmd := p.cmd
	p.mu.Unlock()

	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warnf("failed to kill capture process: %v", err)
		}
	}
	return nil
}
