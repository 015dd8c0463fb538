// Package iotest records presentation events for tests.
package iotest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/io/device"
)

type Event struct {
	SessionID uuid.UUID
	Name      string
	Payload   any
}

// Recorder is both an io.Emitter and a device.Endpoint.
type Recorder struct {
	id uuid.UUID

	mu      sync.Mutex
	events  []Event
	closed  bool
	notify  chan struct{}
	touched time.Time
	// FailSends makes SendEvent return this error.
	FailSends error
}

func NewRecorder() *Recorder {
	return &Recorder{id: uuid.New(), notify: make(chan struct{}, 1)}
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Recorder) Emit(ctx context.Context, name string, payload any) {
	r.record(Event{Name: name, Payload: payload})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns recorded events with the given name, in order.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// WaitFor blocks until n events named name were recorded.
func (r *Recorder) WaitFor(name string, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(r.Named(name)) >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			return len(r.Named(name)) >= n
		}
	}
}

func (r *Recorder) ID() device.EndpointID { return device.EndpointID(r.id) }

func (r *Recorder) Caps() device.Capabilities { return device.AllCaps }

func (r *Recorder) Transport() device.Transport { return device.TransportMemory }

func (r *Recorder) SendEvent(sessionID uuid.UUID, name string, payload any) error {
	r.mu.Lock()
	fail := r.FailSends
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	r.record(Event{SessionID: sessionID, Name: name, Payload: payload})
	return nil
}

func (r *Recorder) Touch() {
	r.mu.Lock()
	r.touched = time.Now()
	r.mu.Unlock()
}

func (r *Recorder) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *Recorder) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touched
}
