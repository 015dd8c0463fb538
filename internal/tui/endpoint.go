package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/xpanvictor/interm/pkg/io/device"
)

// EventMsg carries one published event into the bubbletea loop.
type EventMsg struct {
	SessionID uuid.UUID
	Name      string
	Payload   any
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

type tuiEndpoint struct {
	id     uuid.UUID
	sender Sender

	mu         sync.RWMutex
	lastActive time.Time
	closed     bool
}

// NewEndpoint returns a device endpoint that forwards events to a running
// program.
func NewEndpoint(s Sender) device.Endpoint {
	return &tuiEndpoint{id: uuid.New(), sender: s, lastActive: time.Now()}
}

func (t *tuiEndpoint) ID() device.EndpointID { return device.EndpointID(t.id) }

func (t *tuiEndpoint) Caps() device.Capabilities { return device.AllCaps }

func (t *tuiEndpoint) Transport() device.Transport { return device.TransportTUI }

func (t *tuiEndpoint) SendEvent(sessionID uuid.UUID, name string, payload any) error {
	if !t.IsAlive() {
		return errEndpointClosed
	}
	t.sender.Send(EventMsg{SessionID: sessionID, Name: name, Payload: payload})
	return nil
}

func (t *tuiEndpoint) Touch() {
	t.mu.Lock()
	t.lastActive = time.Now()
	t.mu.Unlock()
}

func (t *tuiEndpoint) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed
}

func (t *tuiEndpoint) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *tuiEndpoint) LastActive() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastActive
}
