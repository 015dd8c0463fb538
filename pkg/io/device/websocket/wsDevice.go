package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xpanvictor/interm/pkg/io/device"
)

const writeWait = 5 * time.Second

// Frame is the wire shape of every event pushed to a browser client.
type Frame struct {
	Name      string    `json:"name"`
	SessionID uuid.UUID `json:"sessionId"`
	Payload   any       `json:"payload"`
}

type wsEndpoint struct {
	id     uuid.UUID
	client *websocket.Conn
	caps   device.Capabilities

	// gorilla allows one concurrent writer
	writeMu    sync.Mutex
	mu         sync.RWMutex
	lastActive time.Time
	closed     bool
}

// Caps implements device.Endpoint.
func (w *wsEndpoint) Caps() device.Capabilities {
	return w.caps
}

// Close implements device.Endpoint.
func (w *wsEndpoint) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.writeMu.Lock()
	_ = w.client.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	w.writeMu.Unlock()
	return w.client.Close()
}

// ID implements device.Endpoint.
func (w *wsEndpoint) ID() device.EndpointID {
	return device.EndpointID(w.id)
}

func (w *wsEndpoint) Touch() {
	w.mu.Lock()
	w.lastActive = time.Now()
	w.mu.Unlock()
}

// IsAlive implements device.Endpoint with a ping.
func (w *wsEndpoint) IsAlive() bool {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return false
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)) == nil
}

// LastActive implements device.Endpoint.
func (w *wsEndpoint) LastActive() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastActive
}

// SendEvent implements device.Endpoint.
func (w *wsEndpoint) SendEvent(sessionID uuid.UUID, name string, payload any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = w.client.SetWriteDeadline(time.Now().Add(writeWait))
	return w.client.WriteJSON(Frame{Name: name, SessionID: sessionID, Payload: payload})
}

// Transport implements device.Endpoint.
func (w *wsEndpoint) Transport() device.Transport {
	return device.TransportWS
}

func New(client *websocket.Conn, caps device.Capabilities) device.Endpoint {
	return &wsEndpoint{
		id:         uuid.New(),
		client:     client,
		caps:       caps,
		lastActive: time.Now(),
	}
}
