package device

import (
	"time"

	"github.com/google/uuid"
)

type Transport string

const (
	TransportWS  Transport = "ws"
	TransportTUI Transport = "tui"
	// in-process sinks such as test recorders
	TransportMemory Transport = "memory"
)

type Capabilities struct {
	TranscriptSink bool // live transcript events
	TextSink       bool // suggestions, elaborations, screenshot results
}

// AllCaps accepts every event.
var AllCaps = Capabilities{TranscriptSink: true, TextSink: true}

// Accepts reports whether an event with this name should reach the sink.
// Status, context and error events always go through.
func (c Capabilities) Accepts(name string) bool {
	switch name {
	case "transcript":
		return c.TranscriptSink
	case "suggestion", "suggestion-chunk", "elaboration", "screenshot-processed":
		return c.TextSink
	}
	return true
}

type EndpointID uuid.UUID

type Endpoint interface {
	// Identity
	ID() EndpointID
	Caps() Capabilities
	Transport() Transport
	// abstraction for publisher
	SendEvent(sessionID uuid.UUID, name string, payload any) error
	Touch()
	// lifecyle
	IsAlive() bool
	Close() error
	LastActive() time.Time
}

type Device struct {
	UserID     uuid.UUID
	DeviceID   uuid.UUID
	SessionID  uuid.UUID
	Caps       Capabilities
	LastActive time.Time
	// each device can handle multiple endpoints (ws, tui)
	Endpoints map[EndpointID]Endpoint
}
