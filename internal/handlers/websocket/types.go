package websocket

import (
	"encoding/json"
	"strings"

	"github.com/xpanvictor/interm/pkg/io/device"
)

// CommandType names a client to server message.
type CommandType string

const (
	CommandPing              CommandType = "ping"
	CommandStartRecording    CommandType = "start-recording"
	CommandStopRecording     CommandType = "stop-recording"
	CommandRequestSuggestion CommandType = "request-suggestion"
	CommandElaborate         CommandType = "elaborate"
	CommandSetContext        CommandType = "set-context"
	CommandClearContext      CommandType = "clear-context"
	CommandScreenshot        CommandType = "process-screenshot"
)

// EventPong answers CommandPing.
const EventPong = "pong"

// Command is the wire shape of every client message.
type Command struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type TextData struct {
	Text string `json:"text"`
	Raw  bool   `json:"raw,omitempty"`
}

type PathData struct {
	Path string `json:"path"`
}

// ParseCaps reads a comma separated list such as "transcript,text". An
// empty list accepts everything.
func ParseCaps(s string) device.Capabilities {
	if strings.TrimSpace(s) == "" {
		return device.AllCaps
	}
	var caps device.Capabilities
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "transcript":
			caps.TranscriptSink = true
		case "text":
			caps.TextSink = true
		}
	}
	return caps
}
