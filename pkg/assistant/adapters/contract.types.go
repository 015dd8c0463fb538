package adapters

import (
	"time"

	"github.com/google/uuid"
)

type MsgRole string

const (
	USER      MsgRole = "user"
	ASSISTANT MsgRole = "assistant"
	SYSTEM    MsgRole = "system"
)

type ContractMessage struct {
	Role      MsgRole
	Content   string
	CreatedAt time.Time
}

// response is by default a stream
type ContractResponseDelta struct {
	Msg       *ContractMessage
	Error     error
	Index     uint
	Done      bool
	CreatedAt time.Time
}

type ContractResponseChannel chan []ContractResponseDelta

type ContractResponse struct {
	ID        uuid.UUID
	StartedAt time.Time
	// Text is the full concatenated output.
	Text  string
	Error error
	Done  bool
}

// Join concatenates the message text of a batch of deltas.
func Join(deltas []ContractResponseDelta) string {
	var out string
	for _, d := range deltas {
		if d.Msg != nil {
			out += d.Msg.Content
		}
	}
	return out
}
