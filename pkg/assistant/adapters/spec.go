package adapters

import (
	"context"
	"time"
)

type ContractLLMCfg struct {
	DeltaBufferLimit  uint
	DeltaTimeDuration time.Duration
}

// StreamFunc runs one streamed generation, calling onChunk for every
// piece of text, and returns the full text.
type StreamFunc func(ctx context.Context, onChunk func(chunk string) error) (string, error)

type ContractAdapter interface {
	// Process runs fn and batches its chunks into rc, flushing when the
	// buffer is full or the delta timer fires. rc is closed on return.
	Process(ctx context.Context, fn StreamFunc, rc ContractResponseChannel) ContractResponse
}
