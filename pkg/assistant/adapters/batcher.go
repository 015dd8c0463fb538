package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type batchAdapter struct {
	cfg ContractLLMCfg
}

// New returns an adapter that groups streamed chunks into timed batches.
func New(cfg ContractLLMCfg) ContractAdapter {
	if cfg.DeltaTimeDuration == 0 {
		cfg.DeltaTimeDuration = 150 * time.Millisecond
	}
	if cfg.DeltaBufferLimit == 0 {
		cfg.DeltaBufferLimit = 24
	}
	return &batchAdapter{cfg: cfg}
}

func (b *batchAdapter) Process(ctx context.Context, fn StreamFunc, rc ContractResponseChannel) ContractResponse {
	genID, err := uuid.NewUUID()
	if err != nil {
		close(rc)
		return ContractResponse{Error: fmt.Errorf("failed to generate UUID: %w", err)}
	}
	startedAt := time.Now()
	defer close(rc)

	var (
		mu  sync.Mutex
		buf = make([]ContractResponseDelta, 0, int(b.cfg.DeltaBufferLimit))
		seq uint
	)

	// flush hands the current buffer to rc. Callers hold mu.
	flush := func() {
		if len(buf) == 0 {
			return
		}
		snapshot := make([]ContractResponseDelta, len(buf))
		copy(snapshot, buf)
		select {
		case <-ctx.Done():
		case rc <- snapshot:
		}
		buf = buf[:0]
	}

	ctx2, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(b.cfg.DeltaTimeDuration)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		defer ticker.Stop()
		for {
			select {
			case <-ctx2.Done():
				return
			case <-ticker.C:
				mu.Lock()
				flush()
				mu.Unlock()
			}
		}
	}()

	text, err := fn(ctx2, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		seq++
		now := time.Now()
		buf = append(buf, ContractResponseDelta{
			Msg:       &ContractMessage{Role: ASSISTANT, Content: chunk, CreatedAt: now},
			Index:     seq,
			CreatedAt: now,
		})
		if uint(len(buf)) >= b.cfg.DeltaBufferLimit {
			flush()
		}
		return ctx2.Err()
	})

	cancel()
	<-drained

	mu.Lock()
	buf = append(buf, ContractResponseDelta{Error: err, Done: true, Index: seq + 1, CreatedAt: time.Now()})
	flush()
	mu.Unlock()

	if err != nil {
		return ContractResponse{ID: genID, StartedAt: startedAt, Text: text, Error: err}
	}
	return ContractResponse{ID: genID, StartedAt: startedAt, Text: text, Done: true}
}
