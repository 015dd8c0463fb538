package pipeline

import (
	"context"

	"github.com/xpanvictor/interm/pkg/assistant/adapters"
	xio "github.com/xpanvictor/interm/pkg/io"
)

// Pipeline relays a streamed generation to the presentation surface as
// batched chunk events.
type Pipeline struct {
	adapter adapters.ContractAdapter
	em      xio.Emitter
	event   string
}

func New(adapter adapters.ContractAdapter, em xio.Emitter, event string) Pipeline {
	return Pipeline{
		adapter: adapter,
		em:      em,
		event:   event,
	}
}

// Broadcast runs fn through the batching adapter, emitting one
// non-final text event per batch. It returns the full text once the
// stream and every pending emit are done.
func (p *Pipeline) Broadcast(ctx context.Context, fn adapters.StreamFunc) (string, error) {
	rc := make(adapters.ContractResponseChannel, 8)
	pumped := make(chan struct{})

	go func() {
		defer close(pumped)
		// drain until the adapter closes rc
		for outputs := range rc {
			if batch := adapters.Join(outputs); batch != "" {
				p.em.Emit(ctx, p.event, xio.TextPayload{Text: batch})
			}
		}
	}()

	resp := p.adapter.Process(ctx, fn, rc)
	<-pumped
	return resp.Text, resp.Error
}
