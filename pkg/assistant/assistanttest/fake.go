// Package assistanttest provides a scripted assistant.Provider for tests.
package assistanttest

import (
	"context"
	"strings"
	"sync"

	"github.com/xpanvictor/interm/pkg/assistant"
)

type Call struct {
	Method  string
	Request assistant.GenerateRequest
	Media   []assistant.Media
}

type Provider struct {
	ProviderName string

	mu sync.Mutex
	// Chunks are streamed by Stream; Generate returns their join.
	Chunks []string
	// Replies, when set, are returned in order by Generate and
	// GenerateMultimodal before falling back to Chunks.
	Replies []string
	Err     error
	// Block makes every call wait until Release or ctx is done.
	Block chan struct{}
	calls []Call
}

func New(chunks ...string) *Provider {
	return &Provider{ProviderName: "fake", Chunks: chunks}
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Release unblocks pending and future calls.
func (p *Provider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Block != nil {
		close(p.Block)
		p.Block = nil
	}
}

func (p *Provider) record(ctx context.Context, c Call) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	if c.Method != "stream" && len(p.Replies) > 0 {
		r := p.Replies[0]
		p.Replies = p.Replies[1:]
		return r, nil
	}
	return strings.Join(p.Chunks, ""), nil
}

func (p *Provider) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	return p.record(ctx, Call{Method: "generate", Request: req})
}

func (p *Provider) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	return p.record(ctx, Call{Method: "multimodal", Request: req, Media: media})
}

func (p *Provider) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	if _, err := p.record(ctx, Call{Method: "stream", Request: req}); err != nil {
		return "", err
	}
	p.mu.Lock()
	chunks := append([]string(nil), p.Chunks...)
	p.mu.Unlock()

	var full strings.Builder
	for _, c := range chunks {
		full.WriteString(c)
		if err := fn(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}
