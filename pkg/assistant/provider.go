package assistant

import (
	"context"
	"errors"

	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

var (
	ErrEmptyResponse = errors.New("empty response from provider")
	ErrNoProvider    = errors.New("no assistant provider configured")
)

// Media is an inline attachment such as a screenshot.
type Media struct {
	MIMEType string
	Data     []byte
}

type GenerateRequest struct {
	System  string
	History []adapters.ContractMessage
	Prompt  string
	// Temperature overrides the provider default when set.
	Temperature *float32
}

// Provider is a text generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Stream calls fn for every chunk and returns the concatenated text.
	Stream(ctx context.Context, req GenerateRequest, fn func(chunk string) error) (string, error)
	GenerateMultimodal(ctx context.Context, req GenerateRequest, media []Media) (string, error)
}

func Float32(v float32) *float32 {
	return &v
}

// TemperatureOr resolves the request temperature against a default.
func (r GenerateRequest) TemperatureOr(def float32) float32 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return def
}
