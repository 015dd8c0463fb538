package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

const DefaultModel = "llama3.1:8b-instruct"

// OllamaProvider picks the first online server of a farm per request.
type OllamaProvider struct {
	ollamafarm  *ollamafarm.Farm
	model       string
	temperature float32
}

func New(urls []string, model string, temperature float32, logger *Logger.Logger) *OllamaProvider {
	farm := ollamafarm.New()
	for _, u := range urls {
		if err := farm.RegisterURL(u, nil); err != nil {
			logger.Warnf("ollama: failed to register %s: %v", u, err)
		}
	}
	if model == "" {
		model = DefaultModel
	}
	return &OllamaProvider{
		ollamafarm:  farm,
		model:       model,
		temperature: temperature,
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

func (o *OllamaProvider) Chat(
	ctx context.Context,
	req api.ChatRequest,
	fn api.ChatResponseFunc,
) error {
	ollama := o.ollamafarm.First(&ollamafarm.Where{Offline: false})
	if ollama == nil {
		return fmt.Errorf("no ollama server online for model %v", req.Model)
	}
	return ollama.Client().Chat(ctx, &req, fn)
}

func (o *OllamaProvider) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	text, err := o.run(ctx, o.request(req, nil, false), nil)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", assistant.ErrEmptyResponse
	}
	return text, nil
}

func (o *OllamaProvider) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	return o.run(ctx, o.request(req, nil, true), fn)
}

func (o *OllamaProvider) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	images := make([]api.ImageData, 0, len(media))
	for _, md := range media {
		images = append(images, api.ImageData(md.Data))
	}
	text, err := o.run(ctx, o.request(req, images, false), nil)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", assistant.ErrEmptyResponse
	}
	return text, nil
}

func (o *OllamaProvider) run(ctx context.Context, req api.ChatRequest, fn func(string) error) (string, error) {
	var full strings.Builder
	err := o.Chat(ctx, req, func(resp api.ChatResponse) error {
		chunk := resp.Message.Content
		if chunk == "" {
			return nil
		}
		full.WriteString(chunk)
		if fn != nil {
			return fn(chunk)
		}
		return nil
	})
	if err != nil {
		return full.String(), fmt.Errorf("ollama chat failed: %w", err)
	}
	return full.String(), nil
}

func (o *OllamaProvider) request(req assistant.GenerateRequest, images []api.ImageData, stream bool) api.ChatRequest {
	return api.ChatRequest{
		Model:    o.model,
		Messages: ConvertMessages(req, images),
		Stream:   &stream,
		Options:  map[string]interface{}{"temperature": req.TemperatureOr(o.temperature)},
	}
}

// ConvertMessages builds the chat transcript; images ride on the final
// user turn.
func ConvertMessages(req assistant.GenerateRequest, images []api.ImageData) []api.Message {
	msgs := make([]api.Message, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: string(adapters.SYSTEM), Content: req.System})
	}
	for _, msg := range req.History {
		msgs = append(msgs, api.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return append(msgs, api.Message{Role: string(adapters.USER), Content: req.Prompt, Images: images})
}
