package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

const DefaultModel = "gpt-4o-mini"

type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float32
}

func New(apiKey, model string, temperature float32, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIProvider{
		client:      openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:       model,
		temperature: temperature,
	}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) params(req assistant.GenerateRequest, msgs []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(float64(req.TemperatureOr(o.temperature))),
	}
}

func (o *OpenAIProvider) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, o.params(req, ConvertMessages(req)))
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", assistant.ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req, ConvertMessages(req)))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := fn(delta); err != nil {
			return full.String(), err
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), fmt.Errorf("openai stream failed: %w", err)
	}
	return full.String(), nil
}

func (o *OpenAIProvider) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(media)+1)
	parts = append(parts, openai.TextContentPart(req.Prompt))
	for _, md := range media {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: DataURL(md),
		}))
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(parts))

	completion, err := o.client.Chat.Completions.New(ctx, o.params(req, msgs))
	if err != nil {
		return "", fmt.Errorf("openai multimodal request failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", assistant.ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}

// ConvertMessages flattens system, history and prompt into chat messages.
func ConvertMessages(req assistant.GenerateRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, msg := range req.History {
		msgs = append(msgs, convertToOpenaiMsg(msg))
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}

func convertToOpenaiMsg(msg adapters.ContractMessage) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case adapters.ASSISTANT:
		return openai.AssistantMessage(msg.Content)
	case adapters.SYSTEM:
		return openai.SystemMessage(msg.Content)
	}
	return openai.UserMessage(msg.Content)
}

func DataURL(md assistant.Media) string {
	return "data:" + md.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(md.Data)
}
