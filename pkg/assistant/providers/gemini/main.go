package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.0-flash"

// GeminiProvider serves generation through the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

// New creates a new GeminiProvider instance.
func New(ctx context.Context, apiKey, model string, temperature float32) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

func (gp *GeminiProvider) Name() string { return "gemini" }

func (gp *GeminiProvider) Close() error {
	return gp.client.Close()
}

func (gp *GeminiProvider) GetModel(req assistant.GenerateRequest) *genai.GenerativeModel {
	m := gp.client.GenerativeModel(gp.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	m.SetTemperature(req.TemperatureOr(gp.temperature))
	return m
}

func (gp *GeminiProvider) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	cs := gp.GetModel(req).StartChat()
	cs.History = ConvertHistory(req.History)

	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := ResponseText(resp)
	if text == "" {
		return "", assistant.ErrEmptyResponse
	}
	return text, nil
}

func (gp *GeminiProvider) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	cs := gp.GetModel(req).StartChat()
	cs.History = ConvertHistory(req.History)
	iter := cs.SendMessageStream(ctx, genai.Text(req.Prompt))

	var full strings.Builder
	err := gp.Chat(iter, func(resp *genai.GenerateContentResponse) error {
		chunk := ResponseText(resp)
		if chunk == "" {
			return nil
		}
		full.WriteString(chunk)
		return fn(chunk)
	})
	return full.String(), err
}

func (gp *GeminiProvider) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	parts := make([]genai.Part, 0, len(media)+1)
	for _, md := range media {
		parts = append(parts, genai.Blob{MIMEType: md.MIMEType, Data: md.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := gp.GetModel(req).GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini multimodal request failed: %w", err)
	}
	text := ResponseText(resp)
	if text == "" {
		return "", assistant.ErrEmptyResponse
	}
	return text, nil
}

// Chat drains a streaming response, calling fn per received chunk.
func (gp *GeminiProvider) Chat(
	iter *genai.GenerateContentResponseIterator,
	fn func(resp *genai.GenerateContentResponse) error,
) error {
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive from Gemini stream: %w", err)
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}

// ConvertHistory maps prior turns onto Gemini chat roles. System turns
// are carried by SystemInstruction instead.
func ConvertHistory(msgs []adapters.ContractMessage) []*genai.Content {
	var out []*genai.Content
	for _, msg := range msgs {
		role := "user"
		switch msg.Role {
		case adapters.SYSTEM:
			continue
		case adapters.ASSISTANT:
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return out
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
