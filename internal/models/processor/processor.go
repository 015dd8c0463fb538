package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xpanvictor/interm/internal/constants/prompts"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant"
)

var ErrEmptyDocument = errors.New("document is empty")

// ContextProcessor extracts and summarizes documents through any provider.
type ContextProcessor struct {
	provider assistant.Provider
	logger   *Logger.Logger
}

func New(provider assistant.Provider, logger *Logger.Logger) *ContextProcessor {
	return &ContextProcessor{provider: provider, logger: logger}
}

func (p *ContextProcessor) Digest(ctx context.Context, doc Document) (Digest, error) {
	if doc.Media == nil {
		return p.digestText(ctx, doc.Text)
	}
	return p.digestMedia(ctx, *doc.Media)
}

func (p *ContextProcessor) digestText(ctx context.Context, text string) (Digest, error) {
	if text == "" {
		return Digest{}, ErrEmptyDocument
	}
	extracted, err := p.provider.Generate(ctx, assistant.GenerateRequest{Prompt: prompts.EXTRACTION_PROMPT.Format(text)})
	if err != nil {
		return Digest{}, fmt.Errorf("failed to extract context: %w", err)
	}
	p.logger.Debugf("processor: extracted %d chars from %d", len(extracted), len(text))

	summary, err := p.provider.Generate(ctx, assistant.GenerateRequest{Prompt: prompts.SUMMARY_PROMPT.Format(text)})
	if err != nil {
		return Digest{}, fmt.Errorf("failed to summarize context: %w", err)
	}
	return Digest{Extracted: extracted, Summary: summary, RawLength: len(text)}, nil
}

func (p *ContextProcessor) digestMedia(ctx context.Context, md assistant.Media) (Digest, error) {
	if len(md.Data) == 0 {
		return Digest{}, ErrEmptyDocument
	}
	media := []assistant.Media{md}
	extracted, err := p.provider.GenerateMultimodal(ctx, assistant.GenerateRequest{Prompt: prompts.EXTRACTION_ATTACHED.Text()}, media)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to extract context from %s: %w", md.MIMEType, err)
	}
	summary, err := p.provider.GenerateMultimodal(ctx, assistant.GenerateRequest{Prompt: prompts.SUMMARY_ATTACHED.Text()}, media)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to summarize context from %s: %w", md.MIMEType, err)
	}
	return Digest{Extracted: extracted, Summary: summary, RawLength: len(md.Data)}, nil
}

// LoadDocument reads a file from disk. Text files are inlined, anything
// else becomes an attachment with its sniffed MIME type.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc := Document{Name: filepath.Base(path)}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			doc.Text = string(data)
			return doc, nil
		}
	}
	doc.Media = &assistant.Media{MIMEType: mt.String(), Data: data}
	return doc, nil
}
