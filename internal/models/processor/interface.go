package processor

import (
	"context"

	"github.com/xpanvictor/interm/pkg/assistant"
)

// Document is context material, either inline text or a binary attachment.
type Document struct {
	Name  string
	Text  string
	Media *assistant.Media
}

func (d Document) IsFile() bool {
	return d.Name != ""
}

// Digest is what the processor distills from a document.
type Digest struct {
	Extracted string
	Summary   string
	RawLength int
}

// Processor turns documents into conversation context.
type Processor interface {
	Digest(ctx context.Context, doc Document) (Digest, error)
}
