package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant/assistanttest"
)

func TestDigestText(t *testing.T) {
	fake := assistanttest.New()
	fake.Replies = []string{"extracted facts", "short summary"}
	p := New(fake, Logger.NewNop())

	d, err := p.Digest(context.Background(), Document{Text: "Senior Go engineer, 8 years"})
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if d.Extracted != "extracted facts" || d.Summary != "short summary" {
		t.Errorf("Unexpected digest %+v", d)
	}
	if d.RawLength != len("Senior Go engineer, 8 years") {
		t.Errorf("Unexpected raw length %d", d.RawLength)
	}

	calls := fake.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 provider calls, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Request.Prompt, "extract the key information") {
		t.Errorf("First call should extract, got %q", calls[0].Request.Prompt)
	}
	if !strings.HasPrefix(calls[1].Request.Prompt, "Summarize this document") {
		t.Errorf("Second call should summarize, got %q", calls[1].Request.Prompt)
	}
}

func TestDigestEmpty(t *testing.T) {
	p := New(assistanttest.New(), Logger.NewNop())
	if _, err := p.Digest(context.Background(), Document{}); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Expected ErrEmptyDocument, got %v", err)
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("plain notes"), 0o600); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(txt)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if doc.Text != "plain notes" || doc.Media != nil || doc.Name != "notes.txt" {
		t.Errorf("Unexpected text document %+v", doc)
	}

	png := filepath.Join(dir, "shot.png")
	header := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if err := os.WriteFile(png, header, 0o600); err != nil {
		t.Fatal(err)
	}
	doc, err = LoadDocument(png)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if doc.Media == nil || doc.Media.MIMEType != "image/png" {
		t.Errorf("Expected png attachment, got %+v", doc)
	}

	if _, err := LoadDocument(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
