package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xpanvictor/interm/internal/domains/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLatestContext(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.GetLatestContext(ctx, "u1")
	if err != nil || got != nil {
		t.Fatalf("Expected nil, nil for no context, got %v %v", got, err)
	}

	older := session.NewContextRecord("u1", session.ContextText, "", "first", nil)
	older.CreatedAt = time.Now().Add(-time.Minute)
	newer := session.NewContextRecord("u1", session.ContextFile, "cv.pdf", "second", map[string]any{"summary": "short"})
	other := session.NewContextRecord("u2", session.ContextText, "", "not mine", nil)
	for _, rec := range []*session.ContextRecord{older, newer, other} {
		if err := s.SaveContext(ctx, rec); err != nil {
			t.Fatalf("SaveContext failed: %v", err)
		}
	}

	got, err = s.GetLatestContext(ctx, "u1")
	if err != nil {
		t.Fatalf("GetLatestContext failed: %v", err)
	}
	if got.ID != newer.ID || got.Content != "second" || got.Type != session.ContextFile {
		t.Errorf("Expected newest record, got %+v", got)
	}
	if got.Metadata["summary"] != "short" {
		t.Errorf("Metadata lost: %v", got.Metadata)
	}

	if err := s.DeleteContexts(ctx, "u1"); err != nil {
		t.Fatalf("DeleteContexts failed: %v", err)
	}
	if got, _ := s.GetLatestContext(ctx, "u1"); got != nil {
		t.Errorf("Expected no context after delete, got %+v", got)
	}
	if got, _ := s.GetLatestContext(ctx, "u2"); got == nil {
		t.Error("Delete removed another user's context")
	}
}

func TestSessionTimings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveSessionTiming(ctx, session.NewSessionTiming("u1", start, start.Add(30*time.Second))); err != nil {
			t.Fatalf("SaveSessionTiming failed: %v", err)
		}
	}

	timings, err := s.ListSessionTimings(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListSessionTimings failed: %v", err)
	}
	if len(timings) != 2 {
		t.Fatalf("Expected 2 timings, got %d", len(timings))
	}
	if !timings[0].StartedAt.After(timings[1].StartedAt) {
		t.Error("Expected newest first")
	}
	if timings[0].DurationMs != 30000 {
		t.Errorf("Unexpected duration %d", timings[0].DurationMs)
	}

	all, _ := s.ListSessionTimings(ctx, "u1", 0)
	if len(all) != 3 {
		t.Errorf("Expected all 3 timings without a limit, got %d", len(all))
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interm.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := session.NewContextRecord("u1", session.ContextText, "", "kept", nil)
	if err := s.SaveContext(context.Background(), rec); err != nil {
		t.Fatalf("SaveContext failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.GetLatestContext(context.Background(), "u1")
	if err != nil || got == nil || got.Content != "kept" {
		t.Errorf("Expected context to survive reopen, got %+v %v", got, err)
	}
}
