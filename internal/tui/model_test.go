package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/domains/transcript"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/io/device"
)

type fakeCommands struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeCommands) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeCommands) StartRecording(ctx context.Context) error {
	f.record("start")
	return nil
}

func (f *fakeCommands) StopRecording(ctx context.Context) error {
	f.record("stop")
	return nil
}

func (f *fakeCommands) RequestSuggestion(ctx context.Context, text string) (string, error) {
	f.record("suggest:" + text)
	return "", nil
}

func (f *fakeCommands) Elaborate(ctx context.Context, text string) (string, error) {
	f.record("elaborate:" + text)
	return "", nil
}

func (f *fakeCommands) ClearContext(ctx context.Context) error {
	f.record("clear")
	return nil
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func sized(cmds Commands) Model {
	m, _ := applyUpdate(New(cmds), tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestNewModel(t *testing.T) {
	m := New(&fakeCommands{})
	if m.recording || m.ready {
		t.Error("new model should be idle and not ready")
	}
	if m.View() != "Initializing..." {
		t.Error("view should wait for a window size")
	}
}

func TestTranscriptEvents(t *testing.T) {
	m := sized(&fakeCommands{})

	m, _ = applyUpdate(m, EventMsg{Name: xio.EventTranscript, Payload: transcript.TranscriptEvent{Text: "so tell me"}})
	if m.partial != "so tell me" || len(m.entries) != 0 {
		t.Errorf("interim should only set partial, got %q %d", m.partial, len(m.entries))
	}

	final := transcript.TranscriptEvent{
		Text:    "so tell me about yourself",
		IsFinal: true,
		SpeakerInfo: transcript.SpeakerInfo{
			HasSpeakerInfo: true,
			Segments:       []transcript.SpeakerSegment{{SpeakerID: 1, Text: "so tell me about yourself", Role: "Speaker 1"}},
		},
	}
	m, _ = applyUpdate(m, EventMsg{Name: xio.EventTranscript, Payload: final})
	if m.partial != "" || len(m.entries) != 1 || m.entries[0].speaker != "Speaker 1" {
		t.Errorf("unexpected state after final: %+v", m.entries)
	}
	if !strings.Contains(m.View(), "so tell me about yourself") {
		t.Error("view should show the final line")
	}
}

func TestSuggestionStreaming(t *testing.T) {
	m := sized(&fakeCommands{})
	m.suggestion = "old answer"

	m, _ = applyUpdate(m, EventMsg{Name: xio.EventSuggestionChunk, Payload: xio.TextPayload{Text: "Use a "}})
	m, _ = applyUpdate(m, EventMsg{Name: xio.EventSuggestionChunk, Payload: xio.TextPayload{Text: "token bucket"}})
	if m.suggestion != "Use a token bucket" {
		t.Errorf("chunks should replace the old answer, got %q", m.suggestion)
	}
	m, _ = applyUpdate(m, EventMsg{Name: xio.EventSuggestion, Payload: xio.TextPayload{Text: "Use a token bucket.", IsFinal: true}})
	if m.suggestion != "Use a token bucket." || m.streaming {
		t.Errorf("final should settle the answer, got %q", m.suggestion)
	}

	m, _ = applyUpdate(m, EventMsg{Name: xio.EventScreenshotProcessed, Payload: xio.ScreenshotPayload{ClearSuggestion: true}})
	if m.suggestion != "" {
		t.Error("failed screenshot should clear the suggestion")
	}
}

func TestErrorEventExpires(t *testing.T) {
	m := sized(&fakeCommands{})
	m, cmd := applyUpdate(m, EventMsg{Name: xio.EventError, Payload: xio.ErrorPayload{Message: "quota exceeded"}})
	if cmd == nil || m.errText != "quota exceeded" {
		t.Fatalf("expected error shown with a clear timer, got %q", m.errText)
	}
	m, _ = applyUpdate(m, clearErrorMsg{at: m.errAt})
	if m.errText != "" {
		t.Error("error should clear")
	}
}

func TestKeysRunCommands(t *testing.T) {
	f := &fakeCommands{}
	m := sized(f)

	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil {
		t.Fatal("space should start recording")
	}
	m, _ = applyUpdate(m, cmd())
	m, _ = applyUpdate(m, EventMsg{Name: xio.EventRecordingStatus, Payload: xio.RecordingStatusPayload{IsRecording: true}})
	if !m.recording || m.busy != "" {
		t.Errorf("expected recording and not busy, got %v %q", m.recording, m.busy)
	}

	m.entries = []entry{{text: "how would you shard a database"}}
	_, cmd = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	cmd()

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) != 2 || f.calls[0] != "start" || f.calls[1] != "suggest:how would you shard a database" {
		t.Errorf("unexpected calls %v", f.calls)
	}
}

type fakeSender struct{ msgs []tea.Msg }

func (f *fakeSender) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestEndpointForwardsEvents(t *testing.T) {
	s := &fakeSender{}
	ep := NewEndpoint(s)
	if ep.Transport() != device.TransportTUI {
		t.Errorf("unexpected transport %s", ep.Transport())
	}

	if err := ep.SendEvent(uuid.Nil, xio.EventReady, xio.ReadyPayload{IsReady: true}); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if len(s.msgs) != 1 || s.msgs[0].(EventMsg).Name != xio.EventReady {
		t.Errorf("unexpected messages %+v", s.msgs)
	}

	if err := ep.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ep.SendEvent(uuid.Nil, xio.EventReady, nil); err == nil {
		t.Error("closed endpoint should refuse events")
	}
}
