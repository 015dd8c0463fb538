// Package tui renders the live transcript and suggestions in the
// terminal and drives recording from the keyboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xpanvictor/interm/internal/domains/transcript"
	xio "github.com/xpanvictor/interm/pkg/io"
)

const (
	maxEntries     = 200
	commandTimeout = 2 * time.Minute
	errorTTL       = 8 * time.Second
)

var errEndpointClosed = errors.New("tui endpoint closed")

// Commands is the part of the session controller the keyboard drives.
type Commands interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	RequestSuggestion(ctx context.Context, transcript string) (string, error)
	Elaborate(ctx context.Context, text string) (string, error)
	ClearContext(ctx context.Context) error
}

type entry struct {
	text    string
	speaker string
}

type commandDoneMsg struct {
	op  string
	err error
}

type clearErrorMsg struct{ at time.Time }

type Model struct {
	cmds Commands

	width  int
	height int

	ready      bool
	recording  bool
	entries    []entry
	partial    string
	suggestion string
	streaming  bool
	context    string
	busy       string

	errText string
	errAt   time.Time
}

func New(cmds Commands) Model {
	return Model{cmds: cmds}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{op: op, err: fn(ctx)}
	}
}

func clearErrorCmd(at time.Time) tea.Cmd {
	return tea.Tick(errorTTL, func(time.Time) tea.Msg { return clearErrorMsg{at: at} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m, m.handleEvent(msg)

	case commandDoneMsg:
		if m.busy == msg.op {
			m.busy = ""
		}
		// failures also arrive as error events
		return m, nil

	case clearErrorMsg:
		if msg.at.Equal(m.errAt) {
			m.errText = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleEvent(ev EventMsg) tea.Cmd {
	switch p := ev.Payload.(type) {
	case transcript.TranscriptEvent:
		if !p.IsFinal {
			m.partial = p.Text
			return nil
		}
		m.partial = ""
		e := entry{text: p.Text}
		if p.SpeakerInfo.HasSpeakerInfo && len(p.SpeakerInfo.Segments) > 0 {
			e.speaker = p.SpeakerInfo.Segments[0].Role
		}
		m.entries = append(m.entries, e)
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}

	case xio.TextPayload:
		switch ev.Name {
		case xio.EventSuggestionChunk:
			if !m.streaming {
				m.suggestion = ""
				m.streaming = true
			}
			m.suggestion += p.Text
		case xio.EventSuggestion, xio.EventElaboration:
			m.suggestion = p.Text
			m.streaming = false
		}

	case xio.RecordingStatusPayload:
		m.recording = p.IsRecording
		if p.IsRecording {
			m.entries = nil
			m.partial = ""
		}

	case xio.ContextUpdatePayload:
		switch {
		case !p.HasContext:
			m.context = ""
		case p.Summary != "":
			m.context = p.Summary
		default:
			m.context = p.Preview
		}

	case xio.ScreenshotPayload:
		if p.ClearSuggestion {
			m.suggestion = ""
			m.streaming = false
		}

	case xio.ReadyPayload:
		m.ready = p.IsReady

	case xio.ErrorPayload:
		m.streaming = false
		m.errText = p.Message
		m.errAt = time.Now()
		return clearErrorCmd(m.errAt)
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ":
		if m.recording {
			m.busy = "stop"
			return m, run("stop", m.cmds.StopRecording)
		}
		m.busy = "start"
		return m, run("start", m.cmds.StartRecording)

	case "s":
		m.busy = "suggest"
		text := m.transcriptText()
		return m, run("suggest", func(ctx context.Context) error {
			_, err := m.cmds.RequestSuggestion(ctx, text)
			return err
		})

	case "e":
		if m.suggestion == "" {
			return m, nil
		}
		m.busy = "elaborate"
		text := m.suggestion
		return m, run("elaborate", func(ctx context.Context) error {
			_, err := m.cmds.Elaborate(ctx, text)
			return err
		})

	case "c":
		m.busy = "clear"
		return m, run("clear", m.cmds.ClearContext)
	}
	return m, nil
}

// transcriptText is the latest final line, which the controller would
// also fall back to.
func (m Model) transcriptText() string {
	if len(m.entries) == 0 {
		return ""
	}
	return m.entries[len(m.entries)-1].text
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	width := m.width - 4

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	transcriptH := (m.height - 10) / 2
	if transcriptH < 3 {
		transcriptH = 3
	}
	b.WriteString(panelStyle.Width(width).Render(m.renderTranscript(width-4, transcriptH)))
	b.WriteString("\n")
	b.WriteString(panelStyle.Width(width).Render(m.renderSuggestion()))
	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render("! " + m.errText))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	status := idleStyle.Render("○ idle")
	if m.recording {
		status = recordingStyle.Render("● recording")
	}
	if !m.ready {
		status += idleStyle.Render("  (starting)")
	}
	if m.busy != "" {
		status += idleStyle.Render("  " + m.busy + "...")
	}
	ctxLine := idleStyle.Render("no context")
	if m.context != "" {
		ctxLine = "context: " + truncate(m.context, 60)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render("interm"), "  ", status, "  ", ctxLine)
}

func (m Model) renderTranscript(width, height int) string {
	var lines []string
	for _, e := range m.entries {
		line := truncate(e.text, width-len(e.speaker)-2)
		if e.speaker != "" {
			line = speakerStyle.Render(e.speaker+": ") + line
		}
		lines = append(lines, line)
	}
	if m.partial != "" {
		lines = append(lines, partialStyle.Render(truncate(m.partial, width)))
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	if len(lines) == 0 {
		return idleStyle.Render("Press space to start recording.")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSuggestion() string {
	if m.suggestion == "" {
		return idleStyle.Render("Press s for a suggestion.")
	}
	return suggestionStyle.Render(m.suggestion)
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"space", "record"},
		{"s", "suggest"},
		{"e", "elaborate"},
		{"c", "clear context"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", footerKeyStyle.Render(k.key), footerDescStyle.Render(k.desc)))
	}
	return strings.Join(parts, "  ")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
