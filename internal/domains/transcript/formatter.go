package transcript

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xpanvictor/interm/internal/domains/recognition"
	"github.com/xpanvictor/interm/pkg/io/stt"
)

type SpeakerSegment struct {
	SpeakerID int    `json:"speakerId"`
	Text      string `json:"text"`
	Role      string `json:"role"`
}

type SpeakerInfo struct {
	HasSpeakerInfo bool             `json:"hasSpeakerInfo"`
	Segments       []SpeakerSegment `json:"segments"`
}

// TranscriptEvent is the normalized form of one recognition result.
type TranscriptEvent struct {
	Text            string      `json:"text"`
	IsFinal         bool        `json:"isFinal"`
	SpeakerInfo     SpeakerInfo `json:"speakerInfo"`
	CorrectedTimeMs int64       `json:"correctedTimeMs"`
	SubSession      int         `json:"subSession"`
}

// Formatter turns raw results into transcript events and remembers the
// latest final text.
type Formatter struct {
	mu        sync.RWMutex
	lastFinal string
}

func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Format(r stt.Result, tl recognition.Timeline, streamingLimitMs int64) TranscriptEvent {
	ev := TranscriptEvent{
		Text:            r.Transcript(),
		IsFinal:         r.IsFinal,
		CorrectedTimeMs: tl.CorrectedTimeMs(streamingLimitMs),
		SubSession:      tl.RestartCounter,
		SpeakerInfo:     SpeakerInfo{Segments: []SpeakerSegment{}},
	}
	if len(r.Alternatives) > 0 {
		segments := GroupSpeakers(r.Alternatives[0].Words)
		if len(segments) > 0 {
			ev.SpeakerInfo = SpeakerInfo{HasSpeakerInfo: true, Segments: segments}
		}
	}

	if r.IsFinal && strings.TrimSpace(ev.Text) != "" {
		f.mu.Lock()
		f.lastFinal = ev.Text
		f.mu.Unlock()
	}
	return ev
}

// LastFinal is the text of the most recent final transcript.
func (f *Formatter) LastFinal() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastFinal
}

func (f *Formatter) Reset() {
	f.mu.Lock()
	f.lastFinal = ""
	f.mu.Unlock()
}

// GroupSpeakers collects words per speaker tag in the order tags first
// appear. Diarization counts as present only when the first word carries
// a tag; after that, untagged words form their own tag 0 group.
func GroupSpeakers(words []stt.Word) []SpeakerSegment {
	if len(words) == 0 || words[0].SpeakerTag == 0 {
		return nil
	}

	var order []int
	grouped := make(map[int][]string)
	for _, w := range words {
		if _, seen := grouped[w.SpeakerTag]; !seen {
			order = append(order, w.SpeakerTag)
		}
		grouped[w.SpeakerTag] = append(grouped[w.SpeakerTag], w.Word)
	}

	segments := make([]SpeakerSegment, 0, len(order))
	for _, tag := range order {
		segments = append(segments, SpeakerSegment{
			SpeakerID: tag,
			Text:      strings.Join(grouped[tag], " "),
			Role:      fmt.Sprintf("Speaker %d", tag),
		})
	}
	return segments
}
