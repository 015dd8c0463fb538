package deepgram

import (
	"testing"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
)

func TestConvertMessage(t *testing.T) {
	zero, one := 0, 1
	msg := &msginterfaces.MessageResponse{
		Type:     "Results",
		IsFinal:  true,
		Start:    1.5,
		Duration: 2.0,
	}
	msg.Channel.Alternatives = []msginterfaces.Alternative{{
		Transcript: "how are you",
		Confidence: 0.9,
		Words: []msginterfaces.Word{
			{Word: "how", Speaker: &zero},
			{Word: "are", Speaker: &one},
			{Word: "you"},
		},
	}}

	res, ok := convertMessage(msg)
	if !ok {
		t.Fatal("Expected result")
	}
	if !res.IsFinal || res.Transcript() != "how are you" {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.ResultEndTime != 3500*time.Millisecond {
		t.Errorf("Expected 3.5s end time, got %v", res.ResultEndTime)
	}
	words := res.Alternatives[0].Words
	if words[0].SpeakerTag != 1 || words[1].SpeakerTag != 2 || words[2].SpeakerTag != 0 {
		t.Errorf("Unexpected speaker tags %+v", words)
	}
}

func TestConvertMessageSkipsEmpty(t *testing.T) {
	msg := &msginterfaces.MessageResponse{Type: "Results"}
	if _, ok := convertMessage(msg); ok {
		t.Error("Expected no result without alternatives")
	}

	msg.Channel.Alternatives = []msginterfaces.Alternative{{Transcript: ""}}
	if _, ok := convertMessage(msg); ok {
		t.Error("Expected no result for empty transcript")
	}
}
