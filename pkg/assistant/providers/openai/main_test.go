package openai

import (
	"testing"

	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

func TestConvertMessagesOrder(t *testing.T) {
	msgs := ConvertMessages(assistant.GenerateRequest{
		System: "be brief",
		History: []adapters.ContractMessage{
			{Role: adapters.USER, Content: "q"},
			{Role: adapters.ASSISTANT, Content: "a"},
		},
		Prompt: "next",
	})
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil || msgs[2].OfAssistant == nil || msgs[3].OfUser == nil {
		t.Errorf("Unexpected message roles %+v", msgs)
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL(assistant.Media{MIMEType: "image/png", Data: []byte("hi")})
	if got != "data:image/png;base64,aGk=" {
		t.Errorf("Unexpected data URL %q", got)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("", "", 0.5); err == nil {
		t.Error("Expected error without API key")
	}
}
