package ollama

import (
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

func TestConvertMessages(t *testing.T) {
	msgs := ConvertMessages(assistant.GenerateRequest{
		System:  "sys",
		History: []adapters.ContractMessage{{Role: adapters.ASSISTANT, Content: "earlier"}},
		Prompt:  "now",
	}, []api.ImageData{[]byte{1, 2}})

	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "assistant" || msgs[2].Role != "user" {
		t.Errorf("Unexpected roles %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if len(msgs[2].Images) != 1 {
		t.Error("Expected image on the prompt turn")
	}
}
