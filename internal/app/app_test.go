package app

import (
	"context"
	"testing"
	"time"

	"github.com/xpanvictor/interm/internal/config"
	"github.com/xpanvictor/interm/pkg/Logger"
)

func TestUserUUIDIsStable(t *testing.T) {
	if UserUUID("local") != UserUUID("local") {
		t.Error("same user should map to the same id")
	}
	if UserUUID("local") == UserUUID("other") {
		t.Error("different users should map to different ids")
	}
}

func TestRecognitionConfigOverrides(t *testing.T) {
	cfg := RecognitionConfig(config.RecognitionConfig{
		StreamingLimitMs: 290000,
		LanguageCode:     "en-GB",
		MaxSpeakers:      3,
		OpenRetries:      5,
	})
	if cfg.StreamingLimit != 290*time.Second {
		t.Errorf("unexpected limit %s", cfg.StreamingLimit)
	}
	if cfg.Stream.LanguageCode != "en-GB" || cfg.Stream.Diarization.MaxSpeakers != 3 {
		t.Errorf("unexpected stream config %+v", cfg.Stream)
	}
	if cfg.Stream.SampleRateHz != 16000 {
		t.Errorf("unset sample rate should keep the default, got %d", cfg.Stream.SampleRateHz)
	}
	if cfg.OpenRetry.MaxAttempts != 5 {
		t.Errorf("unexpected retries %d", cfg.OpenRetry.MaxAttempts)
	}
}

func TestSuggestionConfigOverrides(t *testing.T) {
	cfg := SuggestionConfig(&config.Settings{
		Suggestion: config.SuggestionConfig{MinTranscriptChars: 40, SolveTimeoutSecs: 10},
		Assistant:  config.AssistantConfig{DeltaTimeMs: 300},
	})
	if cfg.MinTranscriptChars != 40 || cfg.SolveTimeout != 10*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Delta.DeltaTimeDuration != 300*time.Millisecond || cfg.Delta.DeltaBufferLimit != 24 {
		t.Errorf("unexpected delta config %+v", cfg.Delta)
	}
	if cfg.BasePrompt == "" {
		t.Error("base prompt should fall back to the built-in one")
	}
}

func TestRouterNeedsAProvider(t *testing.T) {
	f := NewLLMRouterFactory(&config.Settings{}, Logger.NewNop())
	if _, err := f.CreateRouter(context.Background()); err == nil {
		t.Error("expected an error without credentials")
	}
}

func TestRouterPrefersConfiguredProvider(t *testing.T) {
	f := NewLLMRouterFactory(&config.Settings{
		Assistant:   config.AssistantConfig{Provider: "ollama", OllamaURLs: []string{"http://127.0.0.1:11434"}},
		Credentials: config.Credentials{OpenAIAPIKey: "sk-test"},
	}, Logger.NewNop())
	mux, err := f.CreateRouter(context.Background())
	if err != nil {
		t.Fatalf("CreateRouter failed: %v", err)
	}
	if mux.Name() != "ollama" {
		t.Errorf("expected ollama, got %s", mux.Name())
	}
	if got := mux.Available(); len(got) != 2 {
		t.Errorf("expected two providers, got %v", got)
	}
}

func TestUnknownRecognizer(t *testing.T) {
	_, _, err := NewRecognizer(context.Background(), &config.Settings{
		Recognition: config.RecognitionConfig{Provider: "whisper"},
	}, Logger.NewNop())
	if err == nil {
		t.Error("expected an error for an unknown provider")
	}
}
