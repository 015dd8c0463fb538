package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Recognition.StreamingLimit() != 60*time.Second {
		t.Errorf("Expected streaming limit 60s, got %v", cfg.Recognition.StreamingLimit())
	}
	if cfg.Recognition.SampleRateHz != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", cfg.Recognition.SampleRateHz)
	}
	if cfg.Recognition.MinSpeakers != 2 || cfg.Recognition.MaxSpeakers != 2 {
		t.Errorf("Expected 2/2 speakers, got %d/%d", cfg.Recognition.MinSpeakers, cfg.Recognition.MaxSpeakers)
	}
	if cfg.Suggestion.MinTranscriptChars != 20 {
		t.Errorf("Expected min transcript chars 20, got %d", cfg.Suggestion.MinTranscriptChars)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.DB.Driver)
	}
	if len(cfg.Capture.Args) == 0 {
		t.Error("Expected default capture args")
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.GeminiAPIKey != "gem-key" {
		t.Errorf("Expected gemini key gem-key, got %q", creds.GeminiAPIKey)
	}
	if creds.DeepgramAPIKey != "dg-key" {
		t.Errorf("Expected deepgram key dg-key, got %q", creds.DeepgramAPIKey)
	}
}

func TestMySQLDSN(t *testing.T) {
	d := DBConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Name: "interm"}
	want := "u:p@tcp(db:3306)/interm?charset=utf8mb4&parseTime=True&loc=Local"
	if got := d.DSN(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
