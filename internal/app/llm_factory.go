package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xpanvictor/interm/internal/config"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/assistant/providers/gemini"
	"github.com/xpanvictor/interm/pkg/assistant/providers/ollama"
	"github.com/xpanvictor/interm/pkg/assistant/providers/openai"
	"github.com/xpanvictor/interm/pkg/assistant/router"
	"github.com/xpanvictor/interm/pkg/io/stt"
	"github.com/xpanvictor/interm/pkg/io/stt/deepgram"
	"github.com/xpanvictor/interm/pkg/io/stt/google"
)

const (
	breakerFailures = 5
	breakerReset    = 30 * time.Second
)

// LLMRouterFactory builds the assistant router from whichever providers
// have credentials.
type LLMRouterFactory struct {
	cfg    config.AssistantConfig
	creds  config.Credentials
	logger *Logger.Logger

	closers []io.Closer
}

func NewLLMRouterFactory(cfg *config.Settings, logger *Logger.Logger) *LLMRouterFactory {
	return &LLMRouterFactory{
		cfg:    cfg.Assistant,
		creds:  cfg.Credentials,
		logger: logger,
	}
}

// CreateRouter registers every usable provider and routes to the
// configured one, falling back to the first registered.
func (f *LLMRouterFactory) CreateRouter(ctx context.Context) (*router.Mux, error) {
	var providers []assistant.Provider

	if f.creds.GeminiAPIKey != "" {
		gp, err := gemini.New(ctx, f.creds.GeminiAPIKey, f.modelFor("gemini"), f.cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		f.closers = append(f.closers, gp)
		providers = append(providers, gp)
	}
	if f.creds.OpenAIAPIKey != "" {
		op, err := openai.New(f.creds.OpenAIAPIKey, f.modelFor("openai"), f.cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai provider: %w", err)
		}
		providers = append(providers, op)
	}
	if len(f.cfg.OllamaURLs) > 0 {
		providers = append(providers, ollama.New(f.cfg.OllamaURLs, f.modelFor("ollama"), f.cfg.Temperature, f.logger))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	guarded := make([]assistant.Provider, 0, len(providers))
	for _, p := range providers {
		guarded = append(guarded, router.WithBreaker(p, breakerFailures, breakerReset))
	}
	mux := router.New(&router.PreferredRP{Name: f.cfg.Provider}, guarded...)
	f.logger.Infof("LLM router created with %v, routing to %s", mux.Available(), mux.Name())
	return mux, nil
}

// modelFor keeps the configured model only for the preferred provider;
// the others use their own defaults.
func (f *LLMRouterFactory) modelFor(name string) string {
	if name == f.cfg.Provider {
		return f.cfg.Model
	}
	return ""
}

func (f *LLMRouterFactory) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewRecognizer picks the speech backend. The returned closer may be nil.
func NewRecognizer(ctx context.Context, cfg *config.Settings, logger *Logger.Logger) (stt.Recognizer, io.Closer, error) {
	switch cfg.Recognition.Provider {
	case "deepgram":
		if cfg.Credentials.DeepgramAPIKey == "" {
			return nil, nil, fmt.Errorf("DEEPGRAM_API_KEY is required for the deepgram recognizer")
		}
		return deepgram.New(cfg.Credentials.DeepgramAPIKey, cfg.Recognition.DeepgramModel, logger), nil, nil
	case "google", "":
		rec, err := google.New(ctx, cfg.Credentials.GoogleAPIKey, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create google recognizer: %w", err)
		}
		return rec, rec, nil
	default:
		return nil, nil, fmt.Errorf("unknown recognition provider %q", cfg.Recognition.Provider)
	}
}
