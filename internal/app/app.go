package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/config"
	"github.com/xpanvictor/interm/internal/constants/prompts"
	"github.com/xpanvictor/interm/internal/database"
	"github.com/xpanvictor/interm/internal/db"
	"github.com/xpanvictor/interm/internal/domains/recognition"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/domains/suggestion"
	"github.com/xpanvictor/interm/internal/domains/sys_manager"
	"github.com/xpanvictor/interm/internal/models/processor"
	"github.com/xpanvictor/interm/internal/repository/contextstore"
	"github.com/xpanvictor/interm/internal/repository/localstore"
	"github.com/xpanvictor/interm/internal/server"
	"github.com/xpanvictor/interm/internal/tui"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/assistant/router"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/io/capture"
	"github.com/xpanvictor/interm/pkg/io/registry"
	memoryregistry "github.com/xpanvictor/interm/pkg/io/registry/memoryRegistry"
	"github.com/xpanvictor/interm/pkg/resilience"
)

// App represents the application with all its dependencies
type App struct {
	Config         *config.Settings
	Logger         *Logger.Logger
	UserID         uuid.UUID
	DeviceRegistry registry.Registry
	LLMRouter      *router.Mux
	Repo           session.Repository
	Controller     *sys_manager.Controller
	Server         *server.Server

	closers []io.Closer
}

// UserUUID derives a stable device registry id from the configured user
// name.
func UserUUID(userID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID))
}

// NewApp creates a new application instance with all dependencies properly wired
func NewApp(ctx context.Context, cfg *config.Settings, logger *Logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		UserID: UserUUID(cfg.UserID),
	}
	if err := a.setupDependencies(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setupDependencies(ctx context.Context) error {
	a.DeviceRegistry = memoryregistry.New()
	em := xio.New(a.DeviceRegistry, a.Logger.Named("publisher")).Bind(a.UserID)

	factory := NewLLMRouterFactory(a.Config, a.Logger.Named("llm"))
	mux, err := factory.CreateRouter(ctx)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, factory)
	a.LLMRouter = mux

	rec, recCloser, err := NewRecognizer(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	if recCloser != nil {
		a.closers = append(a.closers, recCloser)
	}

	if err := a.setupRepository(); err != nil {
		return err
	}

	manager := recognition.New(RecognitionConfig(a.Config.Recognition), rec, a.Logger.Named("recognition"))
	engine := suggestion.New(
		SuggestionConfig(a.Config),
		mux,
		processor.New(mux, a.Logger.Named("processor")),
		a.Repo,
		em,
		a.Logger.Named("suggestion"),
	)

	capCfg := a.Config.Capture
	a.Controller = sys_manager.New(
		sys_manager.Config{
			UserID:         a.Config.UserID,
			PersistTimeout: time.Duration(a.Config.Suggestion.PersistTimeoutSecs) * time.Second,
		},
		func() capture.Source {
			return capture.NewProcessSource(capCfg.Command, capCfg.Args, capCfg.ChunkBytes, a.Logger.Named("capture"))
		},
		manager,
		engine,
		a.Repo,
		em,
		a.Logger,
	)

	deps := server.NewServerDependencies(a.Controller, a.DeviceRegistry, a.UserID, a.Logger.Named("http"))
	a.Server = server.New(a.Config.Server.Addr, server.NewRouter(a.Config.Debug && !a.Config.TUI, deps), a.Logger.Named("http"))
	return nil
}

// setupRepository opens the local sqlite store, or mysql through gorm,
// with an optional redis cache in front.
func (a *App) setupRepository() error {
	var repo session.Repository
	switch a.Config.DB.Driver {
	case "mysql":
		gdb, err := db.InitDB(a.Config.DB)
		if err != nil {
			return err
		}
		if err := database.MigrateDB(gdb); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		repo = contextstore.NewGormContextRepo(gdb)
	case "sqlite", "":
		store, err := localstore.Open(a.Config.DB.SqlitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		repo = store
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.DB.Driver)
	}

	rc, err := database.NewRedis(a.Config.Redis)
	if err != nil {
		a.Logger.Warnf("redis unavailable, context cache disabled: %v", err)
	}
	if rc != nil {
		a.closers = append(a.closers, rc)
		ttl := time.Duration(a.Config.Redis.TTLMins) * time.Minute
		repo = contextstore.NewCachedRepo(repo, rc, ttl, a.Logger.Named("cache"))
	}
	a.Repo = repo
	return nil
}

// Run serves http, and the terminal ui when enabled, until ctx ends or
// the ui quits.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	a.Server.Start(errc)
	a.Controller.Ready(ctx)

	if a.Config.TUI {
		tuiErr := make(chan error, 1)
		go func() {
			tuiErr <- tui.Run(ctx, a.Controller, a.DeviceRegistry, a.UserID, a.Logger.Named("tui"))
		}()
		select {
		case err := <-tuiErr:
			return err
		case err := <-errc:
			return err
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

// Close shuts the server down and releases every backend. Safe to call
// on a partially built app.
func (a *App) Close() {
	if a.Server != nil {
		if err := a.Server.Shutdown(context.Background()); err != nil {
			a.Logger.Errorf("shutdown: %v", err)
		}
	}
	if a.Controller != nil {
		a.Controller.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warnf("close: %v", err)
		}
	}
	a.closers = nil
}

// RecognitionConfig maps settings onto the manager config. Zero values
// keep the defaults.
func RecognitionConfig(rc config.RecognitionConfig) recognition.Config {
	cfg := recognition.DefaultConfig()
	if rc.StreamingLimitMs > 0 {
		cfg.StreamingLimit = rc.StreamingLimit()
	}
	if rc.LanguageCode != "" {
		cfg.Stream.LanguageCode = rc.LanguageCode
	}
	if rc.SampleRateHz > 0 {
		cfg.Stream.SampleRateHz = rc.SampleRateHz
	}
	if rc.MinSpeakers > 0 {
		cfg.Stream.Diarization.MinSpeakers = rc.MinSpeakers
	}
	if rc.MaxSpeakers > 0 {
		cfg.Stream.Diarization.MaxSpeakers = rc.MaxSpeakers
	}
	if rc.RestartSettleMs > 0 {
		cfg.RestartSettle = time.Duration(rc.RestartSettleMs) * time.Millisecond
	}
	if rc.OpenRetries > 0 {
		retry := *resilience.DefaultRetryConfig()
		retry.MaxAttempts = rc.OpenRetries
		cfg.OpenRetry = &retry
	}
	if rc.InboxSize > 0 {
		cfg.InboxSize = rc.InboxSize
	}
	return cfg
}

func SuggestionConfig(s *config.Settings) suggestion.Config {
	cfg := suggestion.DefaultConfig()
	if s.Suggestion.MinTranscriptChars > 0 {
		cfg.MinTranscriptChars = s.Suggestion.MinTranscriptChars
	}
	cfg.BasePrompt = prompts.LoadBasePrompt(s.Suggestion.SystemPromptFile)
	if s.Suggestion.OCRTimeoutSecs > 0 {
		cfg.OCRTimeout = time.Duration(s.Suggestion.OCRTimeoutSecs) * time.Second
	}
	if s.Suggestion.SolveTimeoutSecs > 0 {
		cfg.SolveTimeout = time.Duration(s.Suggestion.SolveTimeoutSecs) * time.Second
	}
	if s.Suggestion.PersistTimeoutSecs > 0 {
		cfg.PersistTimeout = time.Duration(s.Suggestion.PersistTimeoutSecs) * time.Second
	}
	if s.Assistant.DeltaBufferLimit > 0 {
		cfg.Delta.DeltaBufferLimit = s.Assistant.DeltaBufferLimit
	}
	if s.Assistant.DeltaTimeMs > 0 {
		cfg.Delta.DeltaTimeDuration = time.Duration(s.Assistant.DeltaTimeMs) * time.Millisecond
	}
	return cfg
}
