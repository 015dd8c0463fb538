package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xpanvictor/interm/internal/app"
	"github.com/xpanvictor/interm/internal/config"
	"github.com/xpanvictor/interm/pkg/Logger"
)

// Entry point: loads config, wires the session controller and serves the
// http api, the event websocket and optionally the terminal ui.
func main() {
	flags := pflag.NewFlagSet("interm", pflag.ExitOnError)
	flags.String("config-env", "", "config file suffix, reads config_<env>.yaml")
	flags.String("addr", "", "http listen address")
	flags.Bool("tui", false, "run the terminal ui")
	flags.Bool("debug", false, "debug logging")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: interm [flags]\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	bindFlag("ENV", flags.Lookup("config-env"))
	bindFlag("server.addr", flags.Lookup("addr"))
	bindFlag("tui", flags.Lookup("tui"))
	bindFlag("debug", flags.Lookup("debug"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := Logger.New(cfg.Debug)
	if cfg.TUI {
		// the terminal belongs to the ui
		logger = Logger.BuildLoggerTo(cfg.Debug, "interm.log")
	}
	defer func() { _ = logger.Sync() }()
	logger.Infof("Logger initialized, env %s", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Errorf("Run failed: %v", err)
	}
	logger.Info("Shutdown system")
}

// bindFlag lets a flag override the yaml value only when it was set.
func bindFlag(key string, f *pflag.Flag) {
	if f == nil || !f.Changed {
		return
	}
	if err := viper.BindPFlag(key, f); err != nil {
		log.Fatalf("bind flag %s: %v", f.Name, err)
	}
}
