package Logger

import (
	"go.uber.org/zap"
)

type Logger struct {
	*zap.SugaredLogger
}

func BuildLogger(debug bool) *Logger {
	return BuildLoggerTo(debug)
}

// BuildLoggerTo writes to paths instead of stderr when any are given.
func BuildLoggerTo(debug bool, paths ...string) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.MessageKey = "msg"
		cfg.EncoderConfig.CallerKey = "caller"
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.MessageKey = "msg"
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.Encoding = "json"
	}

	if len(paths) > 0 {
		cfg.OutputPaths = paths
		cfg.ErrorOutputPaths = paths
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		// fall back to a logger that at least doesn't nil-panic
		logger = zap.NewNop()
	}
	return &Logger{logger.Sugar()}
}

func New(debug bool) *Logger {
	return BuildLogger(debug)
}

// Named scopes the logger to a component, e.g. "recognition".
func (l *Logger) Named(component string) *Logger {
	return &Logger{l.SugaredLogger.Named(component)}
}

// NewNop discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}
