// Package logger wraps zerolog with lumberjack-based file rotation.
// The core library never calls this package directly — it only knows
// the LogFunc callback type from Sky_loggerfn_t — but the sample
// client wires a Logger in as that callback through CallbackFor.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors Sky_log_level_t.
type Level int

const (
	LevelCritical Level = iota + 1
	LevelError
	LevelWarning
	LevelDebug
)

// Config holds the file-rotation and formatting knobs for a Logger.
type Config struct {
	Path       string
	Level      string
	Format     string // "json" or "console"
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger per cfg, rotating to disk when cfg.Path is set.
func New(cfg Config) (*Logger, error) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(writer).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return &Logger{zl: zl.Level(level)}, nil
}

// CallbackFor returns a function matching the core's LogFunc signature
// (Sky_loggerfn_t): level, formatted string.
func (l *Logger) CallbackFor() func(level Level, msg string) {
	return func(level Level, msg string) {
		var ev *zerolog.Event
		switch level {
		case LevelCritical, LevelError:
			ev = l.zl.Error()
		case LevelWarning:
			ev = l.zl.Warn()
		default:
			ev = l.zl.Debug()
		}
		ev.Msg(msg)
	}
}
