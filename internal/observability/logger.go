package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// CLILogger is used for CLI commands (simple profile)
	CLILogger *zap.Logger

	// ServerLogger is used for the HTTP server (structured profile)
	ServerLogger *zap.Logger
)

const (
	ProfileSimple     = "simple"
	ProfileStructured = "structured"
)

// LoggerOptions selects encoder, level and sinks.
type LoggerOptions struct {
	Service string
	Level   string
	Profile string
	Debug   bool

	// File enables a rotating JSON file sink alongside stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger builds a zap logger writing to stderr and, when File is set, to a
// rotating file.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	return newLogger(opts, zapcore.Lock(os.Stderr))
}

func newLogger(opts LoggerOptions, console zapcore.WriteSyncer) (*zap.Logger, error) {
	level := ParseLevel(opts.Level)
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	enabler := zap.NewAtomicLevelAt(level)

	cores := []zapcore.Core{
		zapcore.NewCore(encoderFor(opts.Profile), console, enabler),
	}

	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), enabler))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if service := strings.TrimSpace(opts.Service); service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

// InitCLILogger initializes CLILogger, defaulting to the simple profile.
func InitCLILogger(opts LoggerOptions) error {
	if strings.TrimSpace(opts.Profile) == "" {
		opts.Profile = ProfileSimple
	}
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// InitServerLogger initializes ServerLogger, defaulting to the structured
// profile.
func InitServerLogger(opts LoggerOptions) error {
	if strings.TrimSpace(opts.Profile) == "" {
		opts.Profile = ProfileStructured
	}
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	ServerLogger = logger
	return nil
}

// ParseLevel converts a configured level name. Unknown names map to info.
func ParseLevel(value string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderFor(profile string) zapcore.Encoder {
	if strings.EqualFold(strings.TrimSpace(profile), ProfileStructured) {
		return jsonEncoder()
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
