// Package logger builds the application's zerolog instance from
// configuration: console output, optional rotated file output, or both.
package logger

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aleister1102/webpursuer/internal/common"
)

// Config holds logging settings.
type Config struct {
	Level         string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error fatal panic"`
	Format        string `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=console json"`
	EnableConsole bool   `json:"enable_console" yaml:"enable_console"`
	EnableFile    bool   `json:"enable_file" yaml:"enable_file"`
	FilePath      string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	MaxSizeMB     int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" validate:"omitempty,min=1"`
	MaxBackups    int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultConfig creates default logging configuration
func NewDefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "console",
		EnableConsole: true,
		EnableFile:    false,
		MaxSizeMB:     100,
		MaxBackups:    3,
	}
}

// New builds a zerolog.Logger from the configuration. The standard log
// package is redirected into it so third-party libraries logging via
// log.Printf end up in the same sinks.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, err
	}

	writers, err := createWriters(cfg)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if len(writers) == 0 {
		return zerolog.Logger{}, common.NewError("no log output writers configured")
	}

	instance := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(level)
	stdlog.SetOutput(instance)
	stdlog.SetFlags(0)

	return instance, nil
}

func parseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel, common.WrapError(err, "invalid log level")
	}
	return level, nil
}

func createWriters(cfg Config) ([]io.Writer, error) {
	var writers []io.Writer

	if cfg.EnableConsole {
		writers = append(writers, consoleWriter(os.Stderr, cfg.Format, false))
	}

	if cfg.EnableFile {
		if cfg.FilePath == "" {
			return nil, common.NewValidationError("file_path", cfg.FilePath, "file path required when file logging enabled")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, common.WrapError(err, "failed to create log directory")
		}

		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, consoleWriter(rotated, cfg.Format, true))
	}

	return writers, nil
}

// consoleWriter wraps w in a human-readable console writer unless JSON
// output was requested.
func consoleWriter(w io.Writer, format string, noColor bool) io.Writer {
	if strings.ToLower(format) == "json" {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: "2006-01-02 15:04:05"}
}
