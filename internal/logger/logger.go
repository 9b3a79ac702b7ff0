// Package logger provides structured logging for the trades ETL pipeline.
// It builds slog loggers from the logging configuration, with JSON or text
// output, optional rotating file destinations, and per-component child
// loggers.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lucasvieira/go-trades-etl/internal/config"
)

// Manager owns the base logger and its output destination.
type Manager struct {
	baseLogger *slog.Logger
	config     config.LoggingConfig
	writer     io.WriteCloser
}

// NewManager creates a logger manager with the specified configuration.
func NewManager(cfg config.LoggingConfig) (*Manager, error) {
	writer, err := createWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.Level),
		AddSource: cfg.Level == "debug",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			case slog.LevelKey:
				if level, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToUpper(level.String()))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Manager{
		baseLogger: slog.New(handler),
		config:     cfg,
		writer:     writer,
	}, nil
}

// createWriter creates the log destination based on configuration.
func createWriter(cfg config.LoggingConfig) (io.WriteCloser, error) {
	switch cfg.Output {
	case "stderr":
		return nopWriteCloser{os.Stderr}, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file path is required when output is 'file'")
		}

		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}, nil
	default:
		return nopWriteCloser{os.Stdout}, nil
	}
}

// nopWriteCloser wraps an io.Writer to provide a Close method
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the base logger instance.
func (m *Manager) Logger() *slog.Logger {
	return m.baseLogger
}

// ComponentLogger returns a child logger tagged with the component name.
func (m *Manager) ComponentLogger(component string) *slog.Logger {
	return m.baseLogger.With(slog.String("component", component))
}

// Close releases the log destination.
func (m *Manager) Close() error {
	if m.writer != nil {
		return m.writer.Close()
	}
	return nil
}

// TimedStep runs fn and logs its duration at completion or failure. Used by
// the pipeline to report per-step timings.
func TimedStep(logger *slog.Logger, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.Error("step failed",
			slog.String("step", step),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return err
	}

	logger.Info("step completed",
		slog.String("step", step),
		slog.Duration("duration", duration))

	return nil
}
