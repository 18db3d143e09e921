// Package logger provides the application's structured zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger for application-wide logging
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string    // debug, info, warn, error
	Pretty     bool      // Enable pretty console output
	OutputFile string    // Optional file output path
	Output     io.Writer // Defaults to os.Stdout
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty console output (for development)
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	if cfg.OutputFile != "" {
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			output = io.MultiWriter(output, file)
		}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{Logger: &logger}
}

// NewDefault creates a logger with default settings
func NewDefault() *Logger {
	return New(Config{
		Level:  "info",
		Pretty: true,
	})
}

// Nop returns a logger that discards everything, for tests and optional wiring
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithRequestID returns a logger with a request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithSession returns a logger tagged with a live search session ID
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.with("session", sessionID)
}

// WithQuery returns a logger with the normalized search query
func (l *Logger) WithQuery(query string) *Logger {
	return l.with("query", query)
}

func (l *Logger) with(key, value string) *Logger {
	newLogger := l.With().Str(key, value).Logger()
	return &Logger{Logger: &newLogger}
}

// Global returns the global logger instance
func Global() *Logger {
	return &Logger{Logger: &log.Logger}
}
