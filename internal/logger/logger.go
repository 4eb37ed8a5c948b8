// Package logger provides structured logging for the redlist service
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with redlist-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a configured level name onto zerolog. The empty string
// means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	// Unknown levels fall back to info; config validation reports them
	level, _ := ParseLevel(cfg.Level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "redlist").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// GrpcLogger returns a logger for gRPC operations
func (l *Logger) GrpcLogger(method string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "grpc").
			Str("method", method).
			Logger(),
	}
}

// HTTPLogger returns a logger for the HTTP API
func (l *Logger) HTTPLogger() *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "http").
			Logger(),
	}
}

// CorpusLogger returns a logger for corpus loading
func (l *Logger) CorpusLogger() *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "corpus").
			Logger(),
	}
}

// LogGrpcRequest logs a gRPC request with structured fields
func (l *Logger) LogGrpcRequest(method string, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "grpc").
		Str("method", method).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "grpc").
			Str("method", method).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("gRPC request completed")
}

// LogHTTPRequest logs an HTTP request with structured fields
func (l *Logger) LogHTTPRequest(method, route, requestID string, status int, duration time.Duration) {
	event := l.zlog.Info()
	switch {
	case status >= 500:
		event = l.zlog.Error()
	case status >= 400:
		event = l.zlog.Warn()
	}

	event.
		Str("component", "http").
		Str("method", method).
		Str("route", route).
		Str("request_id", requestID).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("HTTP request completed")
}

// LogCorpusLoad logs one corpus read
func (l *Logger) LogCorpusLoad(path string, documents, fragments, skipped int, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Error().
			Str("component", "corpus").
			Str("path", path).
			Dur("duration_ms", duration).
			Err(err).
			Msg("Corpus load failed")
		return
	}

	l.zlog.Info().
		Str("component", "corpus").
		Str("path", path).
		Int("documents", documents).
		Int("fragments", fragments).
		Int("skipped", skipped).
		Dur("duration_ms", duration).
		Msg("Corpus loaded")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(httpAddr, grpcAddr, corpusRoot string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("http_addr", httpAddr).
		Str("grpc_addr", grpcAddr).
		Str("corpus_root", corpusRoot).
		Msg("redlist server starting")
}

// LogServerReady logs when server is ready
func (l *Logger) LogServerReady(documents int) {
	l.zlog.Info().
		Str("event", "server_ready").
		Int("documents", documents).
		Msg("redlist server ready to accept connections")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("redlist server shutting down")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
