// Package observability provides structured logging and Prometheus metrics.
//
// Logging is built on Go's slog package:
//   - configurable level (debug, info, warn, error)
//   - JSON output for production, text for development
//   - redaction of token-shaped values before they reach the sink
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the logger.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" or "text".
	Format string

	// Output is the log sink (defaults to os.Stderr).
	Output io.Writer
}

// defaultRedactPatterns match common secret shapes in attribute values.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`xox[abp]-[a-zA-Z0-9-]+`),
	regexp.MustCompile(`xapp-[a-zA-Z0-9-]+`),
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{16,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gsk_[a-zA-Z0-9]{16,}`),
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(&redactingHandler{inner: handler})
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Redact replaces secret-shaped substrings with a placeholder.
func Redact(s string) string {
	for _, re := range defaultRedactPatterns {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// redactingHandler scrubs string attribute values before delegating.
type redactingHandler struct {
	inner slog.Handler
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, Redact(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		cleaned = append(cleaned, redactAttr(attr))
	}
	return &redactingHandler{inner: h.inner.WithAttrs(cleaned)}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, Redact(attr.Value.String()))
	}
	return attr
}
