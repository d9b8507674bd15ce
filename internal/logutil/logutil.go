// Package logutil provides the fx-injectable slog.Logger and the
// watermill.LoggerAdapter wrapping it, following the teacher's cmd/fx.go
// ProvideLogger/ProvideWatermillLogger pattern (the teacher repo in the
// retrieval pack references both names but ships neither body, so this
// supplies one in the same shape: a single process-wide structured logger
// shared by fx, the HTTP/SSE handlers, and the watermill publisher/subscriber).
package logutil

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/webitel/broadcast-delivery-service/internal/config"
)

// ProvideLogger builds the process-wide structured logger. Level is taken
// from cfg.Log.Level; output is JSON so it composes with the teacher's
// convention of shipping logs to a collector rather than a terminal.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Log.Level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ProvideWatermillLogger adapts the shared slog.Logger to watermill's
// LoggerAdapter interface, so the publisher/subscriber and the outbox
// poller all log through the same sink.
func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
