package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slogFormatter routes chi's request log entries through the configured
// slog logger.
type slogFormatter struct {
	logger *slog.Logger
}

func (f slogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &slogEntry{
		logger: f.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type slogEntry struct {
	logger *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "http request",
		"status", status,
		"bytes", bytes,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("http panic", "panic", v, "stack", string(stack))
}
