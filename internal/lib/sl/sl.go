// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import (
	"log/slog"
	"os"
)

// Err возвращает атрибут "error" с текстом ошибки.
// Для nil возвращается пустая строка, чтобы вызов был безопасен в любом месте.
//
//	log.Error("failed to send email", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Reason возвращает атрибут "reason" с причиной отказа.
func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

// NewLogger создаёт логгер для окружения env: local пишет текст с уровнем Debug,
// остальные окружения пишут JSON с уровнем Info.
func NewLogger(env string) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
