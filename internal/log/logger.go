package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options описывает параметры журнала приложения.
type Options struct {
	// Level - debug, info, warn или error.
	Level string
	// Format - text или json.
	Format string
	// Secrets маскируются во всех записях, например токен бота.
	Secrets []string
}

// ParseLevel преобразует строковый уровень в slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("неизвестный уровень логирования: %s", level)
	}
}

// New создает slog.Logger с маскировкой токенов. Неизвестный уровень
// заменяется на info, неизвестный формат на text.
func New(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, _ := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewTokenMaskerHandler(handler, opts.Secrets...))
}
