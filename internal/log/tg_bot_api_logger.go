package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// NewTGBotAPIAdapter создает адаптер с компонентом tgbotapi в атрибутах.
func NewTGBotAPIAdapter(logger *slog.Logger) *TGBotAPIAdapter {
	return &TGBotAPIAdapter{Logger: logger.With(slog.String("component", "tgbotapi"))}
}

// Println реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.log(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// log повышает уровень для сообщений библиотеки о сбоях long polling.
func (a *TGBotAPIAdapter) log(msg string) {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		a.Logger.Warn(msg)
		return
	}
	a.Logger.Info(msg)
}
