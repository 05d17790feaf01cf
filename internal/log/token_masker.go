package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const maskedToken = "***:***masked-token***"

// TokenMaskerHandler - обертка для slog.Handler, которая маскирует токены бота
// и заданные секреты в сообщениях и атрибутах.
type TokenMaskerHandler struct {
	handler slog.Handler
	secrets []string
}

// NewTokenMaskerHandler создает новый обработчик с маскировкой токенов.
// secrets - дополнительные строки, которые не должны попадать в журнал.
func NewTokenMaskerHandler(handler slog.Handler, secrets ...string) *TokenMaskerHandler {
	h := &TokenMaskerHandler{handler: handler}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			h.secrets = append(h.secrets, s)
		}
	}
	return h
}

// Токен имеет вид ID:secret. В URL Bot API перед ним стоит префикс bot.
var telegramTokenRegex = regexp.MustCompile(`\b(bot)?\d{6,}:[A-Za-z0-9_-]{35,}`)

func (h *TokenMaskerHandler) mask(text string) string {
	for _, s := range h.secrets {
		text = strings.ReplaceAll(text, s, maskedToken)
	}
	return maskTokens(text)
}

// maskTokens заменяет найденные токены на маску, сохраняя префикс bot.
func maskTokens(text string) string {
	return telegramTokenRegex.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "bot") {
			return "bot" + maskedToken
		}
		return maskedToken
	})
}

// Enabled реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Атрибуты переносятся в новую запись: исходную slog может переиспользовать.
	r := slog.NewRecord(record.Time, record.Level, h.mask(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.maskAttr(attr)
	}
	return &TokenMaskerHandler{handler: h.handler.WithAttrs(masked), secrets: h.secrets}
}

// WithGroup реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) WithGroup(name string) slog.Handler {
	return &TokenMaskerHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *TokenMaskerHandler) maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: h.maskValue(a.Value)}
}

// maskValue рекурсивно маскирует значения атрибутов.
func (h *TokenMaskerHandler) maskValue(value slog.Value) slog.Value {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.mask(value.String()))
	case slog.KindAny:
		// Ошибки net/http содержат полный URL запроса вместе с токеном.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.mask(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = h.maskAttr(attr)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}
