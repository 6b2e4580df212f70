package log

import (
	"context"
	"log/slog"
	"regexp"
)

// SecretMaskerHandler оборачивает slog.Handler и маскирует токен бота
// и api_hash MTProto в сообщениях и атрибутах.
type SecretMaskerHandler struct {
	handler slog.Handler
}

// NewSecretMaskerHandler создает новый обработчик с маскировкой секретов.
func NewSecretMaskerHandler(handler slog.Handler) *SecretMaskerHandler {
	return &SecretMaskerHandler{handler: handler}
}

var (
	// токен бота в формате botID:token
	botTokenRegex = regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`)
	// api_hash приложения MTProto: 32 шестнадцатеричных символа после ключа
	apiHashRegex = regexp.MustCompile(`(?i)(api_?hash["']?\s*[:=]\s*["']?)[0-9a-f]{32}`)
)

func maskSecrets(text string) string {
	text = botTokenRegex.ReplaceAllString(text, "bot***:***masked-token***")
	return apiHashRegex.ReplaceAllString(text, "${1}***masked-hash***")
}

// Enabled реализует интерфейс slog.Handler.
func (h *SecretMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler.
func (h *SecretMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Новая запись: исходную slog может переиспользовать.
	r := slog.NewRecord(record.Time, record.Level, maskSecrets(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler.
func (h *SecretMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &SecretMaskerHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup реализует интерфейс slog.Handler.
func (h *SecretMaskerHandler) WithGroup(name string) slog.Handler {
	return &SecretMaskerHandler{handler: h.handler.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
}

// maskValue рекурсивно маскирует значение атрибута. Ошибки превращаются в строки.
func maskValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskSecrets(value.String()))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskSecrets(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, a := range group {
			masked[i] = maskAttr(a)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}

// NewMaskedLogger создает slog.Logger с маскировкой секретов.
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewSecretMaskerHandler(handler))
}
