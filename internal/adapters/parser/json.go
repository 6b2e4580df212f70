package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

// ErrUnsupportedShape возвращается, когда JSON не похож ни на ответ getUpdates,
// ни на массив обновлений, ни на одно обновление.
var ErrUnsupportedShape = errors.New("unsupported json shape")

// ErrAPIResponse возвращается для ответа Bot API с "ok": false.
var ErrAPIResponse = errors.New("telegram api returned an error")

// JsonParser реализует интерфейс Parser для разбора JSON данных Bot API.
type JsonParser struct {
	bot domain.Bot
}

// ParserOption настраивает JsonParser.
type ParserOption func(*JsonParser)

// WithBot задает контекст бота, который получат декодированные пользователи.
func WithBot(bot domain.Bot) ParserOption {
	return func(p *JsonParser) {
		p.bot = bot
	}
}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser(opts ...ParserOption) ports.Parser {
	p := &JsonParser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse преобразует JSON в список обновлений. Поддерживаются ответ getUpdates
// ({"ok":true,"result":[...]}), массив обновлений и одно обновление.
func (p *JsonParser) Parse(data []byte) ([]domain.Update, error) {
	raw, err := unmarshal(data)
	if err != nil {
		return nil, err
	}

	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		if okFlag, isBool := v["ok"].(bool); isBool && !okFlag {
			return nil, fmt.Errorf("%w: %v %v", ErrAPIResponse, v["error_code"], v["description"])
		}
		if result, ok := v["result"]; ok {
			if list, ok = result.([]any); !ok {
				return nil, fmt.Errorf("%w: result is %T", ErrUnsupportedShape, result)
			}
		} else if _, ok := v["update_id"]; ok {
			list = []any{v}
		} else {
			return nil, fmt.Errorf("%w: object without update_id", ErrUnsupportedShape)
		}
	default:
		return nil, fmt.Errorf("%w: top-level %T", ErrUnsupportedShape, raw)
	}

	payloads, err := asPayloadList(list)
	if err != nil {
		return nil, fmt.Errorf("failed to read updates: %w", err)
	}
	return DecodeUpdates(payloads, p.bot)
}

// UnmarshalPayload разбирает JSON-объект в Payload без декодирования в типы.
func UnmarshalPayload(data []byte) (domain.Payload, error) {
	raw, err := unmarshal(data)
	if err != nil {
		return nil, err
	}
	return asPayload(raw)
}

func unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return raw, nil
}
