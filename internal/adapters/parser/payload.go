package parser

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"telegram-entity-parser/internal/domain"
)

var (
	// ErrEmptyPayload возвращается базовым декодированием для отсутствующего или пустого объекта.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNotAnObject возвращается, когда на месте вложенного объекта находится не объект.
	ErrNotAnObject = errors.New("payload value is not an object")
)

// Известные поля каждого объекта. Все прочие ключи отбрасываются на границе декодирования.
var (
	entityFields  = []string{"type", "offset", "length", "url", "user"}
	userFields    = []string{"id", "is_bot", "first_name", "last_name", "username", "language_code"}
	chatFields    = []string{"id", "type", "title", "username", "first_name", "last_name"}
	messageFields = []string{"message_id", "from", "date", "chat", "text", "caption", "entities", "caption_entities"}
	updateFields  = []string{"update_id", "message", "edited_message", "channel_post", "edited_channel_post"}
)

// DecodeObject выполняет базовое декодирование и возвращает очищенную копию объекта,
// в которой остались только известные ключи. Если known пуст, копируются все ключи.
// Контекст bot передается для единообразия с остальными декодерами.
func DecodeObject(payload domain.Payload, bot domain.Bot, known ...string) (domain.Payload, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	cleaned := make(domain.Payload, len(payload))
	if len(known) == 0 {
		for k, v := range payload {
			cleaned[k] = v
		}
		return cleaned, nil
	}

	for _, k := range known {
		if v, ok := payload[k]; ok {
			cleaned[k] = v
		}
	}
	return cleaned, nil
}

// DecodeUser декодирует вложенного пользователя. Отсутствующее или пустое значение
// дает nil без ошибки.
func DecodeUser(value any, bot domain.Bot) (*domain.User, error) {
	if value == nil {
		return nil, nil
	}
	payload, err := asPayload(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	data, err := DecodeObject(payload, bot, userFields...)
	if err != nil {
		return nil, err
	}

	var u domain.User
	if err := decodeFields(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return domain.NewUser(u, bot), nil
}

// DecodeEntity декодирует одну сущность сообщения.
// Ошибки базового декодирования и декодирования пользователя возвращаются без изменений.
func DecodeEntity(payload domain.Payload, bot domain.Bot) (domain.MessageEntity, error) {
	data, err := DecodeObject(payload, bot, entityFields...)
	if err != nil {
		return domain.MessageEntity{}, err
	}

	if raw, ok := data["user"]; ok {
		user, err := DecodeUser(raw, bot)
		if err != nil {
			return domain.MessageEntity{}, err
		}
		if user == nil {
			delete(data, "user")
		} else {
			data["user"] = user
		}
	}

	var fields domain.MessageEntity
	if err := decodeFields(data, &fields); err != nil {
		return domain.MessageEntity{}, fmt.Errorf("failed to decode message entity: %w", err)
	}

	return domain.NewMessageEntity(fields.Type, fields.Offset, fields.Length,
		domain.WithURL(fields.URL),
		domain.WithUser(fields.User),
	), nil
}

// DecodeEntities декодирует список сущностей с сохранением порядка.
// Для пустого списка возвращается пустой срез.
func DecodeEntities(payloads []domain.Payload, bot domain.Bot) ([]domain.MessageEntity, error) {
	entities := make([]domain.MessageEntity, 0, len(payloads))
	for i, p := range payloads {
		e, err := DecodeEntity(p, bot)
		if err != nil {
			return nil, fmt.Errorf("entity #%d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// DecodeChat декодирует чат.
func DecodeChat(payload domain.Payload, bot domain.Bot) (*domain.Chat, error) {
	data, err := DecodeObject(payload, bot, chatFields...)
	if err != nil {
		return nil, err
	}

	var chat domain.Chat
	if err := decodeFields(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat: %w", err)
	}
	return &chat, nil
}

// DecodeMessage декодирует сообщение вместе с автором, чатом и сущностями текста и подписи.
func DecodeMessage(payload domain.Payload, bot domain.Bot) (*domain.Message, error) {
	data, err := DecodeObject(payload, bot, messageFields...)
	if err != nil {
		return nil, err
	}

	from, err := DecodeUser(data["from"], bot)
	if err != nil {
		return nil, err
	}
	delete(data, "from")

	var chat *domain.Chat
	if raw, ok := data["chat"]; ok && raw != nil {
		chatPayload, err := asPayload(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode chat: %w", err)
		}
		if chat, err = DecodeChat(chatPayload, bot); err != nil {
			return nil, err
		}
	}
	delete(data, "chat")

	entities, err := decodeEntityList(data["entities"], bot)
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}
	delete(data, "entities")

	captionEntities, err := decodeEntityList(data["caption_entities"], bot)
	if err != nil {
		return nil, fmt.Errorf("caption_entities: %w", err)
	}
	delete(data, "caption_entities")

	var msg domain.Message
	if err := decodeFields(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	msg.From = from
	msg.Chat = chat
	msg.Entities = entities
	msg.CaptionEntities = captionEntities
	return &msg, nil
}

// DecodeUpdate декодирует одно обновление.
func DecodeUpdate(payload domain.Payload, bot domain.Bot) (domain.Update, error) {
	data, err := DecodeObject(payload, bot, updateFields...)
	if err != nil {
		return domain.Update{}, err
	}

	var update domain.Update
	targets := map[string]**domain.Message{
		"message":             &update.Message,
		"edited_message":      &update.EditedMessage,
		"channel_post":        &update.ChannelPost,
		"edited_channel_post": &update.EditedChannelPost,
	}
	for key, target := range targets {
		raw, ok := data[key]
		delete(data, key)
		if !ok || raw == nil {
			continue
		}
		msgPayload, err := asPayload(raw)
		if err != nil {
			return domain.Update{}, fmt.Errorf("%s: %w", key, err)
		}
		msg, err := DecodeMessage(msgPayload, bot)
		if err != nil {
			return domain.Update{}, fmt.Errorf("%s: %w", key, err)
		}
		*target = msg
	}

	var id struct {
		UpdateID int `mapstructure:"update_id"`
	}
	if err := decodeFields(data, &id); err != nil {
		return domain.Update{}, fmt.Errorf("failed to decode update: %w", err)
	}
	update.UpdateID = id.UpdateID
	return update, nil
}

// DecodeUpdates декодирует список обновлений с сохранением порядка.
func DecodeUpdates(payloads []domain.Payload, bot domain.Bot) ([]domain.Update, error) {
	updates := make([]domain.Update, 0, len(payloads))
	for i, p := range payloads {
		u, err := DecodeUpdate(p, bot)
		if err != nil {
			return nil, fmt.Errorf("update #%d: %w", i, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// decodeFields переносит значения очищенного объекта в типизированную структуру.
func decodeFields(data domain.Payload, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "mapstructure",
		DecodeHook: rejectFractional,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(data))
}

// rejectFractional не дает mapstructure молча отбросить дробную часть
// при записи числа в целочисленное поле.
func rejectFractional(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || math.Trunc(f) != f {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}

func decodeEntityList(value any, bot domain.Bot) ([]domain.MessageEntity, error) {
	if value == nil {
		return nil, nil
	}
	payloads, err := asPayloadList(value)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	return DecodeEntities(payloads, bot)
}

func asPayload(value any) (domain.Payload, error) {
	switch v := value.(type) {
	case domain.Payload:
		return v, nil
	case map[string]any:
		return domain.Payload(v), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotAnObject, value)
	}
}

func asPayloadList(value any) ([]domain.Payload, error) {
	switch v := value.(type) {
	case []domain.Payload:
		return v, nil
	case []map[string]any:
		payloads := make([]domain.Payload, len(v))
		for i, item := range v {
			payloads[i] = item
		}
		return payloads, nil
	case []any:
		payloads := make([]domain.Payload, len(v))
		for i, item := range v {
			p, err := asPayload(item)
			if err != nil {
				return nil, fmt.Errorf("element #%d: %w", i, err)
			}
			payloads[i] = p
		}
		return payloads, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}
