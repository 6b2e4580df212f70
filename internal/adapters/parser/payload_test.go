package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-entity-parser/internal/domain"
)

type testBot struct{}

func (testBot) ID() int64        { return 42 }
func (testBot) UserName() string { return "entity_bot" }

func TestDecodeObject(t *testing.T) {
	t.Run("пустой объект", func(t *testing.T) {
		_, err := DecodeObject(nil, nil, entityFields...)
		assert.ErrorIs(t, err, ErrEmptyPayload)

		_, err = DecodeObject(domain.Payload{}, nil, entityFields...)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("неизвестные ключи отбрасываются", func(t *testing.T) {
		payload := domain.Payload{"type": "bold", "offset": 1, "length": 2, "language": "go"}

		cleaned, err := DecodeObject(payload, nil, entityFields...)
		require.NoError(t, err)
		assert.Equal(t, domain.Payload{"type": "bold", "offset": 1, "length": 2}, cleaned)
	})

	t.Run("без списка полей копируются все ключи", func(t *testing.T) {
		payload := domain.Payload{"a": 1, "b": "x"}

		cleaned, err := DecodeObject(payload, nil)
		require.NoError(t, err)
		assert.Equal(t, payload, cleaned)
	})

	t.Run("исходный объект не изменяется", func(t *testing.T) {
		payload := domain.Payload{"type": "bold", "extra": true}

		cleaned, err := DecodeObject(payload, nil, entityFields...)
		require.NoError(t, err)
		cleaned["type"] = "italic"

		assert.Equal(t, "bold", payload["type"])
		assert.Contains(t, payload, "extra")
	})
}

func TestDecodeUser(t *testing.T) {
	t.Run("отсутствующий пользователь", func(t *testing.T) {
		u, err := DecodeUser(nil, testBot{})
		require.NoError(t, err)
		assert.Nil(t, u)

		u, err = DecodeUser(map[string]any{}, testBot{})
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("не объект", func(t *testing.T) {
		_, err := DecodeUser("durov", testBot{})
		assert.ErrorIs(t, err, ErrNotAnObject)
	})

	t.Run("пользователь получает контекст бота", func(t *testing.T) {
		u, err := DecodeUser(map[string]any{
			"id":            json.Number("7"),
			"is_bot":        false,
			"first_name":    "A",
			"username":      "a_user",
			"language_code": "ru",
			"is_premium":    true,
		}, testBot{})
		require.NoError(t, err)
		require.NotNil(t, u)

		assert.Equal(t, int64(7), u.ID)
		assert.Equal(t, "A", u.FirstName)
		assert.Equal(t, "a_user", u.Username)
		assert.Equal(t, "ru", u.LanguageCode)
		assert.Equal(t, testBot{}, u.Bot())
	})

	t.Run("неверный тип поля", func(t *testing.T) {
		_, err := DecodeUser(map[string]any{"id": "seven"}, nil)
		assert.Error(t, err)
	})
}

func TestDecodeEntity(t *testing.T) {
	t.Run("дробное смещение", func(t *testing.T) {
		_, err := DecodeEntity(domain.Payload{"type": "bold", "offset": 5.7, "length": 1}, nil)
		assert.Error(t, err)

		_, err = DecodeEntity(domain.Payload{"type": "bold", "offset": 0, "length": json.Number("2.5")}, nil)
		assert.Error(t, err)
	})

	t.Run("целое число в float64", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{"type": "bold", "offset": 5.0, "length": 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, e.Offset)
	})

	t.Run("text_link", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{
			"type":   "text_link",
			"offset": 5,
			"length": 10,
			"url":    "https://x",
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, domain.EntityTextLink, e.Type)
		assert.Equal(t, 5, e.Offset)
		assert.Equal(t, 10, e.Length)
		assert.Equal(t, "https://x", e.URL)
		assert.Nil(t, e.User)
	})

	t.Run("text_mention с пользователем", func(t *testing.T) {
		userPayload := map[string]any{"id": 7, "first_name": "A"}
		e, err := DecodeEntity(domain.Payload{
			"type":   "text_mention",
			"offset": 0,
			"length": 4,
			"user":   userPayload,
		}, testBot{})
		require.NoError(t, err)

		expected, err := DecodeUser(userPayload, testBot{})
		require.NoError(t, err)

		require.NotNil(t, e.User)
		assert.Equal(t, int64(7), e.User.ID)
		assert.Equal(t, expected, e.User)
		assert.Empty(t, e.URL)
	})

	t.Run("без ключа user пользователь отсутствует", func(t *testing.T) {
		for _, et := range domain.AllEntityTypes() {
			e, err := DecodeEntity(domain.Payload{"type": string(et), "offset": 1, "length": 1}, testBot{})
			require.NoError(t, err)
			assert.Nil(t, e.User, et.String())
		}
	})

	t.Run("user: null", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{"type": "text_mention", "offset": 0, "length": 1, "user": nil}, nil)
		require.NoError(t, err)
		assert.Nil(t, e.User)
	})

	t.Run("неизвестный тип принимается", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{"type": "spoiler", "offset": 2, "length": 3}, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.EntityType("spoiler"), e.Type)
		assert.False(t, e.Type.IsKnown())
	})

	t.Run("необрабатываемые поля игнорируются", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{
			"type":            "pre",
			"offset":          0,
			"length":          8,
			"language":        "go",
			"custom_emoji_id": "123",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.NewMessageEntity(domain.EntityPre, 0, 8), e)
	})

	t.Run("числа из JSON", func(t *testing.T) {
		e, err := DecodeEntity(domain.Payload{"type": "bold", "offset": json.Number("3"), "length": float64(4)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, e.Offset)
		assert.Equal(t, 4, e.Length)
	})

	t.Run("пустой объект", func(t *testing.T) {
		_, err := DecodeEntity(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("ошибка декодирования пользователя передается как есть", func(t *testing.T) {
		_, err := DecodeEntity(domain.Payload{"type": "text_mention", "offset": 0, "length": 1, "user": []any{1}}, nil)
		assert.ErrorIs(t, err, ErrNotAnObject)
	})

	t.Run("неверный тип смещения", func(t *testing.T) {
		_, err := DecodeEntity(domain.Payload{"type": "bold", "offset": "zero", "length": 1}, nil)
		assert.Error(t, err)
	})
}

func TestDecodeEntities(t *testing.T) {
	t.Run("nil и пустой список", func(t *testing.T) {
		entities, err := DecodeEntities(nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, entities)
		assert.Empty(t, entities)

		entities, err = DecodeEntities([]domain.Payload{}, nil)
		require.NoError(t, err)
		assert.Empty(t, entities)
	})

	t.Run("порядок и длина сохраняются", func(t *testing.T) {
		payloads := []domain.Payload{
			{"type": "hashtag", "offset": 10, "length": 3},
			{"type": "bold", "offset": 0, "length": 4},
			{"type": "text_mention", "offset": 5, "length": 4, "user": map[string]any{"id": 7, "first_name": "A"}},
		}

		entities, err := DecodeEntities(payloads, testBot{})
		require.NoError(t, err)
		require.Len(t, entities, 3)

		for i, p := range payloads {
			expected, err := DecodeEntity(p, testBot{})
			require.NoError(t, err)
			assert.Equal(t, expected, entities[i])
		}
	})

	t.Run("дубликаты не удаляются", func(t *testing.T) {
		p := domain.Payload{"type": "bold", "offset": 0, "length": 1}

		entities, err := DecodeEntities([]domain.Payload{p, p}, nil)
		require.NoError(t, err)
		assert.Len(t, entities, 2)
	})

	t.Run("ошибка элемента", func(t *testing.T) {
		_, err := DecodeEntities([]domain.Payload{{"type": "bold"}, {}}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyPayload)
		assert.Contains(t, err.Error(), "entity #1")
	})
}

func TestDecodeMessage(t *testing.T) {
	payload := domain.Payload{
		"message_id": 11,
		"date":       json.Number("1700000000"),
		"from":       map[string]any{"id": 7, "first_name": "A"},
		"chat":       map[string]any{"id": -100, "type": "supergroup", "title": "Go"},
		"text":       "hi @durov",
		"entities": []any{
			map[string]any{"type": "mention", "offset": 3, "length": 6},
		},
		"caption_entities": []any{},
		"sticker":          map[string]any{"file_id": "x"},
	}

	msg, err := DecodeMessage(payload, testBot{})
	require.NoError(t, err)

	assert.Equal(t, 11, msg.MessageID)
	assert.Equal(t, int64(1700000000), msg.Date)
	require.NotNil(t, msg.From)
	assert.Equal(t, int64(7), msg.From.ID)
	require.NotNil(t, msg.Chat)
	assert.Equal(t, "supergroup", msg.Chat.Type)
	assert.Equal(t, int64(-100), msg.ChatID())
	require.Len(t, msg.Entities, 1)
	assert.Equal(t, "@durov", msg.ParseEntity(msg.Entities[0]))
	assert.Empty(t, msg.CaptionEntities)

	t.Run("сущности не списком", func(t *testing.T) {
		_, err := DecodeMessage(domain.Payload{"message_id": 1, "entities": "bold"}, nil)
		assert.Error(t, err)
	})

	t.Run("чат не объект", func(t *testing.T) {
		_, err := DecodeMessage(domain.Payload{"message_id": 1, "chat": 5}, nil)
		assert.ErrorIs(t, err, ErrNotAnObject)
	})
}

func TestDecodeUpdate(t *testing.T) {
	t.Run("отредактированный пост канала", func(t *testing.T) {
		u, err := DecodeUpdate(domain.Payload{
			"update_id":           json.Number("900"),
			"edited_channel_post": map[string]any{"message_id": 5, "text": "x"},
			"poll":                map[string]any{"id": "1"},
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, 900, u.UpdateID)
		assert.Nil(t, u.Message)
		require.NotNil(t, u.EditedChannelPost)
		assert.Same(t, u.EditedChannelPost, u.EffectiveMessage())
	})

	t.Run("ошибка вложенного сообщения", func(t *testing.T) {
		_, err := DecodeUpdate(domain.Payload{"update_id": 1, "message": "text"}, nil)
		assert.ErrorIs(t, err, ErrNotAnObject)
	})

	t.Run("список обновлений", func(t *testing.T) {
		updates, err := DecodeUpdates([]domain.Payload{{"update_id": 1}, {"update_id": 2}}, nil)
		require.NoError(t, err)
		require.Len(t, updates, 2)
		assert.Equal(t, 2, updates[1].UpdateID)
	})
}
