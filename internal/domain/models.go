package domain

import "strings"

// Payload хранит "сырой" объект Bot API до декодирования в типизированную запись.
type Payload map[string]any

// Bot задает контекст декодирования: бот, от имени которого получены данные.
// Декодированные пользователи сохраняют ссылку на него.
type Bot interface {
	ID() int64
	UserName() string
}

// User представляет пользователя или бота Telegram.
type User struct {
	ID           int64  `json:"id" mapstructure:"id"`
	IsBot        bool   `json:"is_bot" mapstructure:"is_bot"`
	FirstName    string `json:"first_name" mapstructure:"first_name"`
	LastName     string `json:"last_name,omitempty" mapstructure:"last_name"`
	Username     string `json:"username,omitempty" mapstructure:"username"`
	LanguageCode string `json:"language_code,omitempty" mapstructure:"language_code"`

	bot Bot
}

// NewUser создает пользователя, привязанного к контексту бота.
func NewUser(u User, bot Bot) *User {
	u.bot = bot
	return &u
}

// Bot возвращает контекст, с которым был декодирован пользователь.
func (u *User) Bot() Bot {
	if u == nil {
		return nil
	}
	return u.bot
}

// IsSelf сообщает, является ли пользователь самим ботом.
func (u *User) IsSelf() bool {
	if u == nil || u.bot == nil {
		return false
	}
	return u.bot.ID() == u.ID
}

// FullName возвращает имя и фамилию через пробел.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Name возвращает @username, а при его отсутствии полное имя.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName()
}

// Chat представляет чат, в котором было отправлено сообщение.
type Chat struct {
	ID        int64  `json:"id" mapstructure:"id"`
	Type      string `json:"type" mapstructure:"type"`
	Title     string `json:"title,omitempty" mapstructure:"title"`
	Username  string `json:"username,omitempty" mapstructure:"username"`
	FirstName string `json:"first_name,omitempty" mapstructure:"first_name"`
	LastName  string `json:"last_name,omitempty" mapstructure:"last_name"`
}

// Message представляет сообщение Bot API вместе с его сущностями.
type Message struct {
	MessageID       int             `json:"message_id" mapstructure:"message_id"`
	From            *User           `json:"from,omitempty" mapstructure:"from"`
	Date            int64           `json:"date" mapstructure:"date"`
	Chat            *Chat           `json:"chat,omitempty" mapstructure:"chat"`
	Text            string          `json:"text,omitempty" mapstructure:"text"`
	Caption         string          `json:"caption,omitempty" mapstructure:"caption"`
	Entities        []MessageEntity `json:"entities,omitempty" mapstructure:"entities"`
	CaptionEntities []MessageEntity `json:"caption_entities,omitempty" mapstructure:"caption_entities"`
}

// ChatID возвращает идентификатор чата или 0, если чат неизвестен.
func (m *Message) ChatID() int64 {
	if m == nil || m.Chat == nil {
		return 0
	}
	return m.Chat.ID
}

// Update представляет одно входящее обновление.
type Update struct {
	UpdateID          int      `json:"update_id" mapstructure:"update_id"`
	Message           *Message `json:"message,omitempty" mapstructure:"message"`
	EditedMessage     *Message `json:"edited_message,omitempty" mapstructure:"edited_message"`
	ChannelPost       *Message `json:"channel_post,omitempty" mapstructure:"channel_post"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty" mapstructure:"edited_channel_post"`
}

// EffectiveMessage возвращает первое непустое сообщение обновления.
func (u *Update) EffectiveMessage() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return u.EditedChannelPost
	}
}
