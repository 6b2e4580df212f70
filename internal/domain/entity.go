package domain

// EntityType задает тип размеченного фрагмента текста.
// Перечисление открытое: значения вне каталога допустимы и не отбрасываются.
type EntityType string

// Каталог поддерживаемых типов сущностей.
const (
	EntityMention     EntityType = "mention"      // @username
	EntityHashtag     EntityType = "hashtag"      // #hashtag
	EntityBotCommand  EntityType = "bot_command"  // /start@bot
	EntityURL         EntityType = "url"          // https://telegram.org
	EntityEmail       EntityType = "email"        // do-not-reply@telegram.org
	EntityBold        EntityType = "bold"         // жирный текст
	EntityItalic      EntityType = "italic"       // курсив
	EntityCode        EntityType = "code"         // моноширинная строка
	EntityPre         EntityType = "pre"          // моноширинный блок
	EntityTextLink    EntityType = "text_link"    // кликабельный текст с URL
	EntityTextMention EntityType = "text_mention" // упоминание пользователя без username
)

var allEntityTypes = [...]EntityType{
	EntityMention,
	EntityHashtag,
	EntityBotCommand,
	EntityURL,
	EntityEmail,
	EntityBold,
	EntityItalic,
	EntityCode,
	EntityPre,
	EntityTextLink,
	EntityTextMention,
}

// AllEntityTypes возвращает все известные типы сущностей в фиксированном порядке.
// Каждый вызов возвращает новый срез, который можно безопасно изменять.
func AllEntityTypes() []EntityType {
	types := make([]EntityType, len(allEntityTypes))
	copy(types, allEntityTypes[:])
	return types
}

// IsKnown сообщает, входит ли тип в каталог.
func (t EntityType) IsKnown() bool {
	for _, known := range allEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t EntityType) String() string {
	return string(t)
}

// MessageEntity представляет одну специальную сущность в тексте сообщения:
// упоминание, хештег, ссылку, жирный фрагмент и т.д.
// Смещение и длина задаются в кодовых единицах UTF-16 и приходят от Telegram как есть.
type MessageEntity struct {
	Type   EntityType `json:"type" mapstructure:"type"`
	Offset int        `json:"offset" mapstructure:"offset"`
	Length int        `json:"length" mapstructure:"length"`
	// URL заполняется только для text_link.
	URL string `json:"url,omitempty" mapstructure:"url"`
	// User заполняется только для text_mention.
	User *User `json:"user,omitempty" mapstructure:"user"`
}

// EntityOption задает необязательное поле при создании сущности.
type EntityOption func(*MessageEntity)

// WithURL устанавливает URL сущности.
func WithURL(url string) EntityOption {
	return func(e *MessageEntity) {
		e.URL = url
	}
}

// WithUser устанавливает упомянутого пользователя.
func WithUser(u *User) EntityOption {
	return func(e *MessageEntity) {
		e.User = u
	}
}

// NewMessageEntity создает сущность из обязательных полей и опций.
// Значения не проверяются: сочетания типа и необязательных полей сохраняются как есть.
func NewMessageEntity(t EntityType, offset, length int, opts ...EntityOption) MessageEntity {
	e := MessageEntity{
		Type:   t,
		Offset: offset,
		Length: length,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}
