package domain

// EntityReport дает плоское представление сущности вместе с покрытым ею текстом
// и координатами сообщения. Это итоговая модель, которую отдают сервер, бот и CLI.
type EntityReport struct {
	UpdateID  int        `json:"update_id"`
	MessageID int        `json:"message_id"`
	ChatID    int64      `json:"chat_id"`
	Caption   bool       `json:"caption,omitempty"` // сущность из подписи, а не из текста
	Type      EntityType `json:"type"`
	Offset    int        `json:"offset"`
	Length    int        `json:"length"`
	Text      string     `json:"text"`
	URL       string     `json:"url,omitempty"`
	User      *User      `json:"user,omitempty"`
}

// Username возвращает имя пользователя без '@' для упоминаний вида @username.
func (r *EntityReport) Username() string {
	if r.Type != EntityMention || len(r.Text) < 2 || r.Text[0] != '@' {
		return ""
	}
	return r.Text[1:]
}
