package domain

import "unicode/utf16"

// ParseEntity возвращает фрагмент текста сообщения, покрытый сущностью.
// Смещения считаются в кодовых единицах UTF-16; выход за границы текста обрезается.
func (m *Message) ParseEntity(e MessageEntity) string {
	return sliceUTF16(m.Text, e.Offset, e.Length)
}

// ParseCaptionEntity возвращает фрагмент подписи, покрытый сущностью.
func (m *Message) ParseCaptionEntity(e MessageEntity) string {
	return sliceUTF16(m.Caption, e.Offset, e.Length)
}

// ParseEntities возвращает тексты сущностей сообщения указанных типов.
// Без аргументов возвращаются все сущности.
func (m *Message) ParseEntities(types ...EntityType) map[MessageEntity]string {
	return parseAll(m.Entities, types, m.ParseEntity)
}

// ParseCaptionEntities работает как ParseEntities, но для подписи.
func (m *Message) ParseCaptionEntities(types ...EntityType) map[MessageEntity]string {
	return parseAll(m.CaptionEntities, types, m.ParseCaptionEntity)
}

func parseAll(entities []MessageEntity, types []EntityType, parse func(MessageEntity) string) map[MessageEntity]string {
	result := make(map[MessageEntity]string, len(entities))
	for _, e := range entities {
		if len(types) > 0 && !containsType(types, e.Type) {
			continue
		}
		result[e] = parse(e)
	}
	return result
}

func containsType(types []EntityType, t EntityType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// sliceUTF16 вырезает из строки диапазон [offset, offset+length) в кодовых единицах UTF-16.
func sliceUTF16(text string, offset, length int) string {
	if text == "" || length <= 0 {
		return ""
	}
	units := utf16.Encode([]rune(text))
	start := clamp(offset, 0, len(units))
	end := clamp(offset+length, start, len(units))
	return string(utf16.Decode(units[start:end]))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
