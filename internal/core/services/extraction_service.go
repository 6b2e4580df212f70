package services

import (
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

// ExtractionServiceImpl реализует интерфейс ExtractionService.
type ExtractionServiceImpl struct{}

// NewExtractionService создает новый экземпляр ExtractionServiceImpl.
func NewExtractionService() ports.ExtractionService {
	return &ExtractionServiceImpl{}
}

// ExtractEntities разворачивает сущности текста и подписи всех сообщений в плоский список.
// Порядок совпадает с порядком обновлений и сущностей внутри сообщения.
// Если types не пуст, в результат попадают только сущности этих типов.
func (s *ExtractionServiceImpl) ExtractEntities(updates []domain.Update, types ...domain.EntityType) ([]domain.EntityReport, error) {
	filter := make(map[domain.EntityType]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}

	reports := make([]domain.EntityReport, 0)
	for i := range updates {
		msg := updates[i].EffectiveMessage()
		if msg == nil {
			continue
		}

		// Текст и подпись не встречаются одновременно, но Bot API этого не гарантирует.
		for _, e := range msg.Entities {
			if len(filter) > 0 && !filter[e.Type] {
				continue
			}
			reports = append(reports, newReport(updates[i].UpdateID, msg, e, false, msg.ParseEntity(e)))
		}
		for _, e := range msg.CaptionEntities {
			if len(filter) > 0 && !filter[e.Type] {
				continue
			}
			reports = append(reports, newReport(updates[i].UpdateID, msg, e, true, msg.ParseCaptionEntity(e)))
		}
	}

	return reports, nil
}

func newReport(updateID int, msg *domain.Message, e domain.MessageEntity, caption bool, text string) domain.EntityReport {
	return domain.EntityReport{
		UpdateID:  updateID,
		MessageID: msg.MessageID,
		ChatID:    msg.ChatID(),
		Caption:   caption,
		Type:      e.Type,
		Offset:    e.Offset,
		Length:    e.Length,
		Text:      text,
		URL:       e.URL,
		User:      e.User,
	}
}
