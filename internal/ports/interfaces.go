package ports

import (
	"context"
	"telegram-entity-parser/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для разбора данных Bot API.
type Parser interface {
	// Parse преобразует сырые данные в список обновлений.
	Parse(data []byte) ([]domain.Update, error)
}

// ExtractionService определяет интерфейс для извлечения сущностей из обновлений.
type ExtractionService interface {
	// ExtractEntities возвращает сущности указанных типов (всех, если типы не заданы).
	ExtractEntities(updates []domain.Update, types ...domain.EntityType) ([]domain.EntityReport, error)
}

// ResolutionService определяет интерфейс для поиска пользователей,
// упомянутых через @username.
type ResolutionService interface {
	Resolve(ctx context.Context, reports []domain.EntityReport) ([]domain.EntityReport, error)
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	// Export принимает итоговый список сущностей и выводит их.
	Export(reports []domain.EntityReport) error
}
