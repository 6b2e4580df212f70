package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"telegram-entity-parser/internal/cache"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
	"time"
)

// Input описывает один входной файл с обновлениями.
type Input struct {
	Name   string
	Source ports.DataSource
}

// Result содержит итог обработки набора файлов.
type Result struct {
	// Hash служит ключом кэша, по которому результат можно запросить повторно.
	Hash    string
	Reports []domain.EntityReport
	Cached  bool
}

// ProcessUpdatesUseCase инкапсулирует обработку файлов с обновлениями Bot API:
// разбор, извлечение сущностей, разрешение упоминаний и кэширование результата.
type ProcessUpdatesUseCase struct {
	parser     ports.Parser
	extractor  ports.ExtractionService
	resolver   ports.ResolutionService
	cacheStore *cache.CacheStore
	cacheTTL   time.Duration
	log        *slog.Logger
}

// Option настраивает ProcessUpdatesUseCase.
type Option func(*ProcessUpdatesUseCase)

// WithResolver включает разрешение упоминаний.
func WithResolver(r ports.ResolutionService) Option {
	return func(uc *ProcessUpdatesUseCase) {
		uc.resolver = r
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(uc *ProcessUpdatesUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// NewProcessUpdatesUseCase создает новый экземпляр ProcessUpdatesUseCase.
func NewProcessUpdatesUseCase(
	parser ports.Parser,
	extractor ports.ExtractionService,
	cacheStore *cache.CacheStore,
	cacheTTL time.Duration,
	opts ...Option,
) *ProcessUpdatesUseCase {
	uc := &ProcessUpdatesUseCase{
		parser:     parser,
		extractor:  extractor,
		cacheStore: cacheStore,
		cacheTTL:   cacheTTL,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Process обрабатывает файлы в заданном порядке и возвращает сущности указанных типов.
// Результат для того же набора файлов и фильтра берется из кэша.
func (uc *ProcessUpdatesUseCase) Process(ctx context.Context, inputs []Input, types ...domain.EntityType) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, fmt.Errorf("no input files")
	}

	contents := make([][]byte, len(inputs))
	hashes := make([]string, len(inputs))
	for i, in := range inputs {
		data, err := in.Source.Fetch()
		if err != nil {
			return Result{}, fmt.Errorf("failed to fetch %s: %w", in.Name, err)
		}
		contents[i] = data
		hashes[i] = cache.CalculateHash(data)
	}

	combinedHash := cache.CombineHashes(hashes, types)
	if cached, found := uc.cacheStore.Get(combinedHash); found {
		uc.log.InfoContext(ctx, "Cache hit for file set", "hash", combinedHash)
		return Result{Hash: combinedHash, Reports: cached, Cached: true}, nil
	}

	var all []domain.EntityReport
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		updates, err := uc.parser.Parse(contents[i])
		if err != nil {
			return Result{}, fmt.Errorf("failed to parse %s: %w", in.Name, err)
		}
		uc.log.InfoContext(ctx, "Parsed updates", "file", in.Name, "update_count", len(updates))

		reports, err := uc.extractor.ExtractEntities(updates, types...)
		if err != nil {
			return Result{}, fmt.Errorf("failed to extract entities from %s: %w", in.Name, err)
		}
		uc.log.InfoContext(ctx, "Extracted entities", "file", in.Name, "count", len(reports))

		all = append(all, reports...)
	}
	if all == nil {
		all = []domain.EntityReport{}
	}

	if uc.resolver != nil {
		resolved, err := uc.resolver.Resolve(ctx, all)
		if err != nil {
			// Частичный результат не кэшируется.
			return Result{}, fmt.Errorf("failed to resolve mentions: %w", err)
		}
		all = resolved
	}

	uc.cacheStore.Put(combinedHash, all, uc.cacheTTL)
	uc.log.InfoContext(ctx, "Result cached for file set", "hash", combinedHash, "ttl", uc.cacheTTL.String())

	return Result{Hash: combinedHash, Reports: all}, nil
}

// Decode синхронно разбирает одно тело запроса без кэша и разрешения упоминаний.
func (uc *ProcessUpdatesUseCase) Decode(data []byte, types ...domain.EntityType) ([]domain.EntityReport, error) {
	updates, err := uc.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return uc.extractor.ExtractEntities(updates, types...)
}
