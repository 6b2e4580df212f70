package usecase

import (
	"context"
	"errors"
	"telegram-entity-parser/internal/adapters/parser"
	"telegram-entity-parser/internal/adapters/source"
	"telegram-entity-parser/internal/cache"
	"telegram-entity-parser/internal/core/services"
	"telegram-entity-parser/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks for dependencies
type mockParser struct{ mock.Mock }

func (m *mockParser) Parse(data []byte) ([]domain.Update, error) {
	args := m.Called(data)
	if res := args.Get(0); res != nil {
		return res.([]domain.Update), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) ExtractEntities(updates []domain.Update, types ...domain.EntityType) ([]domain.EntityReport, error) {
	args := m.Called(updates, types)
	if res := args.Get(0); res != nil {
		return res.([]domain.EntityReport), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, reports []domain.EntityReport) ([]domain.EntityReport, error) {
	args := m.Called(ctx, reports)
	if res := args.Get(0); res != nil {
		return res.([]domain.EntityReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func memInput(name, content string) Input {
	return Input{Name: name, Source: source.NewMemorySource([]byte(content))}
}

const updatesJSON = `{"ok": true, "result": [
	{"update_id": 1, "message": {"message_id": 1, "chat": {"id": 5, "type": "private"},
		"text": "hi @durov #go", "entities": [
			{"type": "mention", "offset": 3, "length": 6},
			{"type": "hashtag", "offset": 10, "length": 3}
		]}}
]}`

func TestProcessUpdatesUseCase_RealPipeline(t *testing.T) {
	ctx := context.Background()
	cacheStore := cache.NewCacheStore()
	uc := NewProcessUpdatesUseCase(parser.NewJsonParser(), services.NewExtractionService(), cacheStore, time.Minute)

	res, err := uc.Process(ctx, []Input{memInput("a.json", updatesJSON)})
	require.NoError(t, err)
	require.Len(t, res.Reports, 2)
	assert.False(t, res.Cached)
	assert.Equal(t, "@durov", res.Reports[0].Text)
	assert.Equal(t, int64(5), res.Reports[0].ChatID)
	assert.Equal(t, "#go", res.Reports[1].Text)

	again, err := uc.Process(ctx, []Input{memInput("b.json", updatesJSON)})
	require.NoError(t, err)
	assert.True(t, again.Cached, "то же содержимое должно браться из кэша")
	assert.Equal(t, res.Hash, again.Hash)

	filtered, err := uc.Process(ctx, []Input{memInput("a.json", updatesJSON)}, domain.EntityHashtag)
	require.NoError(t, err)
	assert.False(t, filtered.Cached)
	require.Len(t, filtered.Reports, 1)
	assert.Equal(t, domain.EntityHashtag, filtered.Reports[0].Type)

	decoded, err := uc.Decode([]byte(updatesJSON), domain.EntityMention)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "@durov", decoded[0].Text)
}

func TestProcessUpdatesUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("success flow with multiple files and resolver", func(t *testing.T) {
		p := new(mockParser)
		extractor := new(mockExtractor)
		resolver := new(mockResolver)
		cacheStore := cache.NewCacheStore()
		uc := NewProcessUpdatesUseCase(p, extractor, cacheStore, 10*time.Minute, WithResolver(resolver))

		updates1 := []domain.Update{{UpdateID: 1}}
		updates2 := []domain.Update{{UpdateID: 2}}
		reports1 := []domain.EntityReport{{UpdateID: 1, Type: domain.EntityMention, Text: "@a"}}
		reports2 := []domain.EntityReport{{UpdateID: 2, Type: domain.EntityBold, Text: "b"}}
		p.On("Parse", []byte("one")).Return(updates1, nil).Once()
		p.On("Parse", []byte("two")).Return(updates2, nil).Once()
		extractor.On("ExtractEntities", updates1, []domain.EntityType(nil)).Return(reports1, nil).Once()
		extractor.On("ExtractEntities", updates2, []domain.EntityType(nil)).Return(reports2, nil).Once()

		combined := append(append([]domain.EntityReport{}, reports1...), reports2...)
		final := append([]domain.EntityReport{}, combined...)
		final[0].User = &domain.User{ID: 1}
		resolver.On("Resolve", ctx, combined).Return(final, nil).Once()

		res, err := uc.Process(ctx, []Input{memInput("1", "one"), memInput("2", "two")})
		require.NoError(t, err)
		assert.Equal(t, final, res.Reports)

		expectedHash := cache.CombineHashes([]string{cache.CalculateHashFromString("one"), cache.CalculateHashFromString("two")}, nil)
		assert.Equal(t, expectedHash, res.Hash)
		cached, found := cacheStore.Get(expectedHash)
		require.True(t, found)
		assert.Equal(t, final, cached)

		p.AssertExpectations(t)
		extractor.AssertExpectations(t)
		resolver.AssertExpectations(t)
	})

	t.Run("cache hit", func(t *testing.T) {
		p := new(mockParser)
		cacheStore := cache.NewCacheStore()
		uc := NewProcessUpdatesUseCase(p, nil, cacheStore, time.Minute)

		cached := []domain.EntityReport{{UpdateID: 99}}
		key := cache.CombineHashes([]string{cache.CalculateHashFromString("{}")}, nil)
		cacheStore.Put(key, cached, time.Minute)

		res, err := uc.Process(ctx, []Input{memInput("x", "{}")})
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, cached, res.Reports)
		p.AssertNotCalled(t, "Parse", mock.Anything)
	})

	t.Run("no inputs", func(t *testing.T) {
		uc := NewProcessUpdatesUseCase(nil, nil, cache.NewCacheStore(), time.Minute)
		_, err := uc.Process(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("fetch error", func(t *testing.T) {
		uc := NewProcessUpdatesUseCase(nil, nil, cache.NewCacheStore(), time.Minute)
		_, err := uc.Process(ctx, []Input{{Name: "missing", Source: source.NewFileSource("non_existent_file.json")}})
		assert.Error(t, err)
	})

	t.Run("parse error", func(t *testing.T) {
		p := new(mockParser)
		uc := NewProcessUpdatesUseCase(p, nil, cache.NewCacheStore(), time.Minute)
		parseErr := errors.New("parse error")
		p.On("Parse", mock.Anything).Return(nil, parseErr)

		_, err := uc.Process(ctx, []Input{memInput("x", "{}")})
		assert.ErrorIs(t, err, parseErr)
	})

	t.Run("extract error", func(t *testing.T) {
		p := new(mockParser)
		extractor := new(mockExtractor)
		uc := NewProcessUpdatesUseCase(p, extractor, cache.NewCacheStore(), time.Minute)
		extractErr := errors.New("extract error")

		p.On("Parse", mock.Anything).Return([]domain.Update{}, nil)
		extractor.On("ExtractEntities", mock.Anything, mock.Anything).Return(nil, extractErr)

		_, err := uc.Process(ctx, []Input{memInput("x", "{}")})
		assert.ErrorIs(t, err, extractErr)
	})

	t.Run("resolve error is not cached", func(t *testing.T) {
		p := new(mockParser)
		extractor := new(mockExtractor)
		resolver := new(mockResolver)
		cacheStore := cache.NewCacheStore()
		uc := NewProcessUpdatesUseCase(p, extractor, cacheStore, time.Minute, WithResolver(resolver))
		resolveErr := errors.New("resolve error")

		p.On("Parse", mock.Anything).Return([]domain.Update{}, nil)
		extractor.On("ExtractEntities", mock.Anything, mock.Anything).Return([]domain.EntityReport{}, nil)
		resolver.On("Resolve", ctx, mock.Anything).Return(nil, resolveErr)

		_, err := uc.Process(ctx, []Input{memInput("x", "{}")})
		assert.ErrorIs(t, err, resolveErr)
		assert.Zero(t, cacheStore.Len())
	})
}
