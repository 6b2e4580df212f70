package cache

import (
	"context"
	"sync"
	"time"

	"telegram-entity-parser/internal/domain"
)

type entry struct {
	reports   []domain.EntityReport
	expiresAt time.Time
}

// CacheStore хранит готовые отчеты по ключу набора файлов.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get возвращает отчеты, если ключ известен и срок не истек.
func (cs *CacheStore) Get(key string) ([]domain.EntityReport, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	e, ok := cs.entries[key]
	if !ok || !cs.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.reports, true
}

// Put перезаписывает значение ключа. ttl <= 0 ничего не сохраняет.
func (cs *CacheStore) Put(key string, reports []domain.EntityReport, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.entries[key] = entry{reports: reports, expiresAt: cs.now().Add(ttl)}
}

// Len считает и просроченные, но еще не удаленные записи.
func (cs *CacheStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.entries)
}

// Sweep удаляет просроченные записи и возвращает их количество.
func (cs *CacheStore) Sweep() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	removed := 0
	for key, e := range cs.entries {
		if !now.Before(e.expiresAt) {
			delete(cs.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker вызывает Sweep каждые interval до отмены ctx.
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.Sweep()
			}
		}
	}()
}
