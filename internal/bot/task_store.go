package bot

import (
	"sync"
	"time"
)

type activeTask struct {
	id        string
	startedAt time.Time
}

// TaskStore сопоставляет чат Telegram с активной задачей на бэкенд-сервере.
// У чата не больше одной активной задачи.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[int64]activeTask
	now   func() time.Time
}

// NewTaskStore создает новый экземпляр TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]activeTask),
		now:   time.Now,
	}
}

// Set запоминает задачу чата, заменяя предыдущую.
func (s *TaskStore) Set(chatID int64, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[chatID] = activeTask{id: taskID, startedAt: s.now()}
}

// Get возвращает ID активной задачи чата.
func (s *TaskStore) Get(chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[chatID]
	return t.id, ok
}

// Elapsed возвращает время, прошедшее с запуска активной задачи чата.
func (s *TaskStore) Elapsed(chatID int64) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[chatID]
	if !ok {
		return 0, false
	}
	return s.now().Sub(t.startedAt), true
}

// Delete удаляет задачу для указанного chatID.
func (s *TaskStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, chatID)
}
