package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-entity-parser/internal/domain"
)

var (
	// ErrTaskNotFound возвращается для неизвестной или просроченной задачи.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinished возвращается при попытке изменить завершенную задачу.
	ErrTaskFinished = errors.New("task already finished")
)

// TaskStatus представляет статус задачи обработки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Finished сообщает, что задача больше не изменится.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task - снимок задачи. Hash заполняется при успехе и служит ключом кэша.
type Task struct {
	ID           string
	Status       TaskStatus
	Hash         string
	Reports      []domain.EntityReport
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// TaskStore держит задачи в памяти, пока не истечет их ttl.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	ttl   time.Duration
	now   func() time.Time
}

func NewTaskStore(ttl time.Duration) *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create регистрирует новую задачу в статусе pending.
func (ts *TaskStore) Create() Task {
	now := ts.now()
	task := &Task{
		ID:        uuid.NewString(),
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ts.ttl),
	}

	ts.mu.Lock()
	ts.tasks[task.ID] = task
	ts.mu.Unlock()

	return *task
}

// Start переводит задачу в processing.
func (ts *TaskStore) Start(id string) error {
	return ts.transition(id, func(t *Task) {
		t.Status = TaskStatusProcessing
	})
}

// Complete сохраняет отчеты и ключ кэша.
func (ts *TaskStore) Complete(id, hash string, reports []domain.EntityReport) error {
	return ts.transition(id, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Hash = hash
		t.Reports = reports
	})
}

func (ts *TaskStore) Fail(id, message string) error {
	return ts.transition(id, func(t *Task) {
		t.Status = TaskStatusFailed
		t.ErrorMessage = message
	})
}

func (ts *TaskStore) transition(id string, apply func(*Task)) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	task, ok := ts.live(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrTaskFinished, id, task.Status)
	}
	apply(task)
	return nil
}

// Get возвращает копию задачи.
func (ts *TaskStore) Get(id string) (Task, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	task, ok := ts.live(id)
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return *task, nil
}

// live требует удерживаемой блокировки. Просроченная задача не видна еще до очистки.
func (ts *TaskStore) live(id string) (*Task, bool) {
	task, ok := ts.tasks[id]
	if !ok || ts.now().After(task.ExpiresAt) {
		return nil, false
	}
	return task, true
}

// Sweep удаляет просроченные задачи и возвращает их количество.
func (ts *TaskStore) Sweep() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	removed := 0
	for id, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, id)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker вызывает Sweep каждые interval до отмены ctx.
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.Sweep()
			}
		}
	}()
}
