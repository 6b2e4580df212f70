package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewTaskStore()
	store.now = func() time.Time { return now }

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Set(1, "task-a")
	id, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "task-a", id)

	now = now.Add(90 * time.Second)
	elapsed, ok := store.Elapsed(1)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, elapsed)

	store.Set(1, "task-b")
	id, _ = store.Get(1)
	assert.Equal(t, "task-b", id)

	store.Delete(1)
	_, ok = store.Elapsed(1)
	assert.False(t, ok)
}
