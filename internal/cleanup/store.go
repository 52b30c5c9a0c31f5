// Package cleanup deletes downloaded files after a delay.
//
// Deletions are persisted as tasks in a [Store] and executed by a
// [Scheduler] at least once: a task is only removed from the store after
// its file is gone.
package cleanup

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task is a pending deletion.
type Task struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	// Root bounds directory pruning: empty parents of Path are removed up
	// to, but not including, Root.
	Root     string    `json:"root,omitempty"`
	DueAt    time.Time `json:"due_at"`
	Attempts int       `json:"attempts"`
}

// Store persists tasks.
type Store interface {
	// Put inserts or replaces the task with t.ID.
	Put(ctx context.Context, t Task) error
	// Due returns up to limit tasks due at or before now, oldest first.
	// A limit of zero or less means no limit.
	Due(ctx context.Context, now time.Time, limit int) ([]Task, error)
	// Delete removes a task. Deleting an unknown task is not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps tasks in process memory. Tasks are lost on exit unless
// the scheduler is flushed first.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]Task
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]Task)}
}

func (m *MemoryStore) Put(_ context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Task
	for _, t := range m.tasks {
		if !t.DueAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].DueAt.Before(due[j].DueAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

// Len returns the number of stored tasks.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
