package tasks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/openpmca/webinstaller/internal/common"
)

// InMemoryRepository keeps tasks in a process-local map. Used for local runs
// and tests; ids are sequential integers rendered as strings, matching the
// bigserial keys of the postgres implementation.
type InMemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[string]*Task
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Task)}
}

func clone(t *Task) *Task {
	c := *t
	c.Response = append([]byte(nil), t.Response...)
	return &c
}

func (r *InMemoryRepository) Create(ctx context.Context, task *Task) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := &Task{
		ID:         strconv.FormatInt(r.nextID, 10),
		PackageRef: task.PackageRef,
		CreatedAt:  time.Now(),
	}
	r.items[stored.ID] = stored

	return clone(stored), nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(stored), nil
}

func (r *InMemoryRepository) Complete(ctx context.Context, id string, response []byte) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	stored.Completed = true
	stored.Response = append([]byte(nil), response...)

	return clone(stored), nil
}
