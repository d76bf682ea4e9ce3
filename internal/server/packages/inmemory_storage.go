package packages

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/openpmca/webinstaller/internal/common"
)

// InMemoryStorage keeps packages in a process-local map; used for local runs
// and tests.
type InMemoryStorage struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{items: make(map[string][]byte)}
}

func (s *InMemoryStorage) Save(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := uuid.NewString()
	s.items[handle] = append([]byte(nil), data...)

	return handle, nil
}

func (s *InMemoryStorage) Open(ctx context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.items[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryStorage) Exists(ctx context.Context, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[handle]
	return ok, nil
}
