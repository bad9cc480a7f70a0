// Package blobstore keeps sealed input ciphertexts outside the relational
// store, addressed by their handle.
package blobstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
)

type Store interface {
	Put(ctx context.Context, handle string, data []byte) error
	// Get returns common.ErrorNotFound for an unknown handle.
	Get(ctx context.Context, handle string) ([]byte, error)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, handle string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[handle] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, handle string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), b...), nil
}
