package receipts

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]ledger.Receipt
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]ledger.Receipt)}
}

func (r *MemoryRepository) Put(ctx context.Context, rc ledger.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc.Hash = strings.ToLower(rc.Hash)
	r.data[rc.Hash] = rc
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, hash string) (*ledger.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rc, ok := r.data[strings.ToLower(hash)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rc, nil
}


// Journaled returns a view of r that remembers the writes made through it.
// rollback puts back what each of them replaced.
func (r *MemoryRepository) Journaled() (repo Repository, rollback func()) {
	j := &journal{MemoryRepository: r}
	return j, j.rollback
}

type journal struct {
	*MemoryRepository
	undo []func()
}

func (j *journal) Put(ctx context.Context, rc ledger.Receipt) error {
	hash := strings.ToLower(rc.Hash)

	j.mu.RLock()
	prev, had := j.data[hash]
	j.mu.RUnlock()

	if err := j.MemoryRepository.Put(ctx, rc); err != nil {
		return err
	}
	j.undo = append(j.undo, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if had {
			j.data[hash] = prev
		} else {
			delete(j.data, hash)
		}
	})
	return nil
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
