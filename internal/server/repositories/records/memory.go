package records

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/server/models"
)

type key struct {
	contract string
	id       string
}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	next     int64
	byKey    map[key]*models.Record
	byHandle map[string]key
	order    map[string][]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byKey:    make(map[key]*models.Record),
		byHandle: make(map[string]key),
		order:    make(map[string][]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{strings.ToLower(rec.ContractAddress), rec.ID}
	if _, ok := r.byKey[k]; ok {
		return common.ErrorAlreadyExists
	}
	if _, ok := r.byHandle[rec.Handle]; ok {
		return common.ErrorAlreadyExists
	}

	r.next++
	stored := *rec
	stored.ContractAddress = k.contract
	stored.Creator = strings.ToLower(rec.Creator)
	stored.Position = r.next
	rec.Position = r.next

	r.byKey[k] = &stored
	r.byHandle[rec.Handle] = k
	r.order[k.contract] = append(r.order[k.contract], rec.ID)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, contract, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byKey[key{strings.ToLower(contract), id}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *rec
	return &out, nil
}

func (r *MemoryRepository) GetByHandle(ctx context.Context, handle string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.byHandle[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *r.byKey[k]
	return &out, nil
}

func (r *MemoryRepository) ListIDs(ctx context.Context, contract string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(make([]string, 0), r.order[strings.ToLower(contract)]...), nil
}

func (r *MemoryRepository) MarkVerified(ctx context.Context, contract, id string, value int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byKey[key{strings.ToLower(contract), id}]
	if !ok || rec.IsVerified {
		return common.ErrorNotFound
	}
	rec.IsVerified = true
	rec.VerifiedValue = value
	return nil
}


// Journaled returns a view of r that remembers the writes made through it.
// rollback undoes them in reverse order, leaving other writes to r alone.
func (r *MemoryRepository) Journaled() (repo Repository, rollback func()) {
	j := &journal{MemoryRepository: r}
	return j, j.rollback
}

type journal struct {
	*MemoryRepository
	undo []func()
}

func (j *journal) Create(ctx context.Context, rec *models.Record) error {
	if err := j.MemoryRepository.Create(ctx, rec); err != nil {
		return err
	}
	k := key{strings.ToLower(rec.ContractAddress), rec.ID}
	j.undo = append(j.undo, func() { j.remove(k) })
	return nil
}

func (j *journal) MarkVerified(ctx context.Context, contract, id string, value int64) error {
	if err := j.MemoryRepository.MarkVerified(ctx, contract, id, value); err != nil {
		return err
	}
	k := key{strings.ToLower(contract), id}
	j.undo = append(j.undo, func() { j.unverify(k) })
	return nil
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

func (r *MemoryRepository) remove(k key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byKey[k]
	if !ok {
		return
	}
	delete(r.byKey, k)
	if r.byHandle[rec.Handle] == k {
		delete(r.byHandle, rec.Handle)
	}
	if i := slices.Index(r.order[k.contract], k.id); i >= 0 {
		r.order[k.contract] = slices.Delete(r.order[k.contract], i, i+1)
	}
}

func (r *MemoryRepository) unverify(k key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.byKey[k]; ok {
		rec.IsVerified = false
		rec.VerifiedValue = 0
	}
}
