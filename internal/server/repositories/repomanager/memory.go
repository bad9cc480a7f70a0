package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/receipts"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/records"
)

// MemoryRepositoryManager keeps all state in process memory. WithTx calls
// are serialized, and the writes of a failed call are undone.
type MemoryRepositoryManager struct {
	txMu     sync.Mutex
	records  *records.MemoryRepository
	receipts *receipts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		records:  records.NewMemoryRepository(),
		receipts: receipts.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Records() records.Repository             { return m.records }
func (m *MemoryRepositoryManager) Receipts() receipts.Repository           { return m.receipts }
func (m *MemoryRepositoryManager) Close() error                            { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	recs, undoRecords := m.records.Journaled()
	rcpts, undoReceipts := m.receipts.Journaled()

	if err := fn(ctx, Repos{Records: recs, Receipts: rcpts}); err != nil {
		undoReceipts()
		undoRecords()
		return err
	}
	return nil
}
