// Package chain is a single-node ledger for the records contract. Accepted
// transactions wait in a mempool until the producer executes them, in
// submission order, as the next block.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/repomanager"
)

const DefaultMempoolSize = 1024

var (
	ErrWrongContract = errors.New("transaction targets another contract")
	ErrMempoolFull   = errors.New("mempool is full")
	ErrDuplicateTx   = errors.New("transaction already submitted")
)

// Observer receives chain events. *monitoring.Metrics implements it.
type Observer interface {
	TxAccepted(kind string)
	TxRejected(kind string)
	TxExecuted(kind, status string)
	BlockProduced(height uint64, took time.Duration, pending int)
	MempoolSize(n int)
}

type nopObserver struct{}

func (nopObserver) TxAccepted(string)                        {}
func (nopObserver) TxRejected(string)                        {}
func (nopObserver) TxExecuted(string, string)                {}
func (nopObserver) BlockProduced(uint64, time.Duration, int) {}
func (nopObserver) MempoolSize(int)                          {}

type Options struct {
	MempoolSize int
	Observer    Observer
	Now         func() time.Time
}

type Chain struct {
	contract string
	keys     *sealing.NetworkKeys
	repos    repomanager.RepositoryManager
	blobs    blobstore.Store
	logger   logging.Logger
	observer Observer
	now      func() time.Time
	maxQueue int

	// produceMu serializes block production.
	produceMu sync.Mutex

	mu    sync.Mutex
	queue []ledger.SignedTx

	height atomic.Uint64
}

func New(contract string, keys *sealing.NetworkKeys, repos repomanager.RepositoryManager, blobs blobstore.Store, logger logging.Logger, opts Options) *Chain {
	if opts.MempoolSize <= 0 {
		opts.MempoolSize = DefaultMempoolSize
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Chain{
		contract: contract,
		keys:     keys,
		repos:    repos,
		blobs:    blobs,
		logger:   logger.With("module", "chain"),
		observer: opts.Observer,
		now:      opts.Now,
		maxQueue: opts.MempoolSize,
	}
}

func (c *Chain) Contract() string { return c.contract }
func (c *Chain) Height() uint64   { return c.height.Load() }

// Submit validates stx, records a pending receipt and queues it for the
// next block. It returns the transaction hash.
func (c *Chain) Submit(ctx context.Context, stx ledger.SignedTx) (string, error) {
	kind := string(stx.Tx.Kind)

	if err := stx.Verify(); err != nil {
		c.observer.TxRejected(kind)
		return "", err
	}
	if !ledger.SameAddress(stx.Tx.ContractAddress, c.contract) {
		c.observer.TxRejected(kind)
		return "", ErrWrongContract
	}

	hash := stx.Tx.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) >= c.maxQueue {
		c.observer.TxRejected(kind)
		return "", ErrMempoolFull
	}
	if _, err := c.repos.Receipts().Get(ctx, hash); err == nil {
		c.observer.TxRejected(kind)
		return "", ErrDuplicateTx
	}

	if err := c.repos.Receipts().Put(ctx, ledger.Receipt{Hash: hash, Status: ledger.ReceiptPending}); err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	c.queue = append(c.queue, stx)

	c.observer.TxAccepted(kind)
	c.observer.MempoolSize(len(c.queue))
	c.logger.Debug(ctx, "transaction accepted", "hash", hash, "kind", kind, "sender", stx.Tx.Sender)
	return hash, nil
}

// Receipt returns the receipt for hash, or common.ErrorNotFound.
func (c *Chain) Receipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	return c.repos.Receipts().Get(ctx, hash)
}

// ProduceBlock executes every queued transaction. An empty mempool produces
// no block. It returns the resulting height and the number of transactions
// executed.
func (c *Chain) ProduceBlock(ctx context.Context) (uint64, int, error) {
	c.produceMu.Lock()
	defer c.produceMu.Unlock()

	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return c.height.Load(), 0, nil
	}

	started := c.now()
	height := c.height.Load() + 1

	for i, stx := range batch {
		if err := ctx.Err(); err != nil {
			c.requeue(batch[i:])
			if i > 0 {
				c.height.Store(height)
			}
			return c.height.Load(), i, err
		}
		c.execute(ctx, height, stx)
	}

	c.height.Store(height)

	c.mu.Lock()
	pending := len(c.queue)
	c.mu.Unlock()

	c.observer.BlockProduced(height, c.now().Sub(started), pending)
	c.logger.Info(ctx, "block produced", "height", height, "txs", len(batch))
	return height, len(batch), nil
}

func (c *Chain) requeue(rest []ledger.SignedTx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(append([]ledger.SignedTx(nil), rest...), c.queue...)
}

func (c *Chain) execute(ctx context.Context, height uint64, stx ledger.SignedTx) {
	tx := stx.Tx
	hash := tx.Hash()

	err := c.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repos) error {
		if err := c.apply(ctx, r, &tx); err != nil {
			return err
		}
		return r.Receipts.Put(ctx, ledger.Receipt{Hash: hash, Status: ledger.ReceiptSuccess, Block: height})
	})
	if err == nil {
		c.observer.TxExecuted(string(tx.Kind), string(ledger.ReceiptSuccess))
		return
	}

	reason := revertReason(err)
	var rev *revertError
	if !errors.As(err, &rev) {
		c.logger.Error(ctx, "transaction execution failed", "hash", hash, "error", err)
	} else {
		c.logger.Info(ctx, "transaction reverted", "hash", hash, "reason", reason)
	}

	rc := ledger.Receipt{Hash: hash, Status: ledger.ReceiptReverted, Block: height, Reason: reason}
	if err := c.repos.Receipts().Put(ctx, rc); err != nil {
		c.logger.Error(ctx, "store receipt", "hash", hash, "error", err)
	}
	c.observer.TxExecuted(string(tx.Kind), string(ledger.ReceiptReverted))
}

// Run produces a block every interval until ctx is done, then flushes the
// mempool in one last block.
func (c *Chain) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, _, err := c.ProduceBlock(context.WithoutCancel(ctx)); err != nil {
				c.logger.Error(ctx, "final block failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if _, _, err := c.ProduceBlock(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error(ctx, "block production failed", "error", err)
			}
		}
	}
}
