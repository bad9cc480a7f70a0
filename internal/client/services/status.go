package services

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
)

// StatusBoard holds the single transient transaction status. Success and
// error statuses hide themselves after their TTL; pending stays until
// replaced. Each update bumps a generation so a timer armed for an older
// status never hides a newer one.
type StatusBoard struct {
	successTTL time.Duration
	errorTTL   time.Duration
	onChange   func(models.TransactionStatus)

	mu    sync.Mutex
	gen   uint64
	cur   models.TransactionStatus
	timer *time.Timer
}

// NewStatusBoard creates a board. onChange, if set, is called after every
// update, outside the board's lock.
func NewStatusBoard(successTTL, errorTTL time.Duration, onChange func(models.TransactionStatus)) *StatusBoard {
	return &StatusBoard{
		successTTL: successTTL,
		errorTTL:   errorTTL,
		onChange:   onChange,
		cur:        models.TransactionStatus{Phase: models.PhasePending},
	}
}

func (b *StatusBoard) Pending(msg string) {
	b.set(models.PhasePending, msg, 0)
}

func (b *StatusBoard) Success(msg string) {
	b.set(models.PhaseSuccess, msg, b.successTTL)
}

func (b *StatusBoard) Error(msg string) {
	b.set(models.PhaseError, msg, b.errorTTL)
}

func (b *StatusBoard) Current() models.TransactionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

func (b *StatusBoard) set(phase models.Phase, msg string, ttl time.Duration) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.cur = models.TransactionStatus{Visible: true, Phase: phase, Message: msg}
	if ttl > 0 {
		b.timer = time.AfterFunc(ttl, func() { b.hide(gen) })
	}
	st := b.cur
	b.mu.Unlock()

	b.notify(st)
}

func (b *StatusBoard) hide(gen uint64) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.cur = models.TransactionStatus{Phase: models.PhasePending}
	b.timer = nil
	st := b.cur
	b.mu.Unlock()

	b.notify(st)
}

func (b *StatusBoard) notify(st models.TransactionStatus) {
	if b.onChange != nil {
		b.onChange(st)
	}
}
