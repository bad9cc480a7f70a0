package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"golang.org/x/sync/singleflight"
)

// Status messages.
const (
	MsgConnectFirst       = "Please connect wallet first"
	MsgNotReady           = "Encryption is not initialized yet"
	MsgCreating           = "Creating record with encrypted value..."
	MsgWaitingConfirm     = "Waiting for transaction confirmation..."
	MsgCreated            = "Record created successfully!"
	MsgUserRejected       = "Transaction rejected by user"
	MsgSubmissionFailed   = "Submission failed: "
	MsgAlreadyVerified    = "Data already verified on-chain"
	MsgVerifying          = "Verifying decryption on-chain..."
	MsgDecrypted          = "Data decrypted and verified successfully!"
	MsgConcurrentVerified = "Data is already verified on-chain"
	MsgDecryptionFailed   = "Decryption failed: "
	MsgAvailable          = "Contract is available and ready!"
	MsgUnavailable        = "Availability check failed"
	MsgLoadFailed         = "Failed to load data"
	MsgInitFailed         = "Encryption initialization failed"
)

var ErrUnavailable = errors.New("contract unavailable")

// RecordService is the lifecycle controller for confidential records.
type RecordService interface {
	// Start initializes encryption and loads the list after a wallet
	// connected.
	Start(ctx context.Context) error
	CreateRecord(ctx context.Context, name, rawValue, description string) (*models.Record, error)
	// RequestDecryption returns the verified clear value of a record. ok is
	// false when no new value was obtained; err is nil in that case if the
	// record turned out to be verified by someone else meanwhile.
	RequestDecryption(ctx context.Context, id string) (value int64, ok bool, err error)
	Refresh(ctx context.Context) ([]models.Record, error)
	CheckAvailability(ctx context.Context) error

	Records() []models.Record
	Record(id string) (models.Record, bool)
	LoadCached(ctx context.Context) ([]models.Record, error)
	Decrypted(id string) (int64, bool)
	Forget(id string)
	Status() models.TransactionStatus
	Stats() Stats
	// Wait blocks until background refreshes finished.
	Wait()
}

// Stats summarizes the current snapshot.
type Stats struct {
	Total        int
	Verified     int
	AverageScore float64
}

// Options tune a RecordService. Zero values pick the defaults.
type Options struct {
	SuccessTTL time.Duration
	ErrorTTL   time.Duration
	// OnStatus observes every status change.
	OnStatus func(models.TransactionStatus)
	// Cache receives every successful refresh.
	Cache SnapshotCache
	// Coerce parses the raw value of a new record. Defaults to CoerceValue.
	Coerce ValueCoercer
	// PublicScore picks the public score of a new record. Defaults to a
	// pseudo-random value in [0, 100).
	PublicScore func() int64
	Now         func() time.Time
}

type recordService struct {
	identity    Identity
	store       RecordStore
	gateway     EncryptionGateway
	coordinator DecryptionCoordinator
	cache       SnapshotCache
	logger      logging.Logger
	status      *StatusBoard
	coerce      ValueCoercer
	score       func() int64
	now         func() time.Time

	refreshes  singleflight.Group
	writes     atomic.Uint64
	background sync.WaitGroup

	mu        sync.RWMutex
	records   []models.Record
	decrypted map[string]int64

	guardMu  sync.Mutex
	inFlight map[string]struct{}
}

func NewRecordService(identity Identity, store RecordStore, gateway EncryptionGateway,
	coordinator DecryptionCoordinator, logger logging.Logger, opts Options) RecordService {

	if opts.SuccessTTL <= 0 {
		opts.SuccessTTL = 2 * time.Second
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = 3 * time.Second
	}
	if opts.Coerce == nil {
		opts.Coerce = CoerceValue
	}
	if opts.PublicScore == nil {
		opts.PublicScore = func() int64 { return rand.Int64N(100) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &recordService{
		identity:    identity,
		store:       store,
		gateway:     gateway,
		coordinator: coordinator,
		cache:       opts.Cache,
		logger:      logger.With("module", "records"),
		status:      NewStatusBoard(opts.SuccessTTL, opts.ErrorTTL, opts.OnStatus),
		coerce:      opts.Coerce,
		score:       opts.PublicScore,
		now:         opts.Now,
		decrypted:   make(map[string]int64),
		inFlight:    make(map[string]struct{}),
	}
}

func (s *recordService) Start(ctx context.Context) error {
	if s.identity.Address() == "" {
		return common.ErrUnauthenticated
	}

	var initErr error
	if err := s.gateway.Initialize(ctx); err != nil {
		s.logger.Error(ctx, "encryption initialization failed", "error", err)
		s.status.Error(MsgInitFailed)
		initErr = fmt.Errorf("%w: %w", common.ErrNotReady, err)
	}

	if _, err := s.store.ResolveAddress(ctx); err != nil {
		s.logger.Warn(ctx, "contract address not resolved", "error", err)
	}

	_, err := s.Refresh(ctx)
	return errors.Join(initErr, err)
}

func (s *recordService) CreateRecord(ctx context.Context, name, rawValue, description string) (*models.Record, error) {
	caller := s.identity.Address()
	if caller == "" {
		s.status.Error(MsgConnectFirst)
		return nil, common.ErrUnauthenticated
	}
	if !s.gateway.Ready() {
		s.status.Error(MsgNotReady)
		return nil, common.ErrNotReady
	}

	value := s.coerce(rawValue)
	id := fmt.Sprintf("record-%d", s.now().UnixNano())

	s.status.Pending(MsgCreating)

	contract, err := s.store.ResolveAddress(ctx)
	if err != nil {
		return nil, s.createFailed(ctx, id, err)
	}

	input, err := s.gateway.Encrypt(ctx, contract, caller, value)
	if err != nil {
		return nil, s.createFailed(ctx, id, err)
	}

	tx, err := s.store.CreateRecord(ctx, models.CreateRecordRequest{
		ContractAddress:      contract,
		ID:                   id,
		Name:                 name,
		Description:          description,
		Payload:              input.Payload,
		InputProof:           input.Proof,
		PublicScore:          s.score(),
		SecondaryPublicValue: 0,
	})
	if err != nil {
		return nil, s.createFailed(ctx, id, err)
	}

	s.status.Pending(MsgWaitingConfirm)
	if err := tx.Wait(ctx); err != nil {
		return nil, s.createFailed(ctx, id, err)
	}

	s.logger.Info(ctx, "record created", "id", id, "tx", tx.Hash())
	s.status.Success(MsgCreated)

	if _, err := s.refreshAfterWrite(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after create failed", "error", err)
	}

	if rec, ok := s.Record(id); ok {
		return &rec, nil
	}
	return &models.Record{
		ID:                   id,
		Name:                 name,
		Description:          description,
		Creator:              caller,
		CreatedAt:            s.now().Unix(),
		EncryptedValueHandle: sealing.HandleOf(input.Payload),
	}, nil
}

func (s *recordService) createFailed(ctx context.Context, id string, err error) error {
	s.logger.Error(ctx, "record creation failed", "id", id, "error", err)
	if errors.Is(err, common.ErrUserRejected) {
		s.status.Error(MsgUserRejected)
	} else {
		s.status.Error(MsgSubmissionFailed + err.Error())
	}
	return err
}

func (s *recordService) RequestDecryption(ctx context.Context, id string) (int64, bool, error) {
	if s.identity.Address() == "" {
		s.status.Error(MsgConnectFirst)
		return 0, false, common.ErrUnauthenticated
	}

	if !s.acquire(id) {
		return 0, false, common.ErrAlreadyInProgress
	}
	defer s.release(id)

	contract, err := s.store.ResolveAddress(ctx)
	if err != nil {
		return s.decryptFailed(ctx, id, err)
	}

	view, err := s.store.GetRecord(ctx, contract, id)
	if err != nil {
		return s.decryptFailed(ctx, id, err)
	}

	if view.IsVerified {
		value := coerceNumeric(view.VerifiedValue)
		s.status.Success(MsgAlreadyVerified)
		s.refreshInBackground(ctx)
		return value, true, nil
	}

	handle, err := s.store.GetEncryptedHandle(ctx, contract, id)
	if err != nil {
		return s.decryptFailed(ctx, id, err)
	}

	result, err := s.coordinator.RequestAndVerify(ctx, []string{handle}, contract,
		func(ctx context.Context, clearValues, proof []byte) (models.PendingTx, error) {
			s.status.Pending(MsgVerifying)
			return s.store.SubmitVerification(ctx, contract, id, clearValues, proof)
		})
	if err != nil {
		return s.decryptFailed(ctx, id, err)
	}

	value, ok := result.ClearValues[handle]
	if !ok {
		return s.decryptFailed(ctx, id, fmt.Errorf("no clear value for handle %s", handle))
	}

	s.mu.Lock()
	s.decrypted[id] = value
	s.mu.Unlock()

	if _, err := s.refreshAfterWrite(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after decryption failed", "error", err)
	}

	s.logger.Info(ctx, "record decrypted and verified", "id", id)
	s.status.Success(MsgDecrypted)
	return value, true, nil
}

func (s *recordService) decryptFailed(ctx context.Context, id string, err error) (int64, bool, error) {
	if errors.Is(err, common.ErrConcurrentlyVerified) || strings.Contains(strings.ToLower(err.Error()), "already verified") {
		s.logger.Info(ctx, "record verified concurrently", "id", id)
		s.status.Success(MsgConcurrentVerified)
		if _, rerr := s.refreshAfterWrite(ctx); rerr != nil {
			s.logger.Warn(ctx, "refresh after concurrent verification failed", "error", rerr)
		}
		return 0, false, nil
	}

	s.logger.Error(ctx, "decryption failed", "id", id, "error", err)
	s.status.Error(MsgDecryptionFailed + err.Error())
	return 0, false, err
}

func (s *recordService) acquire(id string) bool {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *recordService) release(id string) {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	delete(s.inFlight, id)
}

func (s *recordService) refreshInBackground(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn(ctx, "background refresh failed", "error", err)
		}
	}()
}

// Refresh replaces the snapshot with a full re-read of the store. Overlapping
// calls share one read.
func (s *recordService) Refresh(ctx context.Context) ([]models.Record, error) {
	if s.identity.Address() == "" {
		return nil, nil
	}

	res, err := s.sharedRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return cloneRecords(res.records), nil
}

// refreshAfterWrite is Refresh for a caller whose write was just confirmed.
// A shared read that started before the confirmation may miss the write, so
// it is awaited and followed by a read of its own.
func (s *recordService) refreshAfterWrite(ctx context.Context) ([]models.Record, error) {
	if s.identity.Address() == "" {
		return nil, nil
	}

	seq := s.writes.Add(1)
	for {
		res, err := s.sharedRefresh(ctx)
		if err != nil {
			return nil, err
		}
		if res.seq >= seq {
			return cloneRecords(res.records), nil
		}
	}
}

type refreshResult struct {
	records []models.Record
	// seq is the number of confirmed writes seen before the read began.
	seq uint64
}

// sharedRefresh joins the read in flight or starts one. The read is detached
// from the caller's cancellation so a caller that gives up does not fail the
// others waiting on it.
func (s *recordService) sharedRefresh(ctx context.Context) (refreshResult, error) {
	ch := s.refreshes.DoChan("refresh", func() (any, error) {
		seq := s.writes.Load()
		recs, err := s.refresh(context.WithoutCancel(ctx))
		return refreshResult{records: recs, seq: seq}, err
	})

	select {
	case <-ctx.Done():
		return refreshResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return refreshResult{}, r.Err
		}
		return r.Val.(refreshResult), nil
	}
}

func (s *recordService) refresh(ctx context.Context) ([]models.Record, error) {
	contract, err := s.store.ResolveAddress(ctx)
	if err != nil {
		return nil, s.loadFailed(ctx, err)
	}

	ids, err := s.store.ListRecordIDs(ctx, contract)
	if err != nil {
		return nil, s.loadFailed(ctx, err)
	}

	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		view, err := s.store.GetRecord(ctx, contract, id)
		if err != nil {
			s.logger.Warn(ctx, "skipping record", "id", id, "error", err)
			continue
		}
		handle, err := s.store.GetEncryptedHandle(ctx, contract, id)
		if err != nil {
			s.logger.Warn(ctx, "skipping record", "id", id, "error", err)
			continue
		}
		out = append(out, toRecord(id, view, handle))
	}

	s.mu.Lock()
	s.records = out
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveSnapshot(ctx, out); err != nil {
			s.logger.Warn(ctx, "snapshot not cached", "error", err)
		}
	}

	s.logger.Debug(ctx, "records refreshed", "count", len(out))
	return out, nil
}

func (s *recordService) loadFailed(ctx context.Context, err error) error {
	s.logger.Error(ctx, "failed to load records", "error", err)
	s.status.Error(MsgLoadFailed)
	return fmt.Errorf("%w: %w", common.ErrFetchFailed, err)
}

func toRecord(id string, v *ledger.RecordView, handle string) models.Record {
	return models.Record{
		ID:                   id,
		Name:                 v.Name,
		Description:          v.Description,
		PublicScore:          coerceNumeric(v.PublicScore),
		SecondaryPublicValue: coerceNumeric(v.SecondaryPublicValue),
		Creator:              v.Creator,
		CreatedAt:            coerceNumeric(v.CreatedAt),
		IsVerified:           v.IsVerified,
		EncryptedValueHandle: handle,
		VerifiedValue:        coerceNumeric(v.VerifiedValue),
	}
}

func (s *recordService) CheckAvailability(ctx context.Context) error {
	if !s.store.ProbeAvailability(ctx) {
		s.status.Error(MsgUnavailable)
		return ErrUnavailable
	}
	s.status.Success(MsgAvailable)
	return nil
}

func (s *recordService) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

func (s *recordService) Record(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

// LoadCached fills an empty snapshot from the offline cache.
func (s *recordService) LoadCached(ctx context.Context) ([]models.Record, error) {
	if s.cache == nil {
		return s.Records(), nil
	}
	recs, err := s.cache.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if len(s.records) == 0 {
		s.records = recs
	}
	s.mu.Unlock()
	return cloneRecords(recs), nil
}

// Decrypted returns the value this session decrypted for id, if any. It is
// advisory; the ledger's VerifiedValue is authoritative.
func (s *recordService) Decrypted(id string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.decrypted[id]
	return v, ok
}

func (s *recordService) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decrypted, id)
}

func (s *recordService) Status() models.TransactionStatus {
	return s.status.Current()
}

func (s *recordService) Stats() Stats {
	return ComputeStats(s.Records())
}

func (s *recordService) Wait() {
	s.background.Wait()
}

// ComputeStats counts records and averages their public scores.
func ComputeStats(recs []models.Record) Stats {
	st := Stats{Total: len(recs)}
	if len(recs) == 0 {
		return st
	}
	var sum int64
	for _, r := range recs {
		if r.IsVerified {
			st.Verified++
		}
		sum += r.PublicScore
	}
	st.AverageScore = float64(sum) / float64(len(recs))
	return st
}

func cloneRecords(in []models.Record) []models.Record {
	if in == nil {
		return nil
	}
	out := make([]models.Record, len(in))
	copy(out, in)
	return out
}
