package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
)

const (
	testContract = "0x00000000000000000000000000000000000000c0"
	testCaller   = "0x00000000000000000000000000000000000000a1"
)

type fakeIdentity struct {
	mu   sync.Mutex
	addr string
}

func (f *fakeIdentity) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

type fakeGateway struct {
	ready       atomic.Bool
	initErr     error
	encryptErr  error
	initCalls   atomic.Int32
	encryptHits atomic.Int32
}

func (f *fakeGateway) Initialize(ctx context.Context) error {
	f.initCalls.Add(1)
	if f.initErr != nil {
		return f.initErr
	}
	f.ready.Store(true)
	return nil
}

func (f *fakeGateway) Ready() bool { return f.ready.Load() }

func (f *fakeGateway) Encrypt(ctx context.Context, target, caller string, value int64) (*models.EncryptedInput, error) {
	f.encryptHits.Add(1)
	if f.encryptErr != nil {
		return nil, f.encryptErr
	}
	payload := []byte(fmt.Sprintf("%s|%s|%d", target, caller, value))
	return &models.EncryptedInput{Payload: payload, Proof: []byte("proof")}, nil
}

type fakeTx struct {
	hash string
	err  error
}

func (t *fakeTx) Hash() string                   { return t.hash }
func (t *fakeTx) Wait(ctx context.Context) error { return t.err }

type storedRecord struct {
	view   ledger.RecordView
	handle string
	value  int64
}

// fakeStore is an in-memory ledger. Payloads produced by fakeGateway end in
// the clear value, so the fake can "decrypt" them.
type fakeStore struct {
	mu      sync.Mutex
	ids     []string
	records map[string]*storedRecord

	resolveErr error
	listErr    error
	getErr     map[string]error
	createErr  error
	waitErr    error
	submitErr  error
	available  bool

	listCalls   atomic.Int32
	getCalls    atomic.Int32
	submissions atomic.Int32

	// The next call of the method named by pauseAt ("list" or "handle")
	// reports on paused once it has read the store, then blocks until resume
	// is closed.
	pauseMu sync.Mutex
	pauseAt string
	paused  chan struct{}
	resume  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*storedRecord), getErr: make(map[string]error), available: true}
}

func (f *fakeStore) put(id string, view ledger.RecordView, value int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	view.ID = id
	f.ids = append(f.ids, id)
	f.records[id] = &storedRecord{view: view, handle: "0xhandle-" + id, value: value}
}

func (f *fakeStore) pauseNext(method string) {
	f.pauseMu.Lock()
	defer f.pauseMu.Unlock()
	f.pauseAt = method
	f.paused = make(chan struct{}, 1)
	f.resume = make(chan struct{})
}

func (f *fakeStore) maybePause(method string) {
	f.pauseMu.Lock()
	hit := f.pauseAt == method
	if hit {
		f.pauseAt = ""
	}
	paused, resume := f.paused, f.resume
	f.pauseMu.Unlock()

	if hit {
		paused <- struct{}{}
		<-resume
	}
}

func (f *fakeStore) ResolveAddress(ctx context.Context) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return testContract, nil
}

func (f *fakeStore) ListRecordIDs(ctx context.Context, contract string) ([]string, error) {
	f.listCalls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	ids := append([]string(nil), f.ids...)
	f.mu.Unlock()

	f.maybePause("list")
	return ids, nil
}

func (f *fakeStore) GetRecord(ctx context.Context, contract, id string) (*ledger.RecordView, error) {
	f.getCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	r, ok := f.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	v := r.view
	return &v, nil
}

func (f *fakeStore) GetEncryptedHandle(ctx context.Context, contract, id string) (string, error) {
	f.mu.Lock()
	r, ok := f.records[id]
	f.mu.Unlock()
	if !ok {
		return "", common.ErrorNotFound
	}

	f.maybePause("handle")
	return r.handle, nil
}

func (f *fakeStore) CreateRecord(ctx context.Context, req models.CreateRecordRequest) (models.PendingTx, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	tx := &fakeTx{hash: "0xcreate-" + req.ID, err: f.waitErr}
	if f.waitErr != nil {
		return tx, nil
	}

	raw := string(req.Payload)
	value, _ := strconv.ParseInt(raw[strings.LastIndexByte(raw, '|')+1:], 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, req.ID)
	f.records[req.ID] = &storedRecord{
		view: ledger.RecordView{
			ID:                   req.ID,
			Name:                 req.Name,
			Description:          req.Description,
			PublicScore:          strconv.FormatInt(req.PublicScore, 10),
			SecondaryPublicValue: strconv.FormatInt(req.SecondaryPublicValue, 10),
			Creator:              testCaller,
			CreatedAt:            "1700000000",
			VerifiedValue:        "0",
		},
		handle: sealing.HandleOf(req.Payload),
		value:  value,
	}
	return tx, nil
}

func (f *fakeStore) SubmitVerification(ctx context.Context, contract, id string, clearValues, proof []byte) (models.PendingTx, error) {
	f.submissions.Add(1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	values, err := sealing.DecodeClearValues(clearValues)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.view.IsVerified {
		return &fakeTx{hash: "0xverify-" + id, err: common.ErrConcurrentlyVerified}, nil
	}
	r.view.IsVerified = true
	r.view.VerifiedValue = strconv.FormatInt(values[0], 10)
	return &fakeTx{hash: "0xverify-" + id}, nil
}

func (f *fakeStore) ProbeAvailability(ctx context.Context) bool { return f.available }

func (f *fakeStore) valueOf(handle string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.handle == handle {
			return r.value, true
		}
	}
	return 0, false
}

// fakeCoordinator resolves handles through the store and runs the
// continuation. When gate is set it blocks after entering until gate is
// closed.
type fakeCoordinator struct {
	store    *fakeStore
	err      error
	entered  chan struct{}
	gate     chan struct{}
	returned chan struct{}
	calls    atomic.Int32
}

func (f *fakeCoordinator) RequestAndVerify(ctx context.Context, handles []string, contract string, onProofReady models.ProofContinuation) (*models.DecryptionResult, error) {
	f.calls.Add(1)
	if f.returned != nil {
		defer func() { f.returned <- struct{}{} }()
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}

	values := make([]int64, len(handles))
	out := make(map[string]int64, len(handles))
	for i, h := range handles {
		v, ok := f.store.valueOf(h)
		if !ok {
			return nil, errors.New("unknown handle")
		}
		values[i] = v
		out[h] = v
	}

	tx, err := onProofReady(ctx, sealing.EncodeClearValues(values), []byte("kms-proof"))
	if err != nil {
		return nil, err
	}
	if err := tx.Wait(ctx); err != nil {
		return nil, err
	}
	return &models.DecryptionResult{ClearValues: out}, nil
}

type memoryCache struct {
	mu    sync.Mutex
	saved []models.Record
	saves int
}

func (c *memoryCache) SaveSnapshot(ctx context.Context, recs []models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append([]models.Record(nil), recs...)
	c.saves++
	return nil
}

func (c *memoryCache) LoadSnapshot(ctx context.Context) ([]models.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Record(nil), c.saved...), nil
}
