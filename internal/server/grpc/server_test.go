package grpc

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	testSecret   = "secret"
	testContract = "0xc0ffee"
)

type fakeChain struct {
	mu        sync.Mutex
	height    uint64
	submitted []ledger.SignedTx
	submitErr error
	receipts  map[string]ledger.Receipt
}

func (c *fakeChain) Contract() string { return testContract }
func (c *fakeChain) Height() uint64   { return c.height }

func (c *fakeChain) Submit(ctx context.Context, stx ledger.SignedTx) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submitted = append(c.submitted, stx)
	return stx.Tx.Hash(), nil
}

func (c *fakeChain) Receipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	rc, ok := c.receipts[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rc, nil
}

type fakeDecrypter struct {
	encoded, proof []byte
	err            error
	handles        []string
}

func (d *fakeDecrypter) Decrypt(ctx context.Context, contract string, handles []string) ([]byte, []byte, error) {
	d.handles = handles
	return d.encoded, d.proof, d.err
}

type countingObserver struct {
	mu          sync.Mutex
	calls       map[string]string
	decryptions []bool
}

func (o *countingObserver) GRPCRequest(method, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[method] = code
}

func (o *countingObserver) Decryption(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decryptions = append(o.decryptions, ok)
}

type fixture struct {
	srv      *GRPCServer
	chain    *fakeChain
	records  *records.MemoryRepository
	kms      *fakeDecrypter
	observer *countingObserver
	keys     *sealing.NetworkKeys
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := sealing.DeriveNetworkKeys(make([]byte, 32))
	require.NoError(t, err)

	f := &fixture{
		chain:    &fakeChain{height: 3, receipts: map[string]ledger.Receipt{}},
		records:  records.NewMemoryRepository(),
		kms:      &fakeDecrypter{},
		observer: &countingObserver{calls: map[string]string{}},
		keys:     keys,
	}
	f.srv = NewGRPCServer("127.0.0.1:0", logging.Discard(), f.chain, f.records, f.kms, Options{
		ChainID:       "test",
		Keys:          keys,
		SecretKey:     testSecret,
		TokenValidity: time.Minute,
		Observer:      f.observer,
	})
	return f
}

func newAccount(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return key, ledger.AddressFromPublicKey(key.Public().(ed25519.PublicKey))
}

func tokenFor(t *testing.T, address string) string {
	t.Helper()
	tok, _, err := auth.GenerateToken(address, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return tok
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- f.srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.srv.address = "127.0.0.1:99999"

	assert.Error(t, f.srv.Run(context.Background()))
}

func TestServe_OverLoopback(t *testing.T) {
	f := newFixture(t)
	key, address := newAccount(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	c := ledger.NewLedgerClient(conn)

	pong, err := c.Ping(ctx, &ledger.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pong.Height)

	ts := time.Now().Unix()
	conned, err := c.Connect(ctx, &ledger.ConnectRequest{
		PublicKey: key.Public().(ed25519.PublicKey),
		Timestamp: ts,
		Signature: ed25519.Sign(key, ledger.ConnectMessage(ts)),
	})
	require.NoError(t, err)
	assert.Equal(t, address, conned.Address)

	tx := ledger.SignTx(ledger.Tx{Kind: ledger.TxCreateRecord, Sender: address, ContractAddress: testContract, RecordID: "r"}, key)

	_, err = c.SendTransaction(ctx, &ledger.SendTransactionRequest{Tx: tx})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, conned.AccessToken)
	sent, err := c.SendTransaction(authed, &ledger.SendTransactionRequest{Tx: tx})
	require.NoError(t, err)
	assert.Equal(t, tx.Tx.Hash(), sent.Hash)

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	assert.Equal(t, "OK", f.observer.calls[ledger.Ledger_Ping_FullMethodName])
	assert.Equal(t, "OK", f.observer.calls[ledger.Ledger_SendTransaction_FullMethodName])
}
