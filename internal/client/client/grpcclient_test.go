package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

/*************
 * Fake ledger client
 *************/

type fakeLedger struct {
	lastConnectReq  *ledger.ConnectRequest
	lastSendReq     *ledger.SendTransactionRequest
	lastDecryptReq  *ledger.RequestDecryptionRequest
	networkInfoHits int

	connectResp *ledger.ConnectResponse
	connectErr  error

	pingResp *ledger.PingResponse
	pingErr  error

	networkInfo    *ledger.NetworkInfo
	networkInfoErr error

	ids    []string
	idsErr error

	record    *ledger.RecordView
	recordErr error

	handle string

	sendResp *ledger.SendTransactionResponse
	sendErr  error

	receipts []ledger.Receipt // returned in order, last one repeats
	receiptN int

	decryptResp *ledger.RequestDecryptionResponse
	decryptErr  error
}

func (f *fakeLedger) Ping(context.Context, *ledger.PingRequest, ...grpc.CallOption) (*ledger.PingResponse, error) {
	return f.pingResp, f.pingErr
}
func (f *fakeLedger) GetNetworkInfo(context.Context, *ledger.GetNetworkInfoRequest, ...grpc.CallOption) (*ledger.NetworkInfo, error) {
	f.networkInfoHits++
	return f.networkInfo, f.networkInfoErr
}
func (f *fakeLedger) Connect(_ context.Context, in *ledger.ConnectRequest, _ ...grpc.CallOption) (*ledger.ConnectResponse, error) {
	f.lastConnectReq = in
	return f.connectResp, f.connectErr
}
func (f *fakeLedger) ListRecordIDs(context.Context, *ledger.ListRecordIDsRequest, ...grpc.CallOption) (*ledger.ListRecordIDsResponse, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return &ledger.ListRecordIDsResponse{IDs: f.ids}, nil
}
func (f *fakeLedger) GetRecord(context.Context, *ledger.GetRecordRequest, ...grpc.CallOption) (*ledger.GetRecordResponse, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return &ledger.GetRecordResponse{Record: *f.record}, nil
}
func (f *fakeLedger) GetEncryptedHandle(context.Context, *ledger.GetEncryptedHandleRequest, ...grpc.CallOption) (*ledger.GetEncryptedHandleResponse, error) {
	return &ledger.GetEncryptedHandleResponse{Handle: f.handle}, nil
}
func (f *fakeLedger) SendTransaction(_ context.Context, in *ledger.SendTransactionRequest, _ ...grpc.CallOption) (*ledger.SendTransactionResponse, error) {
	f.lastSendReq = in
	return f.sendResp, f.sendErr
}
func (f *fakeLedger) GetReceipt(_ context.Context, in *ledger.GetReceiptRequest, _ ...grpc.CallOption) (*ledger.GetReceiptResponse, error) {
	i := f.receiptN
	if i >= len(f.receipts) {
		i = len(f.receipts) - 1
	}
	f.receiptN++
	r := f.receipts[i]
	r.Hash = in.Hash
	return &ledger.GetReceiptResponse{Receipt: r}, nil
}
func (f *fakeLedger) RequestDecryption(_ context.Context, in *ledger.RequestDecryptionRequest, _ ...grpc.CallOption) (*ledger.RequestDecryptionResponse, error) {
	f.lastDecryptReq = in
	return f.decryptResp, f.decryptErr
}

/*************
 * Fake account
 *************/

type fakeAccount struct {
	key     ed25519.PrivateKey
	reject  bool
	signed  []ledger.Tx
	signErr error
}

func newFakeAccount(t *testing.T) *fakeAccount {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &fakeAccount{key: priv}
}

func (a *fakeAccount) PublicKey() ed25519.PublicKey { return a.key.Public().(ed25519.PublicKey) }
func (a *fakeAccount) Address() string              { return ledger.AddressFromPublicKey(a.PublicKey()) }
func (a *fakeAccount) SignMessage(msg []byte) ([]byte, error) {
	if a.signErr != nil {
		return nil, a.signErr
	}
	return ed25519.Sign(a.key, msg), nil
}
func (a *fakeAccount) SignTx(_ context.Context, tx ledger.Tx) (ledger.SignedTx, error) {
	if a.reject {
		return ledger.SignedTx{}, common.ErrUserRejected
	}
	a.signed = append(a.signed, tx)
	return ledger.SignTx(tx, a.key), nil
}

func newTestClient(f *fakeLedger) *GRPCClient {
	poll := retry.DefaultConfig()
	poll.InitialBackoff = time.Millisecond
	poll.MaxBackoff = 2 * time.Millisecond
	poll.MaxAttempts = 50
	return &GRPCClient{
		client: f,
		logger: logging.Discard(),
		poll:   poll,
		now:    func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func connected(t *testing.T, f *fakeLedger) (*GRPCClient, *fakeAccount) {
	t.Helper()
	acct := newFakeAccount(t)
	f.connectResp = &ledger.ConnectResponse{Address: acct.Address(), AccessToken: "A1"}
	c := newTestClient(f)
	require.NoError(t, c.Connect(context.Background(), acct))
	return c, acct
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_ReconnectsOnExpiredAndRetries(t *testing.T) {
	f := &fakeLedger{}
	c, acct := connected(t, f)
	f.connectResp = &ledger.ConnectResponse{Address: acct.Address(), AccessToken: "A2"}

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		md, _ := metadata.FromOutgoingContext(ctx)
		toks := md.Get(common.AccessTokenHeaderName)
		require.Len(t, toks, 1)
		require.Len(t, md.Get(common.RequestIDHeaderName), 1)

		if callCount == 1 {
			require.Equal(t, "A1", toks[0])
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		require.Equal(t, "A2", toks[0])
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), ledger.Ledger_SendTransaction_FullMethodName, nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
	assert.Equal(t, "A2", c.token())
}

func TestInterceptor_PassesThroughOtherErrors(t *testing.T) {
	f := &fakeLedger{}
	c, _ := connected(t, f)

	want := status.Error(codes.Unauthenticated, "missing token")
	calls := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return want
	}

	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	assert.Equal(t, want, err)
	assert.Equal(t, 1, calls)
}

func TestInterceptor_NoAccount_NoToken(t *testing.T) {
	c := newTestClient(&fakeLedger{})

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		md, _ := metadata.FromOutgoingContext(ctx)
		assert.Empty(t, md.Get(common.AccessTokenHeaderName))
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestInterceptor_PreservesOutgoingMetadata(t *testing.T) {
	c := newTestClient(&fakeLedger{})
	c.accessToken = "T"

	ctx := metadata.NewOutgoingContext(context.Background(), metadata.Pairs("k", "v", common.RequestIDHeaderName, "rid"))
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		assert.Equal(t, []string{"v"}, md.Get("k"))
		assert.Equal(t, []string{"rid"}, md.Get(common.RequestIDHeaderName))
		assert.Equal(t, []string{"T"}, md.Get(common.AccessTokenHeaderName))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker))
}

/*************
 * Session
 *************/

func TestConnect_SignsTimestamp(t *testing.T) {
	f := &fakeLedger{}
	c, acct := connected(t, f)

	require.NotNil(t, f.lastConnectReq)
	assert.Equal(t, int64(1700000000), f.lastConnectReq.Timestamp)
	assert.True(t, ed25519.Verify(acct.PublicKey(), ledger.ConnectMessage(1700000000), f.lastConnectReq.Signature))
	assert.True(t, c.Connected())
	assert.Equal(t, acct.Address(), c.Address())

	c.Disconnect()
	assert.False(t, c.Connected())
	assert.Equal(t, "", c.Address())
	assert.Equal(t, "", c.token())
}

func TestConnect_Errors(t *testing.T) {
	acct := newFakeAccount(t)

	t.Run("address mismatch", func(t *testing.T) {
		c := newTestClient(&fakeLedger{connectResp: &ledger.ConnectResponse{Address: "0xother", AccessToken: "A"}})
		assert.ErrorIs(t, c.Connect(context.Background(), acct), ErrAddressMismatch)
		assert.False(t, c.Connected())
	})

	t.Run("rejected by node", func(t *testing.T) {
		c := newTestClient(&fakeLedger{connectErr: status.Error(codes.Unauthenticated, "bad signature")})
		assert.ErrorIs(t, c.Connect(context.Background(), acct), ErrUnauthorized)
	})

	t.Run("sign fails", func(t *testing.T) {
		a := newFakeAccount(t)
		a.signErr = errors.New("locked")
		c := newTestClient(&fakeLedger{})
		assert.EqualError(t, c.Connect(context.Background(), a), "locked")
	})
}

/*************
 * Reads
 *************/

func TestNetworkInfo_IsCached(t *testing.T) {
	f := &fakeLedger{networkInfo: &ledger.NetworkInfo{ContractAddress: "0xc"}}
	c := newTestClient(f)

	for i := 0; i < 3; i++ {
		addr, err := c.ResolveAddress(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0xc", addr)
	}
	assert.Equal(t, 1, f.networkInfoHits)
}

func TestNetworkInfo_ErrorNotCached(t *testing.T) {
	f := &fakeLedger{networkInfoErr: status.Error(codes.Unavailable, "down")}
	c := newTestClient(f)

	_, err := c.NetworkInfo(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	f.networkInfoErr = nil
	f.networkInfo = &ledger.NetworkInfo{ContractAddress: "0xc"}
	_, err = c.NetworkInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.networkInfoHits)
}

func TestProbeAvailability(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeLedger
		want bool
	}{
		{"ok", &fakeLedger{pingResp: &ledger.PingResponse{Status: "OK"}, networkInfo: &ledger.NetworkInfo{ContractAddress: "0xc"}}, true},
		{"ping error", &fakeLedger{pingErr: status.Error(codes.Unavailable, "down")}, false},
		{"not ok", &fakeLedger{pingResp: &ledger.PingResponse{Status: "SYNCING"}}, false},
		{"no contract", &fakeLedger{pingResp: &ledger.PingResponse{Status: "OK"}, networkInfo: &ledger.NetworkInfo{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestClient(tt.f).ProbeAvailability(context.Background()))
		})
	}
}

func TestReads_MapErrors(t *testing.T) {
	f := &fakeLedger{
		idsErr:    status.Error(codes.Unavailable, "down"),
		recordErr: status.Error(codes.NotFound, "record-1"),
	}
	c := newTestClient(f)

	_, err := c.ListRecordIDs(context.Background(), "0xc")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.GetRecord(context.Background(), "0xc", "record-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMapError(t *testing.T) {
	c := newTestClient(&fakeLedger{})

	assert.NoError(t, c.mapError(nil))
	assert.ErrorIs(t, c.mapError(status.Error(codes.PermissionDenied, "x")), ErrUnauthorized)
	assert.ErrorIs(t, c.mapError(status.Error(codes.DeadlineExceeded, "x")), ErrUnavailable)
	assert.ErrorIs(t, c.mapError(status.Error(codes.Canceled, "x")), context.Canceled)

	err := c.mapError(status.Error(codes.InvalidArgument, "bad"))
	assert.ErrorContains(t, err, "rpc error")
}

/*************
 * Transactions
 *************/

func TestCreateRecord_RequiresAccount(t *testing.T) {
	c := newTestClient(&fakeLedger{})
	_, err := c.CreateRecord(context.Background(), models.CreateRecordRequest{ID: "record-1"})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, _, err = c.RequestDecryption(context.Background(), "0xc", []string{"0x1"})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestCreateRecord_SignsSendsAndWaits(t *testing.T) {
	f := &fakeLedger{
		sendResp: &ledger.SendTransactionResponse{Hash: "0xhash"},
		receipts: []ledger.Receipt{{Status: ledger.ReceiptPending}, {Status: ledger.ReceiptPending}, {Status: ledger.ReceiptSuccess, Block: 3}},
	}
	c, acct := connected(t, f)

	tx, err := c.CreateRecord(context.Background(), models.CreateRecordRequest{
		ContractAddress: "0xc",
		ID:              "record-1",
		Name:            "Bot",
		Payload:         []byte{1},
		InputProof:      []byte{2},
		PublicScore:     42,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", tx.Hash())

	require.Len(t, acct.signed, 1)
	sent := f.lastSendReq.Tx
	assert.Equal(t, ledger.TxCreateRecord, sent.Tx.Kind)
	assert.Equal(t, acct.Address(), sent.Tx.Sender)
	assert.Equal(t, int64(42), sent.Tx.PublicScore)
	require.NoError(t, sent.Verify())

	require.NoError(t, tx.Wait(context.Background()))
	assert.Equal(t, 3, f.receiptN)
}

func TestSubmit_UserRejected(t *testing.T) {
	f := &fakeLedger{}
	c, acct := connected(t, f)
	acct.reject = true

	_, err := c.SubmitVerification(context.Background(), "0xc", "record-1", nil, nil)
	assert.ErrorIs(t, err, common.ErrUserRejected)
	assert.Nil(t, f.lastSendReq)
}

func TestSubmit_SendFails(t *testing.T) {
	f := &fakeLedger{sendErr: status.Error(codes.InvalidArgument, "bad proof")}
	c, _ := connected(t, f)

	_, err := c.CreateRecord(context.Background(), models.CreateRecordRequest{ID: "record-1"})
	assert.ErrorIs(t, err, common.ErrTransactionFailed)
	assert.ErrorContains(t, err, "bad proof")
}

func TestWait_Reverted(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		want   error
	}{
		{"already verified", common.AlreadyVerifiedReason, common.ErrConcurrentlyVerified},
		{"other", "invalid decryption proof", common.ErrTransactionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeLedger{
				sendResp: &ledger.SendTransactionResponse{Hash: "0xh"},
				receipts: []ledger.Receipt{{Status: ledger.ReceiptReverted, Reason: tt.reason}},
			}
			c, _ := connected(t, f)

			tx, err := c.SubmitVerification(context.Background(), "0xc", "record-1", []byte{1}, []byte{2})
			require.NoError(t, err)
			err = tx.Wait(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, f.receiptN, "a revert is final")
		})
	}
}

func TestWait_HonorsContext(t *testing.T) {
	f := &fakeLedger{
		sendResp: &ledger.SendTransactionResponse{Hash: "0xh"},
		receipts: []ledger.Receipt{{Status: ledger.ReceiptPending}},
	}
	c, _ := connected(t, f)
	c.poll.MaxAttempts = 0

	tx, err := c.SubmitVerification(context.Background(), "0xc", "record-1", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = tx.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestDecryption(t *testing.T) {
	f := &fakeLedger{decryptResp: &ledger.RequestDecryptionResponse{ClearValues: []byte{1}, Proof: []byte{2}}}
	c, acct := connected(t, f)

	values, proof, err := c.RequestDecryption(context.Background(), "0xc", []string{"0x1"})
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, values)
	assert.Equal(t, []byte{2}, proof)
	assert.Equal(t, acct.Address(), f.lastDecryptReq.Requester)
	assert.Equal(t, []string{"0x1"}, f.lastDecryptReq.Handles)
}
