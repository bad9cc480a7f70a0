package client

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/retry"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Account is the signing identity a session is opened for.
type Account interface {
	Address() string
	PublicKey() ed25519.PublicKey
	SignMessage(msg []byte) ([]byte, error)
	SignTx(ctx context.Context, tx ledger.Tx) (ledger.SignedTx, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      ledger.LedgerClient
	logger      logging.Logger
	poll        retry.Config
	now         func() time.Time

	mu          sync.RWMutex
	account     Account
	accessToken string
	network     *ledger.NetworkInfo
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	if len(md.Get(common.RequestIDHeaderName)) == 0 {
		md.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) currentAccount() Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// accessTokenInterceptor attaches the session token. When the node reports
// the token as expired it opens a new session for the same account and
// retries the call once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	ctx = withAccessToken(ctx, s.token())

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || method == ledger.Ledger_Connect_FullMethodName {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	acct := s.currentAccount()
	if acct == nil {
		return err
	}

	s.logger.Info(ctx, "session expired, reconnecting", "address", acct.Address())
	if err := s.Connect(ctx, acct); err != nil {
		return err
	}

	ctx = withAccessToken(ctx, s.token())
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily; no network traffic happens until
// the first call. pollInterval is the first delay between receipt polls.
func NewGRPCClient(endpointURL string, logger logging.Logger, pollInterval time.Duration) (*GRPCClient, error) {
	poll := retry.DefaultConfig()
	if pollInterval > 0 {
		poll.InitialBackoff = pollInterval
	}

	c := &GRPCClient{
		endpointURL: endpointURL,
		logger:      logger.With("module", "grpc_client"),
		poll:        poll,
		now:         time.Now,
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = ledger.NewLedgerClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Connect opens a session for acct by signing the current time.
func (s *GRPCClient) Connect(ctx context.Context, acct Account) error {
	ts := s.now().Unix()
	sig, err := acct.SignMessage(ledger.ConnectMessage(ts))
	if err != nil {
		return err
	}

	resp, err := s.client.Connect(ctx, &ledger.ConnectRequest{
		PublicKey: acct.PublicKey(),
		Timestamp: ts,
		Signature: sig,
	})
	if err != nil {
		return s.mapError(err)
	}
	if !ledger.SameAddress(resp.Address, acct.Address()) {
		return ErrAddressMismatch
	}

	s.mu.Lock()
	s.account = acct
	s.accessToken = resp.AccessToken
	s.mu.Unlock()

	return nil
}

// Disconnect forgets the session. Network info stays cached.
func (s *GRPCClient) Disconnect() {
	s.mu.Lock()
	s.account = nil
	s.accessToken = ""
	s.mu.Unlock()
}

func (s *GRPCClient) Connected() bool {
	return s.currentAccount() != nil
}

// Address returns the connected account address, or "".
func (s *GRPCClient) Address() string {
	if acct := s.currentAccount(); acct != nil {
		return acct.Address()
	}
	return ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &ledger.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// NetworkInfo fetches the node's public keys and contract address. The first
// successful answer is cached for the life of the client.
func (s *GRPCClient) NetworkInfo(ctx context.Context) (*ledger.NetworkInfo, error) {
	s.mu.RLock()
	cached := s.network
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	resp, err := s.client.GetNetworkInfo(ctx, &ledger.GetNetworkInfoRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.mu.Lock()
	s.network = resp
	s.mu.Unlock()
	return resp, nil
}

func (s *GRPCClient) ResolveAddress(ctx context.Context) (string, error) {
	info, err := s.NetworkInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.ContractAddress, nil
}

// ProbeAvailability reports whether the node answers and serves a contract.
func (s *GRPCClient) ProbeAvailability(ctx context.Context) bool {
	if err := s.Ping(ctx); err != nil {
		return false
	}
	addr, err := s.ResolveAddress(ctx)
	return err == nil && addr != ""
}

func (s *GRPCClient) ListRecordIDs(ctx context.Context, contract string) ([]string, error) {
	resp, err := s.client.ListRecordIDs(ctx, &ledger.ListRecordIDsRequest{ContractAddress: contract})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.IDs, nil
}

func (s *GRPCClient) GetRecord(ctx context.Context, contract, id string) (*ledger.RecordView, error) {
	resp, err := s.client.GetRecord(ctx, &ledger.GetRecordRequest{ContractAddress: contract, ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Record, nil
}

func (s *GRPCClient) GetEncryptedHandle(ctx context.Context, contract, id string) (string, error) {
	resp, err := s.client.GetEncryptedHandle(ctx, &ledger.GetEncryptedHandleRequest{ContractAddress: contract, ID: id})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Handle, nil
}

// CreateRecord signs and submits a create_record transaction.
func (s *GRPCClient) CreateRecord(ctx context.Context, req models.CreateRecordRequest) (models.PendingTx, error) {
	return s.submit(ctx, ledger.Tx{
		Kind:                 ledger.TxCreateRecord,
		ContractAddress:      req.ContractAddress,
		RecordID:             req.ID,
		Name:                 req.Name,
		Description:          req.Description,
		Payload:              req.Payload,
		InputProof:           req.InputProof,
		PublicScore:          req.PublicScore,
		SecondaryPublicValue: req.SecondaryPublicValue,
	})
}

// SubmitVerification signs and submits a verify_decryption transaction.
func (s *GRPCClient) SubmitVerification(ctx context.Context, contract, id string, clearValues, proof []byte) (models.PendingTx, error) {
	return s.submit(ctx, ledger.Tx{
		Kind:            ledger.TxVerifyDecryption,
		ContractAddress: contract,
		RecordID:        id,
		ClearValues:     clearValues,
		DecryptionProof: proof,
	})
}

func (s *GRPCClient) submit(ctx context.Context, tx ledger.Tx) (models.PendingTx, error) {
	acct := s.currentAccount()
	if acct == nil {
		return nil, common.ErrUnauthenticated
	}
	tx.Sender = acct.Address()
	tx.Nonce = uint64(s.now().UnixNano())

	signed, err := acct.SignTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.SendTransaction(ctx, &ledger.SendTransactionRequest{Tx: signed})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransactionFailed, s.mapError(err))
	}

	s.logger.Debug(ctx, "transaction submitted", "hash", resp.Hash, "kind", string(tx.Kind))
	return &pendingTx{hash: resp.Hash, client: s}, nil
}

func (s *GRPCClient) Receipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	resp, err := s.client.GetReceipt(ctx, &ledger.GetReceiptRequest{Hash: hash})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Receipt, nil
}

// RequestDecryption asks the relayer for the clear values of handles on
// behalf of the connected account.
func (s *GRPCClient) RequestDecryption(ctx context.Context, contract string, handles []string) ([]byte, []byte, error) {
	acct := s.currentAccount()
	if acct == nil {
		return nil, nil, common.ErrUnauthenticated
	}

	resp, err := s.client.RequestDecryption(ctx, &ledger.RequestDecryptionRequest{
		ContractAddress: contract,
		Handles:         handles,
		Requester:       acct.Address(),
	})
	if err != nil {
		return nil, nil, s.mapError(err)
	}
	return resp.ClearValues, resp.Proof, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

var errStillPending = errors.New("transaction still pending")

type pendingTx struct {
	hash   string
	client *GRPCClient
}

func (p *pendingTx) Hash() string {
	return p.hash
}

// Wait polls the receipt until it is final. Transport hiccups are retried;
// a revert ends the wait.
func (p *pendingTx) Wait(ctx context.Context) error {
	return retry.Do(ctx, p.client.poll, func(ctx context.Context) error {
		r, err := p.client.Receipt(ctx, p.hash)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || errors.Is(err, common.ErrorNotFound) {
				return err
			}
			return retry.Permanent(err)
		}

		switch r.Status {
		case ledger.ReceiptSuccess:
			return nil
		case ledger.ReceiptReverted:
			return retry.Permanent(revertError(r))
		default:
			return errStillPending
		}
	})
}

func revertError(r *ledger.Receipt) error {
	if r.Reason == common.AlreadyVerifiedReason {
		return fmt.Errorf("%w: %s", common.ErrConcurrentlyVerified, r.Reason)
	}
	return fmt.Errorf("%w: reverted in block %d: %s", common.ErrTransactionFailed, r.Block, r.Reason)
}
