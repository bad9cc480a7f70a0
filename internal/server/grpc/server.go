// Package grpc serves the ledger API over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/records"
	"google.golang.org/grpc"
)

// Chain is the part of the ledger the handlers drive.
type Chain interface {
	Contract() string
	Height() uint64
	Submit(ctx context.Context, stx ledger.SignedTx) (string, error)
	Receipt(ctx context.Context, hash string) (*ledger.Receipt, error)
}

type Decrypter interface {
	Decrypt(ctx context.Context, contract string, handles []string) (encoded, proof []byte, err error)
}

// Observer receives per-call metrics. *monitoring.Metrics implements it.
type Observer interface {
	GRPCRequest(method, code string, took time.Duration)
	Decryption(ok bool)
}

type Options struct {
	ChainID       string
	Keys          *sealing.NetworkKeys
	SecretKey     string
	TokenValidity time.Duration
	Observer      Observer
	Now           func() time.Time
}

type GRPCServer struct {
	ledger.UnimplementedLedgerServer
	address       string
	chainID       string
	chain         Chain
	records       records.Repository
	kms           Decrypter
	keys          *sealing.NetworkKeys
	logger        logging.Logger
	observer      Observer
	jwtSecret     []byte
	tokenValidity time.Duration
	now           func() time.Time
}

type nopObserver struct{}

func (nopObserver) GRPCRequest(string, string, time.Duration) {}
func (nopObserver) Decryption(bool)                           {}

func NewGRPCServer(address string, l logging.Logger, chain Chain, recs records.Repository, kms Decrypter, opts Options) *GRPCServer {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &GRPCServer{
		address:       address,
		chainID:       opts.ChainID,
		chain:         chain,
		records:       recs,
		kms:           kms,
		keys:          opts.Keys,
		logger:        l.With("module", "grpc_server"),
		observer:      opts.Observer,
		jwtSecret:     []byte(opts.SecretKey),
		tokenValidity: opts.TokenValidity,
		now:           opts.Now,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestInterceptor, s.accessTokenInterceptor))
	ledger.RegisterLedgerServer(srv, s)
	return srv
}

// Run serves until ctx is done, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
