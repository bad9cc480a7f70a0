// Package server wires the ledger node together: storage backends, the block
// producer, the KMS, the gRPC endpoint and the metrics endpoint.
package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/sealkeeper/internal/server/chain"
	"github.com/dmitrijs2005/sealkeeper/internal/server/config"
	"github.com/dmitrijs2005/sealkeeper/internal/server/kms"
	"github.com/dmitrijs2005/sealkeeper/internal/server/monitoring"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/sealkeeper/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	chain   *chain.Chain
	grpc    *gs.GRPCServer
	metrics *monitoring.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	seed, err := hex.DecodeString(c.KMSSeed)
	if err != nil {
		return nil, fmt.Errorf("kms seed: %w", err)
	}
	keys, err := sealing.DeriveNetworkKeys(seed)
	if err != nil {
		return nil, fmt.Errorf("kms seed: %w", err)
	}

	repos, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	metrics := monitoring.NewMetrics()
	contract := ledger.ContractAddress(c.ChainID)

	ch := chain.New(contract, keys, repos, blobs, logger, chain.Options{Observer: metrics})
	oracle := kms.New(keys, repos.Records(), blobs, logger)

	srv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, ch, repos.Records(), oracle, gs.Options{
		ChainID:       c.ChainID,
		Keys:          keys,
		SecretKey:     c.SecretKey,
		TokenValidity: c.AccessTokenValidityDuration,
		Observer:      metrics,
	})

	logger.Info(ctx, "Node configured", "chain_id", c.ChainID, "contract", contract,
		"database", backendName(c.DatabaseDSN), "blobs", c.BlobBackend)

	return &App{config: c, logger: logger, repos: repos, chain: ch, grpc: srv, metrics: metrics}, nil
}

func backendName(dsn string) string {
	if dsn == config.MemoryBackend {
		return config.MemoryBackend
	}
	return "postgres"
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryBackend {
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	m, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.BlobBackend == config.MemoryBackend {
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewS3Store(ctx, blobstore.S3Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
}

func (app *App) runMetricsServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())

	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is done or the process receives SIGINT, SIGTERM or
// SIGQUIT. The first component to fail stops the others.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.grpc.Run(ctx)
	})

	g.Go(func() error {
		return app.chain.Run(ctx, app.config.BlockInterval)
	})

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			return app.runMetricsServer(ctx)
		})
	}

	err := g.Wait()
	if cerr := app.repos.Close(); cerr != nil {
		app.logger.Error(ctx, "close repositories", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
