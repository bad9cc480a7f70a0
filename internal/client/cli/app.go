package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/client"
	"github.com/dmitrijs2005/sealkeeper/internal/client/config"
	"github.com/dmitrijs2005/sealkeeper/internal/client/coordinator"
	"github.com/dmitrijs2005/sealkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/client/services"
	"github.com/dmitrijs2005/sealkeeper/internal/client/wallet"
	"github.com/dmitrijs2005/sealkeeper/internal/filex"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// walletService is the part of wallet.Wallet the CLI drives.
type walletService interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, passphrase []byte) (string, error)
	Unlock(ctx context.Context, passphrase []byte) error
	Lock()
	Unlocked() bool
	client.Account
}

// session is the part of client.GRPCClient the CLI drives directly.
type session interface {
	Connect(ctx context.Context, acct client.Account) error
	Disconnect()
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	config  *config.Config
	wallet  walletService
	session session
	records services.RecordService
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	modeMu sync.RWMutex
	mode   Mode
	view   ViewState
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewTextLogger(os.Stderr, level)

	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		logger.Error(ctx, "error preparing database directory", "error", err)
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	grpcClient, err := client.NewGRPCClient(c.ServerEndpointAddr, logger, c.ReceiptPollInterval)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config:  c,
		session: grpcClient,
		logger:  logger.With("module", "cli"),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	var confirmer wallet.Confirmer = wallet.ConfirmFunc(a.confirm)
	if c.AutoConfirm {
		confirmer = wallet.AutoConfirm
	}
	a.wallet = wallet.New(db, confirmer)

	gw := gateway.New(grpcClient, logger)
	coord := coordinator.New(grpcClient, gw, logger)
	a.records = services.NewRecordService(grpcClient, grpcClient, gw, coord, logger, services.Options{
		SuccessTTL: c.SuccessStatusTTL,
		ErrorTTL:   c.ErrorStatusTTL,
		OnStatus:   a.printStatus,
		Cache:      client.NewRepositories(db),
	})

	return a, nil
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "mode changed", "mode", mode)
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		a.records.Wait()
		_ = a.session.Close()
	}()
	a.Root(ctx)
}

func (a *App) isConnected() bool {
	return a.wallet.Unlocked() && a.wallet.Address() != ""
}

// StartOnlineStatusWatcher pings the node every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probeOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probeOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.session.Ping(pctx)
	cancel()

	if err != nil {
		if a.Mode() == ModeOnline {
			a.setMode(ModeOffline)
		}
		return
	}
	if a.Mode() != ModeOnline {
		a.setMode(ModeOnline)
	}
}

func (a *App) printStatus(st models.TransactionStatus) {
	if !st.Visible {
		return
	}
	fmt.Fprintf(a.out, "[%s] %s\n", st.Phase, st.Message)
}

func (a *App) confirm(ctx context.Context, summary string) (bool, error) {
	fmt.Fprintln(a.out, "Transaction to sign:")
	fmt.Fprintln(a.out, "  "+summary)
	return GetYesNo(a.reader, "Sign and send?", a.out)
}
