package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/client/client"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
)

// getPassphrase is an indirection used to facilitate testing.
var getPassphrase = GetPassphrase

// Connect unlocks (or creates) the local wallet, opens a session with the
// node and loads the records.
//
// When the node is unreachable the wallet stays unlocked and the app goes
// offline, so the cached snapshot can still be browsed.
func (a *App) Connect(ctx context.Context) error {
	if a.isConnected() {
		fmt.Fprintln(a.out, "Already connected as", a.wallet.Address())
		return nil
	}

	if err := a.unlockWallet(ctx); err != nil {
		return fmt.Errorf("wallet: %w", err)
	}

	if err := a.session.Connect(ctx, a.wallet); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.logger.Warn(ctx, "node unavailable, working offline", "error", err)
			a.setMode(ModeOffline)
			if _, cerr := a.records.LoadCached(ctx); cerr != nil {
				a.logger.Warn(ctx, "no cached records", "error", cerr)
			}
			return nil
		}
		a.wallet.Lock()
		a.setMode(ModeDisabled)
		return fmt.Errorf("connect: %w", err)
	}

	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "Connected as", a.wallet.Address())

	if err := a.records.Start(ctx); err != nil {
		a.logger.Warn(ctx, "startup incomplete", "error", err)
	}
	return nil
}

func (a *App) unlockWallet(ctx context.Context) error {
	exists, err := a.wallet.Exists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		fmt.Fprintln(a.out, "No wallet found, creating a new one.")
		pass, err := getPassphrase(a.out, "New passphrase")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pass)

		again, err := getPassphrase(a.out, "Repeat passphrase")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(again)

		if string(pass) != string(again) {
			return errPassphraseMismatch
		}

		addr, err := a.wallet.Create(ctx, pass)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Wallet created:", addr)
		return nil
	}

	pass, err := getPassphrase(a.out, "Passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	return a.wallet.Unlock(ctx, pass)
}

var errPassphraseMismatch = errors.New("passphrases do not match")

// Disconnect closes the session, locks the wallet and drops every decrypted
// value of this session.
func (a *App) Disconnect(ctx context.Context) error {
	a.session.Disconnect()
	a.wallet.Lock()
	for _, r := range a.records.Records() {
		a.records.Forget(r.ID)
	}
	fmt.Fprintln(a.out, "Disconnected")
	return nil
}
