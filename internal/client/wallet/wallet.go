// Package wallet holds the user's signing account.
//
// The ed25519 seed is sealed at rest in the metadata table under a key
// derived from the passphrase (argon2id, see cryptox). A verifier of that key
// is stored next to it so a wrong passphrase is reported as such. Every
// transaction is shown to a Confirmer before it is signed.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sealkeeper/internal/dbx"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

var (
	ErrNoWallet        = errors.New("no wallet on this device")
	ErrWalletExists    = errors.New("wallet already exists")
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrLocked          = errors.New("wallet is locked")
	ErrCorruptedWallet = errors.New("stored wallet is corrupted")
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
)

// Confirmer approves or declines a transaction before it is signed.
type Confirmer interface {
	Confirm(ctx context.Context, summary string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, summary string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, summary string) (bool, error) {
	return f(ctx, summary)
}

// AutoConfirm approves everything.
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

type Wallet struct {
	db        *sql.DB
	confirmer Confirmer

	mu  sync.RWMutex
	key ed25519.PrivateKey
}

func New(db *sql.DB, confirmer Confirmer) *Wallet {
	if confirmer == nil {
		confirmer = AutoConfirm
	}
	return &Wallet{db: db, confirmer: confirmer}
}

func (w *Wallet) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(w.db)
}

// Exists reports whether a sealed key is stored locally.
func (w *Wallet) Exists(ctx context.Context) (bool, error) {
	ct, err := w.repo().Get(ctx, metadata.KeyWalletCiphertext)
	if err != nil {
		return false, err
	}
	return ct != nil, nil
}

// StoredAddress returns the address of the stored wallet without unlocking.
func (w *Wallet) StoredAddress(ctx context.Context) (string, error) {
	addr, err := w.repo().Get(ctx, metadata.KeyWalletAddress)
	if err != nil {
		return "", err
	}
	if addr == nil {
		return "", ErrNoWallet
	}
	return string(addr), nil
}

// Create generates a new account, seals it under passphrase and leaves the
// wallet unlocked.
func (w *Wallet) Create(ctx context.Context, passphrase []byte) (string, error) {
	if len(passphrase) == 0 {
		return "", ErrEmptyPassphrase
	}
	exists, err := w.Exists(ctx)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrWalletExists
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(masterKey)

	ct, nonce, err := cryptox.Seal(priv.Seed(), masterKey)
	if err != nil {
		return "", fmt.Errorf("seal key: %w", err)
	}

	address := ledger.AddressFromPublicKey(pub)

	err = dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			metadata.KeyWalletAddress:    []byte(address),
			metadata.KeyWalletSalt:       salt,
			metadata.KeyWalletVerifier:   cryptox.MakeVerifier(masterKey),
			metadata.KeyWalletCiphertext: ct,
			metadata.KeyWalletNonce:      nonce,
		})
	})
	if err != nil {
		return "", fmt.Errorf("save wallet: %w", err)
	}

	w.mu.Lock()
	w.key = priv
	w.mu.Unlock()

	return address, nil
}

// Unlock opens the stored key with passphrase.
func (w *Wallet) Unlock(ctx context.Context, passphrase []byte) error {
	stored, err := w.repo().List(ctx)
	if err != nil {
		return err
	}
	salt := stored[metadata.KeyWalletSalt]
	ct := stored[metadata.KeyWalletCiphertext]
	if salt == nil || ct == nil {
		return ErrNoWallet
	}

	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(masterKey)

	if subtle.ConstantTimeCompare(stored[metadata.KeyWalletVerifier], cryptox.MakeVerifier(masterKey)) == 0 {
		return ErrWrongPassphrase
	}

	seed, err := cryptox.Open(ct, stored[metadata.KeyWalletNonce], masterKey)
	if err != nil {
		return ErrCorruptedWallet
	}
	defer common.WipeByteArray(seed)
	if len(seed) != ed25519.SeedSize {
		return ErrCorruptedWallet
	}

	priv := ed25519.NewKeyFromSeed(seed)
	if addr := string(stored[metadata.KeyWalletAddress]); addr != "" && !ledger.SameAddress(addr, ledger.AddressFromPublicKey(priv.Public().(ed25519.PublicKey))) {
		return ErrCorruptedWallet
	}

	w.mu.Lock()
	w.key = priv
	w.mu.Unlock()
	return nil
}

// Lock forgets the decrypted key.
func (w *Wallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	common.WipeByteArray(w.key)
	w.key = nil
}

func (w *Wallet) Unlocked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.key != nil
}

func (w *Wallet) signingKey() (ed25519.PrivateKey, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, ErrLocked
	}
	return w.key, nil
}

// PublicKey returns nil while locked.
func (w *Wallet) PublicKey() ed25519.PublicKey {
	key, err := w.signingKey()
	if err != nil {
		return nil
	}
	return key.Public().(ed25519.PublicKey)
}

// Address returns "" while locked.
func (w *Wallet) Address() string {
	pub := w.PublicKey()
	if pub == nil {
		return ""
	}
	return ledger.AddressFromPublicKey(pub)
}

func (w *Wallet) SignMessage(msg []byte) ([]byte, error) {
	key, err := w.signingKey()
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(key, msg), nil
}

// SignTx asks the confirmer, then signs. A declined prompt returns
// common.ErrUserRejected.
func (w *Wallet) SignTx(ctx context.Context, tx ledger.Tx) (ledger.SignedTx, error) {
	key, err := w.signingKey()
	if err != nil {
		return ledger.SignedTx{}, err
	}

	ok, err := w.confirmer.Confirm(ctx, tx.Summary())
	if err != nil {
		return ledger.SignedTx{}, fmt.Errorf("%w: %w", common.ErrUserRejected, err)
	}
	if !ok {
		return ledger.SignedTx{}, common.ErrUserRejected
	}

	return ledger.SignTx(tx, key), nil
}

// Forget removes the stored wallet from this device.
func (w *Wallet) Forget(ctx context.Context) error {
	w.Lock()
	return dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for _, k := range []string{
			metadata.KeyWalletAddress, metadata.KeyWalletSalt, metadata.KeyWalletVerifier,
			metadata.KeyWalletCiphertext, metadata.KeyWalletNonce,
		} {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
