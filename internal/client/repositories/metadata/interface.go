package metadata

import (
	"context"
)

// Repository is a small key/value table for client-local settings and the
// encrypted wallet.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyWalletAddress    = "wallet.address"
	KeyWalletSalt       = "wallet.salt"
	KeyWalletVerifier   = "wallet.verifier"
	KeyWalletCiphertext = "wallet.ciphertext"
	KeyWalletNonce      = "wallet.nonce"
	KeyContractAddress  = "ledger.contract_address"
)
