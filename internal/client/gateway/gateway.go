// Package gateway is the client's encryption subsystem. It fetches the
// network keys once per session and seals input values to them.
package gateway

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"golang.org/x/sync/singleflight"
)

// NetworkSource supplies the node's public key material.
type NetworkSource interface {
	NetworkInfo(ctx context.Context) (*ledger.NetworkInfo, error)
}

type Gateway struct {
	source NetworkSource
	logger logging.Logger
	rand   io.Reader

	init singleflight.Group

	mu     sync.RWMutex
	ready  bool
	encKey []byte
	kmsKey ed25519.PublicKey
}

func New(source NetworkSource, logger logging.Logger) *Gateway {
	return &Gateway{
		source: source,
		logger: logger.With("module", "gateway"),
		rand:   rand.Reader,
	}
}

// Initialize fetches the network keys. Concurrent callers share one fetch;
// after a success further calls return immediately, after a failure the next
// call tries again.
func (g *Gateway) Initialize(ctx context.Context) error {
	if g.Ready() {
		return nil
	}

	_, err, _ := g.init.Do("init", func() (any, error) {
		if g.Ready() {
			return nil, nil
		}

		info, err := g.source.NetworkInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch network keys: %w", err)
		}
		if len(info.EncryptionPublicKey) != sealing.KeySize {
			return nil, fmt.Errorf("%w: encryption key has %d bytes", common.ErrInvalidPayload, len(info.EncryptionPublicKey))
		}
		if len(info.KMSVerifyingKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: kms key has %d bytes", common.ErrInvalidPayload, len(info.KMSVerifyingKey))
		}

		g.mu.Lock()
		g.encKey = info.EncryptionPublicKey
		g.kmsKey = ed25519.PublicKey(info.KMSVerifyingKey)
		g.ready = true
		g.mu.Unlock()

		g.logger.Info(ctx, "encryption initialized", "chain_id", info.ChainID)
		return nil, nil
	})
	return err
}

func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// Encrypt seals value for target, bound to caller. It fails with
// common.ErrNotReady before Initialize succeeded.
func (g *Gateway) Encrypt(ctx context.Context, target, caller string, value int64) (*models.EncryptedInput, error) {
	g.mu.RLock()
	ready, key := g.ready, g.encKey
	g.mu.RUnlock()
	if !ready {
		return nil, common.ErrNotReady
	}

	in, err := sealing.EncryptInput(g.rand, key, target, caller, value)
	if err != nil {
		return nil, fmt.Errorf("encrypt input: %w", err)
	}
	return &models.EncryptedInput{Payload: in.Payload, Proof: in.Proof}, nil
}

// KMSVerifyingKey returns the key decryption proofs are checked against,
// initializing first if needed.
func (g *Gateway) KMSVerifyingKey(ctx context.Context) (ed25519.PublicKey, error) {
	if err := g.Initialize(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.kmsKey, nil
}
