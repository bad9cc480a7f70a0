package gateway

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls atomic.Int32
	delay time.Duration
	info  *ledger.NetworkInfo
	err   error
}

func (f *fakeSource) NetworkInfo(ctx context.Context) (*ledger.NetworkInfo, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.info, f.err
}

func networkKeys(t *testing.T) (*sealing.NetworkKeys, *ledger.NetworkInfo) {
	t.Helper()
	keys, err := sealing.DeriveNetworkKeys(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	return keys, &ledger.NetworkInfo{
		ChainID:             "test",
		EncryptionPublicKey: keys.EncryptionPublic,
		KMSVerifyingKey:     keys.VerifyingKey(),
	}
}

func TestEncrypt_BeforeInitialize(t *testing.T) {
	g := New(&fakeSource{}, logging.Discard())
	_, err := g.Encrypt(context.Background(), "0xc", "0xu", 1)
	assert.ErrorIs(t, err, common.ErrNotReady)
}

func TestInitialize_ThenEncryptOpens(t *testing.T) {
	keys, info := networkKeys(t)
	src := &fakeSource{info: info}
	g := New(src, logging.Discard())
	ctx := context.Background()

	require.NoError(t, g.Initialize(ctx))
	require.NoError(t, g.Initialize(ctx))
	assert.Equal(t, int32(1), src.calls.Load(), "initialization happens once")
	assert.True(t, g.Ready())

	in, err := g.Encrypt(ctx, "0xc", "0xu", 42)
	require.NoError(t, err)
	assert.NotEmpty(t, in.Payload)
	assert.NotEmpty(t, in.Proof)

	v, err := sealing.OpenInput(keys, in.Payload, in.Proof, "0xc", "0xu")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	kms, err := g.KMSVerifyingKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, keys.VerifyingKey(), kms)
}

func TestInitialize_ConcurrentCallersShareOneFetch(t *testing.T) {
	_, info := networkKeys(t)
	src := &fakeSource{info: info, delay: 30 * time.Millisecond}
	g := New(src, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestInitialize_FailureCanBeRetried(t *testing.T) {
	_, info := networkKeys(t)
	src := &fakeSource{err: errors.New("down")}
	g := New(src, logging.Discard())
	ctx := context.Background()

	require.Error(t, g.Initialize(ctx))
	assert.False(t, g.Ready())

	src.err = nil
	src.info = info
	require.NoError(t, g.Initialize(ctx))
	assert.True(t, g.Ready())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestInitialize_RejectsMalformedKeys(t *testing.T) {
	g := New(&fakeSource{info: &ledger.NetworkInfo{EncryptionPublicKey: []byte{1}}}, logging.Discard())
	err := g.Initialize(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidPayload)
	assert.False(t, g.Ready())

	_, err = g.KMSVerifyingKey(context.Background())
	assert.Error(t, err)
}
