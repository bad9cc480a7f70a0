package records

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first := sampleRecord()
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, int64(1), first.Position)

	second := sampleRecord()
	second.ID = "record-2"
	second.Handle = "0x02"
	require.NoError(t, repo.Create(ctx, second))

	ids, err := repo.ListIDs(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, []string{"record-1", "record-2"}, ids)

	got, err := repo.GetByHandle(ctx, "0x02")
	require.NoError(t, err)
	assert.Equal(t, "record-2", got.ID)
	assert.Equal(t, "0xdef", got.Creator)

	require.NoError(t, repo.MarkVerified(ctx, "0xABC", "record-1", 11))
	got, err = repo.Get(ctx, "0xabc", "record-1")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Equal(t, int64(11), got.VerifiedValue)

	assert.ErrorIs(t, repo.MarkVerified(ctx, "0xabc", "record-1", 12), common.ErrorNotFound)
}

func TestMemoryRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, sampleRecord()))

	assert.ErrorIs(t, repo.Create(ctx, sampleRecord()), common.ErrorAlreadyExists)

	dupHandle := sampleRecord()
	dupHandle.ID = "record-9"
	assert.ErrorIs(t, repo.Create(ctx, dupHandle), common.ErrorAlreadyExists)

	_, err := repo.Get(ctx, "0xabc", "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByHandle(ctx, "0xff")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "0xabc", "ghost", 1), common.ErrorNotFound)

	ids, err := repo.ListIDs(ctx, "0xother")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, sampleRecord()))

	got, err := repo.Get(ctx, "0xabc", "record-1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.Get(ctx, "0xabc", "record-1")
	require.NoError(t, err)
	assert.Equal(t, "n", again.Name)
}
