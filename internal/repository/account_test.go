package repository

import (
	"context"
	"testing"

	"habitpal/internal/cache"
	"habitpal/internal/models"
	"habitpal/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_Lookups(t *testing.T) {
	db, a, b := seedPair(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	got, err := repo.GetByPublicUID(ctx, "BBB222")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAA111", got.PublicUID)

	_, err = repo.GetByPublicUID(ctx, "NOPE00")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountRepository_CachesByUID(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	db := testutil.NewSQLiteDB(t)
	acc := testutil.CreateAccount(t, db, "CACHE1", "Before")
	repo := NewAccountRepository(db)
	ctx := context.Background()

	got, err := repo.GetByPublicUID(ctx, "CACHE1")
	require.NoError(t, err)
	assert.Equal(t, "Before", got.DisplayName)
	assert.True(t, mr.Exists(cache.AccountUIDKey("CACHE1")))

	require.NoError(t, db.Model(acc).Update("display_name", "After").Error)

	got, err = repo.GetByPublicUID(ctx, "CACHE1")
	require.NoError(t, err)
	assert.Equal(t, "Before", got.DisplayName, "served from cache within TTL")

	cache.Invalidate(ctx, cache.AccountUIDKey("CACHE1"))
	got, err = repo.GetByPublicUID(ctx, "CACHE1")
	require.NoError(t, err)
	assert.Equal(t, "After", got.DisplayName)
}
