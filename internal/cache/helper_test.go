package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedAccount struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

func TestAside_PopulatesOnMissAndServesHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	calls := 0

	fetch := func(dest *cachedAccount) func() error {
		return func() error {
			calls++
			*dest = cachedAccount{ID: 7, Name: "Bee"}
			return nil
		}
	}

	var first cachedAccount
	require.NoError(t, Aside(ctx, AccountUIDKey("BBB222"), &first, time.Minute, fetch(&first)))
	assert.Equal(t, "Bee", first.Name)
	assert.True(t, mr.Exists("account:uid:BBB222"))

	var second cachedAccount
	require.NoError(t, Aside(ctx, AccountUIDKey("BBB222"), &second, time.Minute, fetch(&second)))
	assert.Equal(t, uint(7), second.ID)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	var third cachedAccount
	require.NoError(t, Aside(ctx, AccountUIDKey("BBB222"), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("boom")

	var dest cachedAccount
	err := Aside(context.Background(), AccountIDKey(1), &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("account:id:1"))
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var dest cachedAccount
	err := Aside(context.Background(), AccountIDKey(2), &dest, time.Minute, func() error {
		dest.Name = "db"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "db", dest.Name)
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	found, err := GetJSON(context.Background(), "k", &cachedAccount{})
	assert.False(t, found)
	assert.NoError(t, err)
	assert.NoError(t, SetJSON(context.Background(), "k", 1, time.Second))
	Invalidate(context.Background(), "k")
}
