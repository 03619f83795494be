package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestCartStore_RoundTrip(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	c, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	require.NoError(t, c.Add(cart.Item{BookID: 1, Title: "三体", Price: 4500, Quantity: 2}))
	require.NoError(t, store.Save(ctx, c))
	assert.Equal(t, time.Hour, mr.TTL("cart:7"))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, int64(9000), got.Subtotal())
}

func TestCartStore_SaveEmptyDeletesKey(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	c := &cart.Cart{UserID: 3}
	require.NoError(t, c.Add(cart.Item{BookID: 1, Quantity: 1}))
	require.NoError(t, store.Save(ctx, c))
	assert.True(t, mr.Exists("cart:3"))

	c.Remove(1)
	require.NoError(t, store.Save(ctx, c))
	assert.False(t, mr.Exists("cart:3"))
}

func TestCartStore_ConcurrentUpdates(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	const tabs = 8
	var wg sync.WaitGroup
	errs := make([]error, tabs)
	for i := range tabs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Update(ctx, 5, func(c *cart.Cart) error {
				return c.Add(cart.Item{BookID: uint(i + 1), Price: 1000, Quantity: 1})
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, got.Items, tabs, "并发修改不能互相覆盖")
}

func TestCartStore_UpdateAbortsOnError(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	c, err := store.Update(ctx, 9, func(c *cart.Cart) error {
		return c.Add(cart.Item{BookID: 1, Price: 1000, Quantity: 2})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, time.Hour, mr.TTL("cart:9"))

	boom := errors.New("boom")
	_, err = store.Update(ctx, 9, func(c *cart.Cart) error {
		c.Remove(1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, 9)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	// 改空后删除key
	_, err = store.Update(ctx, 9, func(c *cart.Cart) error {
		c.Remove(1)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:9"))
}

func TestSessionStore_Blacklist(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.AddToBlacklist(ctx, "tok", time.Minute))
	ok, err := store.IsInBlacklist(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.IsInBlacklist(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_SuspendKicksSession(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, 9, map[string]any{"ip": "127.0.0.1"}, time.Hour))
	_, err := store.GetSession(ctx, 9)
	require.NoError(t, err)

	require.NoError(t, store.MarkSuspended(ctx, 9))
	suspended, err := store.IsSuspended(ctx, 9)
	require.NoError(t, err)
	assert.True(t, suspended)

	_, err = store.GetSession(ctx, 9)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, store.ClearSuspended(ctx, 9))
	suspended, err = store.IsSuspended(ctx, 9)
	require.NoError(t, err)
	assert.False(t, suspended)
}
