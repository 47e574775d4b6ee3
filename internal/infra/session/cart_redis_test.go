package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisCartStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCartStore(client, time.Hour), mr
}

func TestLoad_MissingReturnsEmptyCart(t *testing.T) {
	store, _ := setupStore(t)

	cart, err := store.Load(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.NotNil(t, cart.Lines)
}

func TestSaveAndLoad_RoundTripsDecimalPrices(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	vid := int64(3)
	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: 7, Name: "Mug", Price: decimal.RequireFromString("19.99"), Stock: 5}, 2)
	require.NoError(t, err)
	_, err = cart.Add(model.CartItemSource{ProductID: 7, VariantID: &vid, Name: "Mug - Red", Price: decimal.RequireFromString("21.50"), Stock: 1}, 1)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "sid-1", cart))
	assert.True(t, mr.Exists("cart:sid-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:sid-1"))

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Total().Equal(decimal.RequireFromString("61.48")))

	line, ok := loaded.Line("7-3")
	require.True(t, ok)
	require.NotNil(t, line.VariantID)
	assert.Equal(t, int64(3), *line.VariantID)
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "a", cart))

	other, err := store.Load(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestClear(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "sid", cart))

	require.NoError(t, store.Clear(ctx, "sid"))
	assert.False(t, mr.Exists("cart:sid"))

	//無いキーでもエラーにならない
	require.NoError(t, store.Clear(ctx, "sid"))
}

func TestLoad_BrokenValueIsEmptyCart(t *testing.T) {
	store, mr := setupStore(t)
	require.NoError(t, mr.Set("cart:sid", "{not json"))

	cart, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestExpiredCartIsGone(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "sid", cart))

	mr.FastForward(2 * time.Hour)

	loaded, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestUpdate_ConcurrentAddsAreAllKept(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := store.Update(ctx, "sid", func(cart *model.Cart) error {
				_, err := cart.Add(model.CartItemSource{ProductID: id, Name: "P", Price: decimal.NewFromInt(1), Stock: 10}, 1)
				return err
			})
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, n, cart.Count())
}

func TestUpdate_ErrorLeavesCartUntouched(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "sid", cart))

	_, err = store.Update(ctx, "sid", func(c *model.Cart) error {
		_, err := c.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
		return err
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	loaded, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	line, ok := loaded.Line("1")
	require.True(t, ok)
	assert.Equal(t, int64(1), line.Quantity)
}

func TestUpdate_EmptiedCartDeletesKeyAndSaveRefreshesTTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "sid", func(c *model.Cart) error {
		_, err := c.Add(model.CartItemSource{ProductID: 1, Name: "A", Price: decimal.NewFromInt(1), Stock: 1}, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("cart:sid"))

	updated, err := store.Update(ctx, "sid", func(c *model.Cart) error {
		c.Remove("1")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.IsEmpty())
	assert.False(t, mr.Exists("cart:sid"))
}
