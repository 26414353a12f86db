package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/omaressamii/high-class-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) *RedisCache {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client)
}

func TestRedisCache_MissOnEmpty(t *testing.T) {
	c := setupTestCache(t)

	product, err := c.Get(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, product)
}

func TestRedisCache_SetGet(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	product := &domain.Product{
		ID:               "p1",
		Name:             "Sony FX6 camera",
		StockQuantity:    3,
		ReservedQuantity: 1,
		Version:          4,
	}
	require.NoError(t, c.Set(ctx, "p1", product))

	got, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, 3, got.StockQuantity)
	assert.Equal(t, 1, got.ReservedQuantity)
	assert.Equal(t, int64(4), got.Version)
}

func TestRedisCache_Delete(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "p1", &domain.Product{ID: "p1", StockQuantity: 3}))
	require.NoError(t, c.Delete(ctx, "p1"))

	_, err := c.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteMissingKeyIsNoError(t *testing.T) {
	c := setupTestCache(t)

	assert.NoError(t, c.Delete(context.Background(), "never-set"))
}
