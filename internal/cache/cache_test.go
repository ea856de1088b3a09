package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTTL_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	c := New(50 * time.Millisecond)
	defer c.Close()

	c.Set(ctx, "unread:u1", []byte("3"))
	assert.Equal(t, []byte("3"), c.Get(ctx, "unread:u1"))

	time.Sleep(80 * time.Millisecond)
	assert.Nil(t, c.Get(ctx, "unread:u1"))
}

func TestTTL_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)
	defer c.Close()

	c.Set(ctx, "metrics:u1:all", []byte("a"))
	c.Set(ctx, "metrics:u1:last_week", []byte("b"))
	c.Set(ctx, "metrics:u2:all", []byte("c"))
	c.DeletePrefix(ctx, "metrics:u1:")

	assert.Nil(t, c.Get(ctx, "metrics:u1:all"))
	assert.Nil(t, c.Get(ctx, "metrics:u1:last_week"))
	assert.Equal(t, []byte("c"), c.Get(ctx, "metrics:u2:all"))

	c.Delete(ctx, "metrics:u2:all")
	assert.Nil(t, c.Get(ctx, "metrics:u2:all"))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client, time.Minute, "nascere:", zap.NewNop())
}

func TestRedis_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, c.Ping(ctx))
	assert.Nil(t, c.Get(ctx, "unread:u1"))

	c.Set(ctx, "unread:u1", []byte(`{"count":2}`))
	assert.Equal(t, []byte(`{"count":2}`), c.Get(ctx, "unread:u1"))
	assert.True(t, mr.Exists("nascere:unread:u1"), "chave deve usar o prefixo")

	mr.FastForward(2 * time.Minute)
	assert.Nil(t, c.Get(ctx, "unread:u1"), "TTL deve expirar a chave")

	c.Set(ctx, "unread:u1", []byte("1"))
	c.Delete(ctx, "unread:u1")
	assert.Nil(t, c.Get(ctx, "unread:u1"))
}

func TestRedis_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	c.Set(ctx, "metrics:u1:all", []byte("a"))
	c.Set(ctx, "metrics:u1:next_month", []byte("b"))
	c.Set(ctx, "metrics:u2:all", []byte("c"))

	c.DeletePrefix(ctx, "metrics:u1:")
	assert.False(t, mr.Exists("nascere:metrics:u1:all"))
	assert.False(t, mr.Exists("nascere:metrics:u1:next_month"))
	assert.True(t, mr.Exists("nascere:metrics:u2:all"))
}

func TestRedis_ServerDownIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	mr.Close()

	c.Set(ctx, "k", []byte("v"))
	assert.Nil(t, c.Get(ctx, "k"))
}

var (
	_ Store = (*TTL)(nil)
	_ Store = (*Redis)(nil)
)
