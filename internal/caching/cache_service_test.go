package caching

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis serves the handful of commands the cache issues from a map.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := f.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx, "del")
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) Keys(ctx context.Context, pattern string) *redis.StringSliceCmd {
	var out []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	cmd := redis.NewStringSliceCmd(ctx, "keys", pattern)
	cmd.SetVal(out)
	return cmd
}

func TestCustomerKey(t *testing.T) {
	assert.Equal(t, "relatorios:cliente:t1:ACME", customerKey("t1", "ACME"))
}

func TestCustomerIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewCacheService(rdb, zerolog.Nop())

	id, err := cache.GetCustomerID(ctx, "t1", "ACME")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, cache.SetCustomerID(ctx, "t1", "ACME", "c1", time.Minute))
	assert.Equal(t, time.Minute, rdb.ttls["relatorios:cliente:t1:ACME"])

	id, err = cache.GetCustomerID(ctx, "t1", "ACME")
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	require.NoError(t, cache.DeleteCustomer(ctx, "t1", "ACME"))
	id, err = cache.GetCustomerID(ctx, "t1", "ACME")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestInvalidateTenantCache(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewCacheService(rdb, zerolog.Nop())

	require.NoError(t, cache.SetCustomerID(ctx, "t1", "ACME", "c1", 0))
	require.NoError(t, cache.SetCustomerID(ctx, "t1", "BETA", "c2", 0))
	require.NoError(t, cache.SetCustomerID(ctx, "t2", "ACME", "c9", 0))

	require.NoError(t, cache.InvalidateTenantCache(ctx, "t1"))

	assert.Len(t, rdb.data, 1)
	id, err := cache.GetCustomerID(ctx, "t2", "ACME")
	require.NoError(t, err)
	assert.Equal(t, "c9", id)

	assert.NoError(t, cache.InvalidateTenantCache(ctx, "empty"))
}
