package caching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "relatorios"

// CacheService caches customer lookups by normalized name. A cached id is a
// hint only: callers must confirm the document still exists.
type CacheService interface {
	GetCustomerID(ctx context.Context, tenantID, nomeUpper string) (string, error)
	SetCustomerID(ctx context.Context, tenantID, nomeUpper, customerID string, ttl time.Duration) error
	DeleteCustomer(ctx context.Context, tenantID, nomeUpper string) error

	InvalidateTenantCache(ctx context.Context, tenantID string) error
}

type redisCacheService struct {
	client redis.Cmdable
	log    zerolog.Logger
}

func NewRedisCacheService(addr, password string, db int, log zerolog.Logger) CacheService {
	// accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Warn().Err(pingErr).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		log.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}

	return NewCacheService(client, log)
}

// NewCacheService wraps an existing client.
func NewCacheService(client redis.Cmdable, log zerolog.Logger) CacheService {
	return &redisCacheService{client: client, log: log}
}

func customerKey(tenantID, nomeUpper string) string {
	return fmt.Sprintf("%s:cliente:%s:%s", keyPrefix, tenantID, nomeUpper)
}

func (r *redisCacheService) GetCustomerID(ctx context.Context, tenantID, nomeUpper string) (string, error) {
	val, err := r.client.Get(ctx, customerKey(tenantID, nomeUpper)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) SetCustomerID(ctx context.Context, tenantID, nomeUpper, customerID string, ttl time.Duration) error {
	return r.client.Set(ctx, customerKey(tenantID, nomeUpper), customerID, ttl).Err()
}

func (r *redisCacheService) DeleteCustomer(ctx context.Context, tenantID, nomeUpper string) error {
	return r.client.Del(ctx, customerKey(tenantID, nomeUpper)).Err()
}

func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID string) error {
	pattern := fmt.Sprintf("%s:*:%s:*", keyPrefix, tenantID)
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		r.log.Debug().Str("tenant_id", tenantID).Int("keys", len(keys)).Msg("invalidating tenant cache")
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
