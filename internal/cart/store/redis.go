package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Redis keeps the cart under "cart:<key>". A zero baseTTL keeps it forever.
type Redis struct {
	client  *redis.Client
	key     string
	baseTTL time.Duration
}

func NewRedis(client *redis.Client, key string, baseTTL time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{
		client:  client,
		key:     key,
		baseTTL: baseTTL,
	}
}

func (r *Redis) Load(ctx context.Context) (domain.CartState, error) {
	data, err := r.client.Get(ctx, cacheKey(r.key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartState{}, ErrNotFound
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("redis get failed: %w", err)
	}
	return unmarshalState(data)
}

func (r *Redis) Save(ctx context.Context, state domain.CartState) error {
	data, err := marshalState(state)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, cacheKey(r.key), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}

func cacheKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
