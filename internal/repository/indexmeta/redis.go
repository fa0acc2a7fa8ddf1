package indexmeta

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/driftline/contentdex/internal/domain"
)

// Compile-time check: RedisKV implements KV.
var _ KV = (*RedisKV)(nil)

// RedisConfig holds connection parameters for the checkpoint store.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// RedisKV implements KV via rueidis.
type RedisKV struct {
	client rueidis.Client
}

// NewRedisKV creates a Redis-backed checkpoint store.
func NewRedisKV(cfg RedisConfig) (*RedisKV, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("%w: redis addrs is required", domain.ErrConfiguration)
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &RedisKV{client: client}, nil
}

// Get retrieves a value by key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value at the given key.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	cmd := r.client.B().Set().Key(key).Value(string(value)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (r *RedisKV) Del(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisKV) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *RedisKV) Close() {
	r.client.Close()
}
