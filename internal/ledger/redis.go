package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a shared ledger in Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // zero keeps entries forever
}

// RedisBackend stores one key per URL, named by the URL's SHA-256 so keys
// stay bounded in length.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend creates a backend without contacting the server; use Ping
// to verify connectivity.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBackend{client: client, ttl: cfg.TTL}
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) HasSeen(ctx context.Context, url string) (bool, error) {
	n, err := r.client.Exists(ctx, seenKey(url)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertSeen sets the key only if absent, so the first title is kept.
func (r *RedisBackend) InsertSeen(ctx context.Context, url, title string) error {
	return r.client.SetNX(ctx, seenKey(url), title, r.ttl).Err()
}

func seenKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return "seen:" + hex.EncodeToString(h[:])
}
