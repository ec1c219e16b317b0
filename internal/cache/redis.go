package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes a Redis client and verifies it with a ping.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	fmt.Println("Successfully connected to Redis!")
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	fmt.Println("Redis connection closed.")
	return nil
}

// IndexHealthKey is the Redis key flagging the search index as down.
const IndexHealthKey = "search:index:down"

// IndexHealth tracks recent search index failures so every API instance can skip
// the index for a cooldown period instead of paying the timeout on each request.
type IndexHealth interface {
	IsDown(ctx context.Context) bool
	MarkDown(ctx context.Context, reason string)
	MarkUp(ctx context.Context)
}

type redisIndexHealth struct {
	rdb      *redis.Client
	cooldown time.Duration
}

// NewIndexHealth returns a Redis-backed IndexHealth. A zero cooldown disables it.
func NewIndexHealth(rdb *redis.Client, cooldown time.Duration) IndexHealth {
	return &redisIndexHealth{rdb: rdb, cooldown: cooldown}
}

// IsDown reports whether a failure was recorded within the cooldown. Redis errors
// read as "up": the index is then simply tried.
func (h *redisIndexHealth) IsDown(ctx context.Context) bool {
	if h.rdb == nil || h.cooldown <= 0 {
		return false
	}
	err := h.rdb.Get(ctx, IndexHealthKey).Err()
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.Nil) {
		fmt.Printf("Index health check failed: %v\n", err)
	}
	return false
}

// MarkDown records a failure; the flag expires after the cooldown.
func (h *redisIndexHealth) MarkDown(ctx context.Context, reason string) {
	if h.rdb == nil || h.cooldown <= 0 {
		return
	}
	if err := h.rdb.Set(ctx, IndexHealthKey, reason, h.cooldown).Err(); err != nil {
		fmt.Printf("Failed to flag search index as down: %v\n", err)
	}
}

// MarkUp clears the flag, e.g. after a successful rebuild.
func (h *redisIndexHealth) MarkUp(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	if err := h.rdb.Del(ctx, IndexHealthKey).Err(); err != nil {
		fmt.Printf("Failed to clear search index down flag: %v\n", err)
	}
}
