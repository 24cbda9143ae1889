package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// MemoryCounter counts messages in process memory. Single-process only; a
// multi-process deployment needs the Redis counter so every instance observes
// the same cadence.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[int64]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[int64]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, chatID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[chatID]++
	return c.counts[chatID], nil
}

func (c *MemoryCounter) Reset(_ context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, chatID)
	return nil
}

// RedisCounter keeps per-chat message counts in Redis (INCR), shared by every
// bot process. Keys idle for counterTTL fall out on their own.
type RedisCounter struct {
	client *redis.Client
}

const (
	counterPrefix = "spawn:msgcount:"
	counterTTL    = 30 * 24 * time.Hour
)

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) key(chatID int64) string {
	return counterPrefix + strconv.FormatInt(chatID, 10)
}

func (c *RedisCounter) Incr(ctx context.Context, chatID int64) (int64, error) {
	key := c.key(chatID)
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		c.client.Expire(ctx, key, counterTTL)
	}
	return val, nil
}

func (c *RedisCounter) Reset(ctx context.Context, chatID int64) error {
	return c.client.Del(ctx, c.key(chatID)).Err()
}
