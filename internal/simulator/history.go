package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/rileyhilliard/streamwatch/internal/logger"
)

// DefaultHistoryKey is the Redis list the producer mirrors samples into.
const DefaultHistoryKey = "metrics_history"

// HistoryStore keeps the producer's recent readings, newest first.
type HistoryStore interface {
	Push(ctx context.Context, r Reading) error
	// Recent returns up to n readings, newest first.
	Recent(ctx context.Context, n int) ([]Reading, error)
	Reset(ctx context.Context) error
}

// MemoryHistory is a bounded in-process HistoryStore.
type MemoryHistory struct {
	mu       sync.RWMutex
	readings []Reading // oldest first
	limit    int
}

// NewMemoryHistory keeps at most limit readings.
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit < 1 {
		limit = 1
	}
	return &MemoryHistory{
		readings: make([]Reading, 0, limit),
		limit:    limit,
	}
}

func (h *MemoryHistory) Push(_ context.Context, r Reading) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.readings = append(h.readings, r)
	if len(h.readings) > h.limit {
		copy(h.readings, h.readings[1:])
		h.readings = h.readings[:h.limit]
	}
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, n int) ([]Reading, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n = min(n, len(h.readings))
	out := make([]Reading, 0, max(n, 0))
	for i := len(h.readings) - 1; i >= len(h.readings)-n; i-- {
		out = append(out, h.readings[i])
	}
	return out, nil
}

func (h *MemoryHistory) Reset(_ context.Context) error {
	h.mu.Lock()
	h.readings = h.readings[:0]
	h.mu.Unlock()
	return nil
}

// Len is the number of readings held.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.readings)
}

// RedisHistory mirrors readings into a Redis list (LPUSH + LTRIM) and keeps
// an in-memory copy. Reads fall back to memory when Redis fails.
type RedisHistory struct {
	client   *redis.Client
	key      string
	limit    int
	fallback *MemoryHistory
	log      logger.Logger
}

// RedisOptions configures NewRedisHistory.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Limit    int
	Logger   logger.Logger
}

// NewRedisHistory connects to Redis and verifies it with a PING.
func NewRedisHistory(ctx context.Context, opts RedisOptions) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	key := opts.Key
	if key == "" {
		key = DefaultHistoryKey
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 1000
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	return &RedisHistory{
		client:   client,
		key:      key,
		limit:    limit,
		fallback: NewMemoryHistory(limit),
		log:      log,
	}, nil
}

func (h *RedisHistory) Push(ctx context.Context, r Reading) error {
	_ = h.fallback.Push(ctx, r)

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, h.key, data)
		pipe.LTrim(ctx, h.key, 0, int64(h.limit-1))
		return nil
	})
	if err != nil {
		h.log.Warn("redis history write failed: %v", err)
		return fmt.Errorf("store reading in redis: %w", err)
	}
	return nil
}

func (h *RedisHistory) Recent(ctx context.Context, n int) ([]Reading, error) {
	if n <= 0 {
		return []Reading{}, nil
	}
	vals, err := h.client.LRange(ctx, h.key, 0, int64(n-1)).Result()
	if err != nil && err != redis.Nil {
		h.log.Warn("redis history read failed, using memory: %v", err)
		return h.fallback.Recent(ctx, n)
	}

	out := make([]Reading, 0, len(vals))
	for _, v := range vals {
		var r Reading
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			h.log.Debug("skipping undecodable history entry: %v", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Reset clears both the Redis list and the memory copy.
func (h *RedisHistory) Reset(ctx context.Context) error {
	_ = h.fallback.Reset(ctx)
	if err := h.client.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("clear redis history: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (h *RedisHistory) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (h *RedisHistory) Close() error {
	return h.client.Close()
}
