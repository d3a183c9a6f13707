package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeQuotaScript performs the quota check-and-increment atomically on
// the Redis server, so concurrent replicas cannot double-spend. It returns
// -1 when the consumption would exceed the cap, leaving the counter as-is.
var consumeQuotaScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local expire = tonumber(ARGV[3])
local curr = redis.call('GET', key)
if not curr then curr = 0 else curr = tonumber(curr) end
if curr + amount > cap then return -1 end
local v = redis.call('INCRBY', key, amount)
redis.call('EXPIRE', key, expire)
return v
`)

// RedisStore implements Store on a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// IncrWindow increments the window counter, arming its expiry on first use.
func (s *RedisStore) IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if val == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return val, nil
}

// WindowTTL returns the remaining lifetime of key. Redis reports missing
// keys and keys without expiry as negative durations; those map to 0 so the
// caller falls back to the window length.
func (s *RedisStore) WindowTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// ConsumeQuota runs the atomic check-and-increment script.
func (s *RedisStore) ConsumeQuota(ctx context.Context, key string, amount, cap int64, ttl time.Duration) (bool, error) {
	res, err := consumeQuotaScript.Run(ctx, s.client, []string{key},
		amount, cap, int64(ttl.Seconds())).Int64()
	if err != nil {
		return false, fmt.Errorf("consume quota %s: %w", key, err)
	}
	return res != -1, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
