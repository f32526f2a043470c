package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	genKey    = "leaderboard:gen"
	keyPrefix = "leaderboard:top:"
)

// setIfCurrent writes one cached limit only while the generation the reader
// started from is still current.
var setIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 1
`)

// RedisCache keeps each generation's rankings in one hash keyed by limit.
// Invalidate bumps the generation, which orphans the old hash until its TTL
// runs out and makes in-flight writes for it no-ops.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, limit int) ([]Entry, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.rdb.HGet(ctx, rankingsKey(gen), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, false, fmt.Errorf("failed to decode cached leaderboard: %w", err)
	}
	return entries, gen, true, nil
}

// Set stores entries under gen. It reports false when gen is stale.
func (c *RedisCache) Set(ctx context.Context, gen int64, limit int, entries []Entry) (bool, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return false, err
	}

	stored, err := setIfCurrent.Run(ctx, c.rdb,
		[]string{genKey, rankingsKey(gen)},
		strconv.FormatInt(gen, 10), strconv.Itoa(limit), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, genKey).Err()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func rankingsKey(gen int64) string {
	return keyPrefix + strconv.FormatInt(gen, 10)
}

// NewRedisClient parses url and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
