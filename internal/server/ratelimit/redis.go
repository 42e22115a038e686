package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"github.com/redis/go-redis/v9"
)

// consumeScript keeps one hash per bucket. The window is aligned on the
// Redis server clock, and the reset-or-increment decision and the write
// happen inside the script, so concurrent callers from any instance are
// serialized by Redis and agree on the window.
//
// KEYS[1] bucket key
// ARGV[1] window seconds
// ARGV[2] grace seconds kept after the window ends
//
// Reply: {count, window end (unix seconds), server now (unix milliseconds)}
var consumeScript = redis.NewScript(`
local t = redis.call('TIME')
local now = tonumber(t[1])
local nowMs = now * 1000 + math.floor(tonumber(t[2]) / 1000)
local window = tonumber(ARGV[1])
local start = now - (now % window)
local ends = start + window

local started = redis.call('HGET', KEYS[1], 'started')
local stored = redis.call('HGET', KEYS[1], 'window')
local count
if started == tostring(start) and stored == ARGV[1] then
  count = redis.call('HINCRBY', KEYS[1], 'count', 1)
else
  redis.call('HSET', KEYS[1], 'started', tostring(start), 'window', ARGV[1], 'count', 1, 'ends', tostring(ends))
  count = 1
end
redis.call('PEXPIREAT', KEYS[1], (ends + tonumber(ARGV[2])) * 1000)
return {count, ends, nowMs}
`)

// RedisStore counts in Redis. Expiry is native, so no cleanup pass is needed.
type RedisStore struct {
	rdb redis.Scripter
}

func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Consume(ctx context.Context, key string, maxRequests, windowSeconds int) (Result, error) {
	maxRequests, windowSeconds = Clamp(maxRequests, windowSeconds)

	var epoch time.Time
	grace := int64(ExpiresAt(epoch, windowSeconds).Sub(epoch) / time.Second)

	vals, err := consumeScript.Run(ctx, s.rdb, []string{key}, windowSeconds, grace).Int64Slice()
	if err != nil {
		observability.RateLimitStoreErrors.WithLabelValues("redis").Inc()
		return Result{}, fmt.Errorf("redis consume: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("redis consume: unexpected reply %v", vals)
	}

	return NewResult(int(vals[0]), maxRequests, time.Unix(vals[1], 0).UTC(), time.UnixMilli(vals[2]).UTC()), nil
}
