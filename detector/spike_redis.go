package detector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindow is a Redis-backed Window for deployments running more than one
// instance, where a process-local store would undercount. The prune/append/
// count sequence runs as a single Lua script so concurrent writers for the
// same source cannot interleave.
type RedisWindow struct {
	client    *redis.Client
	script    *redis.Script
	window    time.Duration
	threshold int
}

const spikeScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local threshold = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
local count = redis.call("ZCARD", key)

if count >= threshold then
    return 1
end
return 0
`

func NewRedisWindow(addr, password string, db int, window time.Duration, threshold int) *RedisWindow {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisWindow{
		client:    client,
		script:    redis.NewScript(spikeScript),
		window:    window,
		threshold: threshold,
	}
}

func (w *RedisWindow) IsSpike(ctx context.Context, sourceID string, now time.Time) (bool, error) {
	// The member must be unique per event; two events in the same millisecond
	// would otherwise collapse into one ZSET entry and undercount.
	res, err := w.script.Run(ctx, w.client, []string{"spike:" + sourceID},
		now.UnixMilli(), w.window.Milliseconds(), w.threshold, uuid.NewString()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (w *RedisWindow) Ping(ctx context.Context) error {
	return w.client.Ping(ctx).Err()
}

func (w *RedisWindow) Close() error {
	return w.client.Close()
}
