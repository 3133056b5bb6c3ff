package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter bump and TTL read must be one atomic step; the count==1 branch
// guards against a counter surviving without an expiry after a crash
// between INCR and EXPIRE.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	return {count, tonumber(ARGV[1])}
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore is a CounterStore whose windows are shared across all
// processes pointed at the same Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps the given client. prefix namespaces the counter
// keys; empty means "authcore:rate".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "authcore:rate"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Incr implements CounterStore.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected script reply", ErrStoreUnavailable)
	}
	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unexpected script reply", ErrStoreUnavailable)
	}
	ttlMs, ok := res[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unexpected script reply", ErrStoreUnavailable)
	}

	elapsed := window - time.Duration(ttlMs)*time.Millisecond
	if elapsed < 0 {
		elapsed = 0
	}
	return count, elapsed, nil
}

// Reset implements CounterStore.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}
