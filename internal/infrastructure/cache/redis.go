package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func OpenRedis(addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

var ErrLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RunLock is a best-effort cross-process mutex over SET NX PX.
type RunLock struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRunLock(rdb *redis.Client, prefix string, ttl time.Duration) *RunLock {
	if prefix == "" {
		prefix = "lock:"
	}
	return &RunLock{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Acquire returns a release func, or ErrLockHeld when another owner has key.
func (l *RunLock) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	full := l.prefix + key
	ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
	}, nil
}
