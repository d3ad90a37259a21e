package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short leases so that only one replica runs a job at a time.
type Locker struct {
	rdb    *goredis.Client
	prefix string
}

func NewLocker(rdb *goredis.Client, prefix string) *Locker {
	return &Locker{rdb: rdb, prefix: prefix}
}

// TryLock returns a release func when the lease was acquired and nil when
// another holder has it.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	k := key(l.prefix, "lock", name)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{k}, token).Err()
	}, nil
}
