package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// Allow counts hits for key in a fixed one-minute window. Fails open: a Redis
// error never blocks a request.
func (r *Redis) Allow(ctx context.Context, key string, perMin int) bool {
	if perMin <= 0 {
		return true
	}
	k := fmt.Sprintf("rl:%s:%d", key, time.Now().Unix()/60)
	n, err := r.C.Incr(ctx, k).Result()
	if err != nil {
		return true
	}
	if n == 1 {
		r.C.Expire(ctx, k, time.Minute)
	}
	return n <= int64(perMin)
}
