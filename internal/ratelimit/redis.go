package ratelimit

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps fixed-window counters in redis so multiple instances
// share quota state. INCR is atomic; the first hit in a window sets the TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IncrementAndCheck(ctx context.Context, key string, limit Limit) (Result, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, limit.Window).Err(); err != nil {
			return Result{}, err
		}
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	// A key that lost its TTL (e.g. expire failed mid-crash) would otherwise
	// throttle forever; reset it to one window.
	if ttl < 0 {
		ttl = limit.Window
		_ = s.client.PExpire(ctx, key, limit.Window).Err()
	}

	if int(count) > limit.Requests {
		return Result{Allowed: false, Remaining: 0, ResetIn: ttl}, nil
	}
	return Result{Allowed: true, Remaining: limit.Requests - int(count), ResetIn: ttl}, nil
}

// NewRedisClient dials redis with the given options and verifies the
// connection before use.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
