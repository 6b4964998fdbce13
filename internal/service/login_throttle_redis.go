package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLoginThrottle counts failures in a fixed window shared by every
// instance. The window starts at the first failure.
type RedisLoginThrottle struct {
	client redis.UniversalClient
	prefix string
	policy LoginThrottlePolicy
}

func NewRedisLoginThrottle(client redis.UniversalClient, prefix string, policy LoginThrottlePolicy) *RedisLoginThrottle {
	if prefix == "" {
		prefix = "support_space"
	}
	return &RedisLoginThrottle{
		client: client,
		prefix: prefix,
		policy: policy.normalized(),
	}
}

func (t *RedisLoginThrottle) Check(ctx context.Context, email, ip string) (time.Duration, error) {
	key := t.key(email, ip)
	raw, err := t.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse login failure count: %w", err)
	}
	if count < t.policy.MaxFailures {
		return 0, nil
	}
	return t.remaining(ctx, key)
}

func (t *RedisLoginThrottle) RegisterFailure(ctx context.Context, email, ip string) (time.Duration, error) {
	key := t.key(email, ip)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// A negative TTL means the key has no expiry yet, either because this is
	// the first failure or an earlier EXPIRE was lost.
	if count == 1 || ttl < 0 {
		if err := t.client.Expire(ctx, key, t.policy.Window).Err(); err != nil {
			return 0, err
		}
	}
	if count < int64(t.policy.MaxFailures) {
		return 0, nil
	}
	return t.remaining(ctx, key)
}

func (t *RedisLoginThrottle) Reset(ctx context.Context, email, ip string) error {
	return t.client.Del(ctx, t.key(email, ip)).Err()
}

func (t *RedisLoginThrottle) remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return t.policy.Window, nil
	}
	return ttl, nil
}

func (t *RedisLoginThrottle) key(email, ip string) string {
	return fmt.Sprintf("%s:login_throttle:%s", t.prefix, throttleSubject(email, ip))
}
