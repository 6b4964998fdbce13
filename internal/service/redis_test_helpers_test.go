package service

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testRedisPrefix = "support_space_test"

type redisThrottleFixture struct {
	server   *miniredis.Miniredis
	client   *redis.Client
	throttle *RedisLoginThrottle
}

// newRedisThrottleForTest backs a RedisLoginThrottle with an in-process
// miniredis whose clock is driven through server.FastForward.
func newRedisThrottleForTest(t *testing.T, policy LoginThrottlePolicy) *redisThrottleFixture {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &redisThrottleFixture{
		server:   server,
		client:   client,
		throttle: NewRedisLoginThrottle(client, testRedisPrefix, policy),
	}
}

// failures registers n failed logins for one subject and returns the last
// reported wait.
func (f *redisThrottleFixture) failures(t *testing.T, n int, email, ip string) time.Duration {
	t.Helper()
	var wait time.Duration
	for i := 0; i < n; i++ {
		var err error
		if wait, err = f.throttle.RegisterFailure(t.Context(), email, ip); err != nil {
			t.Fatalf("register failure %d: %v", i+1, err)
		}
	}
	return wait
}
