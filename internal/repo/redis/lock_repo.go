package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockPrefix = "locks:"

// releaseScript deletes the lock only while it still carries the caller's
// token, so an expired holder cannot free someone else's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lock only while the caller still holds it.
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type LockRepo struct {
	client *goredis.Client
}

func NewLockRepo(client *goredis.Client) *LockRepo {
	return &LockRepo{client: client}
}

func (r *LockRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" || ttl <= 0 {
		return "", false, fmt.Errorf("invalid lock payload")
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *LockRepo) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, r.client, []string{lockPrefix + key}, token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

// Refresh resets the TTL of a lock still held with token. It reports false
// when the lock expired or passed to another holder.
func (r *LockRepo) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(token) == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid lock payload")
	}
	res, err := refreshScript.Run(ctx, r.client, []string{lockPrefix + key}, token, ttl.Milliseconds()).Int()
	if err != nil && err != goredis.Nil {
		return false, fmt.Errorf("refresh lock %s: %w", key, err)
	}
	return res == 1, nil
}

// Holder returns the token currently holding key, empty when free.
func (r *LockRepo) Holder(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	token, err := r.client.Get(ctx, lockPrefix+key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock %s: %w", key, err)
	}
	return token, nil
}
