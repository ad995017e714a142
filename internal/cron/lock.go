package cron

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const defaultClaimTTL = time.Hour

// Lock hands each fire time of a job to exactly one worker instance.
type Lock interface {
	Claim(ctx context.Context, job string, fire time.Time) (bool, error)
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	LockKey(name string) string
}

// RedisLock implements Lock using Redis SETNX + TTL. Claims are never
// released; the TTL only has to outlive clock skew between workers.
type RedisLock struct {
	client redisStore
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &RedisLock{client: client, ttl: ttl, owner: uuid.NewString()}, nil
}

// Claim reports whether this instance won the fire time of job.
func (l *RedisLock) Claim(ctx context.Context, job string, fire time.Time) (bool, error) {
	key := l.client.LockKey("cron:" + job + ":" + strconv.FormatInt(fire.Unix(), 10))
	ok, err := l.client.SetNX(ctx, key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	return ok, nil
}

// LocalLock claims every fire time. It serves single-instance deployments
// without redis.
type LocalLock struct{}

func (LocalLock) Claim(context.Context, string, time.Time) (bool, error) { return true, nil }
