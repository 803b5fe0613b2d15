package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Minute

// Lock grants one worker at a time the right to run a named job.
type Lock interface {
	Acquire(ctx context.Context, job string) (bool, error)
	Release(ctx context.Context, job string) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements Lock with SETNX and an owner token per job key.
type RedisLock struct {
	client redisStore
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock builds a lock whose keys are prefix:<job>.
func NewRedisLock(client redisStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if prefix == "" {
		return nil, errors.New("lock key prefix is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, prefix: prefix, ttl: ttl, owners: map[string]string{}}, nil
}

func (l *RedisLock) key(job string) string {
	return l.prefix + ":" + job
}

// Acquire claims the job key for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context, job string) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(job), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[job] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the job key only while this lock still owns it.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	owner := l.owners[job]
	l.mu.Unlock()
	if owner == "" {
		return nil
	}

	value, err := l.client.Get(ctx, l.key(job))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.forget(job)
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		l.forget(job)
		return nil
	}
	if err := l.client.Del(ctx, l.key(job)); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.forget(job)
	return nil
}

func (l *RedisLock) forget(job string) {
	l.mu.Lock()
	delete(l.owners, job)
	l.mu.Unlock()
}
