// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resultcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock implements Lock with a conditional set per build
// fingerprint. The lock is advisory: holders are not fenced, the TTL
// only bounds how long a crashed build can block coalescing.
type RedisLock struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisLock creates a Redis-backed build lock.
func NewRedisLock(client *redis.Client, logger *slog.Logger) *RedisLock {
	return &RedisLock{client: client, logger: logger}
}

/*
Acquire takes the build lock if nobody holds it.

Parameters:
  - context: context.Context
  - fingerprint: Fingerprint
  - ttl: time.Duration (Zero selects the default)

Returns:
  - bool: True when this caller took the lock
  - error: Connectivity errors
*/
func (lock *RedisLock) Acquire(context context.Context, fingerprint Fingerprint, ttl time.Duration) (bool, error) {

	// Conditional set, absent keys only
	acquired, err := lock.client.SetNX(context, fingerprint.lockKey(), "1", ttlOrDefault(ttl, DefaultLockTTL)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_lock_acquire_failed: %w", err)
	}

	if !acquired {
		lock.logger.Warn("build_lock_held",
			slog.String("fingerprint", fingerprint.Build))
	}
	return acquired, nil
}

/*
Release drops the build lock unconditionally.

Description: Deleting without a holder token means a build that outlives
its TTL can release a successor's lock; the advisory contract accepts
that in exchange for never wedging a fingerprint.

Parameters:
  - context: context.Context
  - fingerprint: Fingerprint

Returns:
  - error: Connectivity errors
*/
func (lock *RedisLock) Release(context context.Context, fingerprint Fingerprint) error {
	if err := lock.client.Del(context, fingerprint.lockKey()).Err(); err != nil {
		return fmt.Errorf("redis_lock_release_failed: %w", err)
	}
	return nil
}
