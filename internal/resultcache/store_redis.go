// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resultcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// RedisCache implements Cache on a shared Redis client.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed result cache.
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

/*
Get fetches the cached result for a fingerprint.

Description: Returns apperr.NotFound when the entry is absent or expired.

Parameters:
  - context: context.Context
  - fingerprint: Fingerprint

Returns:
  - []byte: The serialized result
  - error: apperr.NotFound or connectivity errors
*/
func (cache *RedisCache) Get(context context.Context, fingerprint Fingerprint) ([]byte, error) {

	// Fetch the entry
	result, err := cache.client.Get(context, fingerprint.resultKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("cached chapter result")
		}
		return nil, fmt.Errorf("redis_result_get_failed: %w", err)
	}

	return result, nil
}

/*
Set stores a finished result, last writer wins.

Description: When seriesSlug is non-empty the entry key is also recorded
in the series tag set so InvalidateSeries can find it later. The tag set
carries the same rolling TTL as the entries it points at.

Parameters:
  - context: context.Context
  - fingerprint: Fingerprint
  - result: []byte
  - seriesSlug: string (May be empty)
  - ttl: time.Duration (Zero selects the default)

Returns:
  - error: Storage failures
*/
func (cache *RedisCache) Set(context context.Context, fingerprint Fingerprint, result []byte, seriesSlug string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := fingerprint.resultKey()

	// Store the entry with TTL
	if err := cache.client.Set(context, key, result, ttl).Err(); err != nil {
		return fmt.Errorf("redis_result_set_failed: %w", err)
	}

	// Tag the entry for series sweeps
	if seriesSlug != "" {
		tagKey := seriesPrefix + seriesSlug
		pipe := cache.client.TxPipeline()
		pipe.SAdd(context, tagKey, key)
		pipe.Expire(context, tagKey, ttl)
		if _, err := pipe.Exec(context); err != nil {
			return fmt.Errorf("redis_result_tag_failed: %w", err)
		}
	}

	cache.logger.Info("result_cached",
		slog.String("fingerprint", fingerprint.Build),
		slog.Int("bytes", len(result)))
	return nil
}

/*
InvalidateChapter removes every cached build of one chapter URL.

Description: Sweeps the chapter's key segment with SCAN, so targets,
backends and modes all fall together.

Parameters:
  - context: context.Context
  - chapterURL: string

Returns:
  - int: Entries removed
  - error: Sweep failures
*/
func (cache *RedisCache) InvalidateChapter(context context.Context, chapterURL string) (int, error) {
	fingerprint := NewFingerprint(chapterURL, "", 0, "")
	pattern := fmt.Sprintf("%s%s:*", resultPrefix, fingerprint.Chapter)

	removed, err := cache.sweep(context, pattern)
	if err != nil {
		return 0, err
	}

	cache.logger.Info("chapter_cache_invalidated",
		slog.String("url", chapterURL),
		slog.Int("removed", removed))
	return removed, nil
}

/*
InvalidateSeries removes every cached build tagged with a series slug.

Parameters:
  - context: context.Context
  - slug: string

Returns:
  - int: Entries removed
  - error: Sweep failures
*/
func (cache *RedisCache) InvalidateSeries(context context.Context, slug string) (int, error) {
	tagKey := seriesPrefix + slug

	// Resolve the tagged entry keys
	keys, err := cache.client.SMembers(context, tagKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_series_members_failed: %w", err)
	}

	// Drop the entries and the tag set itself
	keys = append(keys, tagKey)
	if err := cache.client.Del(context, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis_series_invalidate_failed: %w", err)
	}

	removed := len(keys) - 1
	cache.logger.Info("series_cache_invalidated",
		slog.String("slug", slug),
		slog.Int("removed", removed))
	return removed, nil
}

/*
Stats counts live cache and lock keys.

Parameters:
  - context: context.Context

Returns:
  - Stats: Key counts
  - error: Scan failures
*/
func (cache *RedisCache) Stats(context context.Context) (Stats, error) {
	results, err := cache.count(context, resultPrefix+"*")
	if err != nil {
		return Stats{}, err
	}
	locks, err := cache.count(context, lockPrefix+"*")
	if err != nil {
		return Stats{}, err
	}
	return Stats{Results: results, Locks: locks}, nil
}

// sweep deletes all keys matching a pattern via SCAN, in batches.
func (cache *RedisCache) sweep(context context.Context, pattern string) (int, error) {
	removed := 0
	batch := make([]string, 0, 100)

	iter := cache.client.Scan(context, 0, pattern, 100).Iterator()
	for iter.Next(context) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := cache.client.Del(context, batch...).Err(); err != nil {
				return removed, fmt.Errorf("redis_sweep_delete_failed: %w", err)
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis_sweep_scan_failed: %w", err)
	}

	if len(batch) > 0 {
		if err := cache.client.Del(context, batch...).Err(); err != nil {
			return removed, fmt.Errorf("redis_sweep_delete_failed: %w", err)
		}
		removed += len(batch)
	}

	return removed, nil
}

// count walks a pattern with SCAN and counts matches.
func (cache *RedisCache) count(context context.Context, pattern string) (int64, error) {
	var total int64

	iter := cache.client.Scan(context, 0, pattern, 200).Iterator()
	for iter.Next(context) {
		total++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis_stats_scan_failed: %w", err)
	}

	return total, nil
}

// ttlOrDefault resolves the lock TTL.
func ttlOrDefault(ttl, fallback time.Duration) time.Duration {
	if ttl <= 0 {
		return fallback
	}
	return ttl
}
