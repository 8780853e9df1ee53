// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package resultcache keeps finished chapter results and per-build locks
// in Redis.
//
// # Architecture
//
// A build is identified by its fingerprint: the hash of chapter URL,
// target language, translation backend and processing mode. The cache
// stores the serialized chapter result under that fingerprint with a
// long TTL; the lock is an advisory conditional set in a separate key
// namespace so duplicate builds of the same fingerprint can coalesce.
// Both sit on the same Redis client but behind separate interfaces,
// because the pipeline treats the cache as best-effort and the lock as
// advisory.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/taibuivan/yakura/internal/translate"
)

// # Keys

const (
	// DefaultTTL keeps finished chapters for thirty days.
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultLockTTL caps how long a crashed build can hold its lock.
	DefaultLockTTL = time.Hour

	resultPrefix = "translate:result:"
	lockPrefix   = "translate:lock:"
	seriesPrefix = "translate:series:"
)

// Fingerprint identifies one chapter build. Build alone is the identity;
// Chapter is a derived addressing segment that lets a sweep target every
// build of one chapter URL without knowing targets or backends.
type Fingerprint struct {
	Chapter string
	Build   string
}

/*
NewFingerprint derives the cache and lock identity of one build.

Description: Build hashes `url|target|backend|mode` so any change of
target language, backend or processing mode is a distinct cache entry.
The backend contributes its numeric value, which is why those values are
frozen.

Parameters:
  - chapterURL: string
  - targetLang: string
  - backend: translate.Backend
  - mode: string (Processing mode, clean or overlay)

Returns:
  - Fingerprint: Hex SHA-256 digests
*/
func NewFingerprint(chapterURL, targetLang string, backend translate.Backend, mode string) Fingerprint {
	chapter := sha256.Sum256([]byte(chapterURL))
	build := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s", chapterURL, targetLang, backend, mode))
	return Fingerprint{
		Chapter: hex.EncodeToString(chapter[:]),
		Build:   hex.EncodeToString(build[:]),
	}
}

func (fingerprint Fingerprint) resultKey() string {
	return fmt.Sprintf("%s%s:%s", resultPrefix, fingerprint.Chapter, fingerprint.Build)
}

func (fingerprint Fingerprint) lockKey() string {
	return fmt.Sprintf("%s%s", lockPrefix, fingerprint.Build)
}

// Stats is a point-in-time census of cache and lock keys.
type Stats struct {
	Results int64 `json:"results"`
	Locks   int64 `json:"locks"`
}

// # Ports

// Cache stores serialized chapter results. Values are opaque bytes; the
// pipeline owns the serialization.
type Cache interface {

	/*
		Get fetches the cached result for a fingerprint.

		Parameters:
		  - context: context.Context
		  - fingerprint: Fingerprint

		Returns:
		  - []byte: The serialized result
		  - error: apperr.NotFound on miss, connectivity errors otherwise
	*/
	Get(context context.Context, fingerprint Fingerprint) ([]byte, error)

	/*
		Set stores a finished result, last writer wins.

		Parameters:
		  - context: context.Context
		  - fingerprint: Fingerprint
		  - result: []byte (Serialized chapter result)
		  - seriesSlug: string (Tags the entry for series sweeps, may be empty)
		  - ttl: time.Duration (Zero selects the default)

		Returns:
		  - error: Storage failures
	*/
	Set(context context.Context, fingerprint Fingerprint, result []byte, seriesSlug string, ttl time.Duration) error

	/*
		InvalidateChapter removes every cached build of one chapter URL.

		Parameters:
		  - context: context.Context
		  - chapterURL: string

		Returns:
		  - int: Entries removed
		  - error: Sweep failures
	*/
	InvalidateChapter(context context.Context, chapterURL string) (int, error)

	/*
		InvalidateSeries removes every cached build tagged with a series slug.

		Parameters:
		  - context: context.Context
		  - slug: string

		Returns:
		  - int: Entries removed
		  - error: Sweep failures
	*/
	InvalidateSeries(context context.Context, slug string) (int, error)

	/*
		Stats counts live cache and lock keys.

		Parameters:
		  - context: context.Context

		Returns:
		  - Stats: Key counts
		  - error: Scan failures
	*/
	Stats(context context.Context) (Stats, error)
}

// Lock is the advisory per-build mutex.
type Lock interface {

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
	Acquire(context context.Context, fingerprint Fingerprint, ttl time.Duration) (bool, error)

	/*
		Release drops the build lock unconditionally.

		Parameters:
		  - context: context.Context
		  - fingerprint: Fingerprint

		Returns:
		  - error: Connectivity errors
	*/
	Release(context context.Context, fingerprint Fingerprint) error
}
