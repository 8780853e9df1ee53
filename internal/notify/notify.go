// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package notify hands finished-translation events to the notification
// worker. Delivery is someone else's job; the pipeline only enqueues, so
// a slow or absent consumer never holds a chapter build hostage.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Events

// queueKey is the Redis list the notification worker consumes.
const queueKey = "notify:queue:translation"

const (
	// EventCompleted marks a chapter whose translation is ready.
	EventCompleted = "completed"
	// EventFailed marks a chapter whose translation gave up.
	EventFailed = "failed"
)

// Event is the envelope pushed onto the notification queue.
type Event struct {
	UserID     string    `json:"user_id"`
	ChapterURL string    `json:"chapter_url"`
	Series     string    `json:"series"`
	Status     string    `json:"status"`
	FinishedAt time.Time `json:"finished_at"`
}

// Notifier enqueues one event per finished pipeline run.
type Notifier interface {

	/*
		Enqueue hands one event to the notification queue.

		Parameters:
		  - context: context.Context
		  - event: Event

		Returns:
		  - error: Queue failures; callers treat these as non-fatal
	*/
	Enqueue(context context.Context, event Event) error
}

// # Redis Queue

// RedisNotifier pushes events onto a Redis list.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier constructs a notifier over an existing Redis client.
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

/*
Enqueue pushes one event onto the notification queue.

Description: Events without an owner are dropped silently; anonymous CLI
and batch runs have nobody to notify.

Parameters:
  - context: context.Context
  - event: Event

Returns:
  - error: Marshalling or queue failures
*/
func (notifier *RedisNotifier) Enqueue(context context.Context, event Event) error {

	// Ownerless events have no recipient
	if event.UserID == "" {
		return nil
	}

	// Envelope serialization
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify_marshal_failed: %w", err)
	}

	// Push onto the worker queue
	if err := notifier.client.LPush(context, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("redis_notify_push_failed: %w", err)
	}

	notifier.logger.Info("notification_enqueued",
		"user_id", event.UserID,
		"status", event.Status,
	)
	return nil
}

// # No-op Implementation

// NoopNotifier satisfies [Notifier] for one-shot CLI runs.
type NoopNotifier struct{}

// Enqueue discards the event.
func (NoopNotifier) Enqueue(context.Context, Event) error { return nil }
