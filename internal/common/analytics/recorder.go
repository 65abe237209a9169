// Package analytics appends per-query outcome metadata to a Redis stream.
// Only classification and outcome fields are written; query text and
// results are never stored.
package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event describes how one query was handled.
type Event struct {
	QueryID     string
	UserID      string
	Intent      string
	Source      string
	Outcome     string
	FailureKind string
	Records     int
	Duration    time.Duration
	ReceivedAt  time.Time
}

// fields flattens e into XADD field/value pairs in a fixed order.
func (e Event) fields() []interface{} {
	return []interface{}{
		"queryId", e.QueryID,
		"userId", e.UserID,
		"intent", e.Intent,
		"source", e.Source,
		"outcome", e.Outcome,
		"failureKind", e.FailureKind,
		"records", strconv.Itoa(e.Records),
		"durationMs", strconv.FormatInt(e.Duration.Milliseconds(), 10),
		"receivedAt", e.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// RedisRecorder writes events with XADD, trimming the stream to roughly
// maxLen entries.
type RedisRecorder struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisRecorder(client *redis.Client, stream string, maxLen int64) *RedisRecorder {
	return &RedisRecorder{client: client, stream: stream, maxLen: maxLen}
}

func (r *RedisRecorder) xaddArgs(event Event) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: event.fields(),
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	return args
}

func (r *RedisRecorder) Record(ctx context.Context, event Event) error {
	if err := r.client.XAdd(ctx, r.xaddArgs(event)).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

// NopRecorder discards events. Used when analytics are disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
