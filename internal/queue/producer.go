// Package queue hands reference documents off to the embedding pipeline.
// The handoff is fire-and-forget: the core enqueues and moves on, it never
// waits for ingestion to finish.
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DocumentMessage announces one document for ingestion. Key is a stable
// slug of the name so re-ingesting a document replaces its index entry
// instead of duplicating it. TraceID carries the originating trace so the
// ingestion side can join its spans to ours.
type DocumentMessage struct {
	Key     string
	Name    string
	Text    string
	TraceID string
}

type Producer interface {
	EnqueueDocument(ctx context.Context, msg DocumentMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
}

func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{
		client: client,
		stream: stream,
	}
}

func (p *redisProducer) EnqueueDocument(ctx context.Context, msg DocumentMessage) error {
	fields := map[string]any{
		"key":  msg.Key,
		"name": msg.Name,
		"text": msg.Text,
	}
	if msg.TraceID != "" {
		fields["trace_id"] = msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue document: %w", err)
	}

	slog.InfoContext(ctx, "enqueued document for ingestion", "key", msg.Key, "name", msg.Name, "bytes", len(msg.Text))
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
