package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type DocumentEvent struct {
	DocumentID string
	URL        string
	FileName   string
	TraceID    *string
	Attempt    int
}

type Producer interface {
	Enqueue(ctx context.Context, event DocumentEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, event DocumentEvent) error {
	attempt := event.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	msg := Message{
		DocumentID: event.DocumentID,
		URL:        event.URL,
		FileName:   event.FileName,
	}
	if event.TraceID != nil {
		msg.TraceID = *event.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(msg, attempt),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue document event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued document event",
		"document_id", event.DocumentID,
		"file_name", event.FileName,
		"attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
