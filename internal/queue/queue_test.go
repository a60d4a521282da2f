package queue_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"prepwise.app/pipeline/internal/queue"
)

var _ = Describe("Redis stream queue", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
		cfg      queue.ConsumerConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		cfg = queue.ConsumerConfig{
			Stream:    "document_events",
			Group:     "pipeline_group",
			Consumer:  "worker-1",
			DLQStream: "document_events_dlq",
			BatchSize: 10,
			Block:     10 * time.Millisecond,
		}
		var err error
		consumer, err = queue.NewRedisConsumer(client, cfg)
		Expect(err).NotTo(HaveOccurred())
		producer = queue.NewRedisProducer(client, cfg.Stream, nil)
	})

	enqueue := func(id string) {
		trace := "4bf92f3577b34da6a3ce929d0e0e4736"
		Expect(producer.Enqueue(ctx, queue.DocumentEvent{
			DocumentID: id,
			URL:        "http://x/" + id + ".pdf",
			FileName:   id + ".pdf",
			TraceID:    &trace,
		})).To(Succeed())
	}

	It("tolerates an existing consumer group", func() {
		_, err := queue.NewRedisConsumer(client, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("delivers enqueued events with attempt 1", func() {
		enqueue("doc1")

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].DocumentID).To(Equal("doc1"))
		Expect(msgs[0].URL).To(Equal("http://x/doc1.pdf"))
		Expect(msgs[0].FileName).To(Equal("doc1.pdf"))
		Expect(msgs[0].Attempt).To(Equal(1))
		Expect(msgs[0].TraceID).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
	})

	It("returns an empty batch when the stream is idle", func() {
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())
	})

	It("acks and drops messages missing document fields", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{
			Stream: cfg.Stream,
			Values: map[string]any{"document_id": "doc1"},
		}).Err()).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})

	It("requeues with the next attempt and the last error", func() {
		enqueue("doc1")
		msgs, _ := consumer.Read(ctx)

		Expect(consumer.Requeue(ctx, msgs[0], "db unavailable")).To(Succeed())

		again, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(HaveLen(1))
		Expect(again[0].DocumentID).To(Equal("doc1"))
		Expect(again[0].Attempt).To(Equal(2))
		Expect(again[0].LastError).To(Equal("db unavailable"))
		Expect(again[0].TraceID).To(Equal(msgs[0].TraceID))
	})

	It("leaves the message pending when a requeue is interrupted", func() {
		cfg.RequeueDelay = time.Second
		delayed, err := queue.NewRedisConsumer(client, cfg)
		Expect(err).NotTo(HaveOccurred())

		enqueue("doc1")
		msgs, _ := delayed.Read(ctx)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		Expect(delayed.Requeue(cancelled, msgs[0], "db unavailable")).To(MatchError(context.Canceled))

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(Equal(int64(1)))
	})

	It("leaves the message pending when the dead letter write fails", func() {
		Expect(client.Set(ctx, cfg.DLQStream, "not a stream", 0).Err()).To(Succeed())
		enqueue("doc1")
		msgs, _ := consumer.Read(ctx)

		Expect(consumer.SendDLQ(ctx, msgs[0], "fatal")).To(MatchError(ContainSubstring("xadd dlq")))

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(Equal(int64(1)))
	})

	It("moves messages to the dead letter stream", func() {
		enqueue("doc1")
		msgs, _ := consumer.Read(ctx)

		Expect(consumer.SendDLQ(ctx, msgs[0], "missing document reference")).To(Succeed())

		entries, err := client.XRange(ctx, cfg.DLQStream, "-", "+").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Values).To(HaveKeyWithValue("document_id", "doc1"))
		Expect(entries[0].Values).To(HaveKeyWithValue("error", "missing document reference"))
		Expect(entries[0].Values).To(HaveKeyWithValue("source_id", msgs[0].ID))

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})
})

var _ = Describe("ParseMessage", func() {
	DescribeTable("validates required fields",
		func(values map[string]any, errSubstring string) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(errSubstring)))
		},
		Entry("missing id", map[string]any{"url": "u", "file_name": "f"}, "document_id"),
		Entry("missing url", map[string]any{"document_id": "d", "file_name": "f"}, "url"),
		Entry("empty file name", map[string]any{"document_id": "d", "url": "u", "file_name": ""}, "file_name"),
		Entry("bad attempt", map[string]any{"document_id": "d", "url": "u", "file_name": "f", "attempt": "x"}, "attempt"),
	)

	It("defaults attempt to 1", func() {
		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{
			"document_id": "d", "url": "u", "file_name": "f",
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
	})
})
