package worker_test

import (
	"context"
	"errors"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
	"prepwise.app/pipeline/internal/worker"
)

func message(id string, attempt int) queue.Message {
	return queue.Message{
		ID:         id,
		DocumentID: "doc-" + id,
		URL:        "http://x/" + id + ".pdf",
		FileName:   id + ".pdf",
		Attempt:    attempt,
	}
}

var _ = Describe("Worker", func() {
	var (
		ctx       context.Context
		consumer  *mockConsumer
		processor *mockProcessor
		docs      *mockDocumentStore
		states    *store.MemoryStateStore
		w         *worker.Worker
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = newMockConsumer()
		processor = &mockProcessor{}
		docs = newMockDocumentStore()
		states = store.NewMemoryStateStore()
		w = worker.New(consumer, processor, docs, states, worker.Config{MaxAttempts: 3})
	})

	It("acks a successfully processed message", func() {
		w.HandleMessage(ctx, message("1-0", 1))

		Expect(processor.callCount).To(Equal(1))
		Expect(consumer.acked).To(Equal([]string{"1-0"}))
		Expect(consumer.requeued).To(BeEmpty())
		Expect(consumer.dlq).To(BeEmpty())
	})

	It("requeues retryable failures below the attempt limit", func() {
		processor.processFn = func(context.Context, queue.Message) error {
			return brain.NewRetryableError(errors.New("db unavailable"))
		}

		w.HandleMessage(ctx, message("1-0", 2))

		Expect(consumer.requeued).To(Equal([]string{"1-0"}))
		Expect(consumer.dlq).To(BeEmpty())
		Expect(consumer.acked).To(BeEmpty())
	})

	It("dead-letters retryable failures at the attempt limit and marks the document failed", func() {
		docs.statuses["doc-1-0"] = model.DocumentStatusProcessing
		processor.processFn = func(context.Context, queue.Message) error {
			return brain.NewRetryableError(errors.New("db unavailable"))
		}

		w.HandleMessage(ctx, message("1-0", 3))

		Expect(consumer.dlq).To(HaveKeyWithValue("1-0", "db unavailable"))
		Expect(consumer.requeued).To(BeEmpty())
		Expect(docs.statuses["doc-1-0"]).To(Equal(model.DocumentStatusFailed))
		Expect(docs.errors["doc-1-0"]).To(Equal("db unavailable"))
	})

	It("keeps the checkpoint of a requeued message", func() {
		msg := message("1-0", 1)
		Expect(states.Save(ctx, model.NewPipelineState(model.DocumentRef{DocumentID: msg.DocumentID, URL: msg.URL, FileName: msg.FileName}))).To(Succeed())
		processor.processFn = func(context.Context, queue.Message) error {
			return brain.NewRetryableError(errors.New("db unavailable"))
		}

		w.HandleMessage(ctx, msg)

		Expect(consumer.requeued).To(Equal([]string{"1-0"}))
		_, err := states.Load(ctx, msg.DocumentID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("discards the checkpoint of a dead-lettered message", func() {
		msg := message("1-0", 3)
		docs.statuses[msg.DocumentID] = model.DocumentStatusProcessing
		Expect(states.Save(ctx, model.NewPipelineState(model.DocumentRef{DocumentID: msg.DocumentID, URL: msg.URL, FileName: msg.FileName}))).To(Succeed())
		processor.processFn = func(context.Context, queue.Message) error {
			return brain.NewRetryableError(errors.New("db unavailable"))
		}

		w.HandleMessage(ctx, msg)

		Expect(consumer.dlq).To(HaveKey("1-0"))
		_, err := states.Load(ctx, msg.DocumentID)
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("dead-letters fatal failures immediately", func() {
		docs.statuses["doc-1-0"] = model.DocumentStatusProcessing
		processor.processFn = func(context.Context, queue.Message) error {
			return brain.NewFatalError(brain.ErrMissingDocumentRef)
		}

		w.HandleMessage(ctx, message("1-0", 1))

		Expect(consumer.dlq).To(HaveKey("1-0"))
		Expect(docs.statuses["doc-1-0"]).To(Equal(model.DocumentStatusFailed))
	})

	It("recovers panics as retryable failures", func() {
		processor.processFn = func(context.Context, queue.Message) error {
			panic("nil map")
		}

		Expect(func() { w.HandleMessage(ctx, message("1-0", 1)) }).NotTo(Panic())
		Expect(consumer.requeued).To(Equal([]string{"1-0"}))
	})

	It("drains batches until stopped", func() {
		consumer.batches = [][]queue.Message{{message("1-0", 1), message("2-0", 1)}}

		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		Eventually(func() int {
			consumer.mu.Lock()
			defer consumer.mu.Unlock()
			return len(consumer.acked)
		}).Should(Equal(2))

		w.Stop()
		Eventually(done).Should(Receive(BeNil()))
	})
})

var _ = Describe("Processor", func() {
	var (
		ctx     context.Context
		network *mockNetwork
		docs    *mockDocumentStore
		runs    *mockRunStore
		tx      *mockTxRunner
		p       *worker.Processor
	)

	BeforeEach(func() {
		ctx = context.Background()
		network = &mockNetwork{}
		docs = newMockDocumentStore()
		runs = newMockRunStore()
		tx = &mockTxRunner{stores: &mockStores{docs: docs, runs: runs}}
		p = worker.NewProcessor(network, tx, runs)
	})

	It("records a completed run", func() {
		docs.statuses["doc-1-0"] = model.DocumentStatusPending

		Expect(p.Process(ctx, message("1-0", 2))).To(Succeed())

		Expect(network.callCount).To(Equal(1))
		Expect(runs.created).To(HaveLen(1))
		run := runs.created[0]
		Expect(run.DocumentID).To(Equal("doc-1-0"))
		Expect(run.Attempt).To(BeEquivalentTo(2))
		Expect(run.Status).To(Equal(model.RunStatusRunning))
		Expect(runs.finished[run.ID]).To(Equal(model.RunStatusCompleted))
		Expect(docs.statuses["doc-1-0"]).To(Equal(model.DocumentStatusProcessing))
	})

	It("registers a document it has not seen", func() {
		Expect(p.Process(ctx, message("1-0", 1))).To(Succeed())
		Expect(docs.upserted).To(Equal([]string{"doc-1-0"}))
	})

	It("records a failed run and returns the network error", func() {
		docs.statuses["doc-1-0"] = model.DocumentStatusPending
		network.runFn = func(context.Context, model.DocumentRef) (*model.PipelineState, error) {
			return nil, brain.NewRetryableError(errors.New("persistence-agent reported failure"))
		}

		err := p.Process(ctx, message("1-0", 1))
		Expect(err).To(HaveOccurred())
		Expect(brain.IsRetryable(err)).To(BeTrue())

		run := runs.created[0]
		Expect(runs.finished[run.ID]).To(Equal(model.RunStatusFailed))
		Expect(runs.errors[run.ID]).To(ContainSubstring("persistence-agent"))
	})

	It("does not run the network when the run cannot be opened", func() {
		tx.withTxErr = errors.New("pool exhausted")

		err := p.Process(ctx, message("1-0", 1))
		Expect(err).To(MatchError(ContainSubstring("pool exhausted")))
		Expect(brain.IsRetryable(err)).To(BeTrue())
		Expect(network.callCount).To(BeZero())
	})

	It("passes the message's document reference to the network", func() {
		var got model.DocumentRef
		network.runFn = func(_ context.Context, ref model.DocumentRef) (*model.PipelineState, error) {
			got = ref
			return model.NewPipelineState(ref), nil
		}

		Expect(p.Process(ctx, message("1-0", 1))).To(Succeed())
		Expect(got).To(Equal(model.DocumentRef{DocumentID: "doc-1-0", URL: "http://x/1-0.pdf", FileName: "1-0.pdf"}))
	})
})

var _ = Describe("RedisReclaimer", func() {
	var (
		ctx      context.Context
		client   *redis.Client
		consumer *queue.RedisConsumer
		cfg      queue.ConsumerConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr := miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		cfg = queue.ConsumerConfig{
			Stream:    "document_events",
			Group:     "pipeline_group",
			Consumer:  "worker-dead",
			DLQStream: "document_events_dlq",
			BatchSize: 10,
			Block:     10 * time.Millisecond,
		}
		var err error
		consumer, err = queue.NewRedisConsumer(client, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("hands pending messages to the handler", func() {
		producer := queue.NewRedisProducer(client, cfg.Stream, nil)
		Expect(producer.Enqueue(ctx, queue.DocumentEvent{DocumentID: "doc1", URL: "http://x/doc1.pdf", FileName: "doc1.pdf"})).To(Succeed())

		// delivered to a consumer that never acks
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))

		var handled []queue.Message
		reclaimer := worker.NewRedisReclaimer(client, worker.RedisReclaimerConfig{
			Stream:   cfg.Stream,
			Group:    cfg.Group,
			Consumer: "worker-live",
			Interval: time.Minute,
		}, consumer, func(ctx context.Context, msg queue.Message) {
			handled = append(handled, msg)
			Expect(consumer.Ack(ctx, msg)).To(Succeed())
		})

		n, err := reclaimer.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(handled).To(HaveLen(1))
		Expect(handled[0].DocumentID).To(Equal("doc1"))

		n, err = reclaimer.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})
