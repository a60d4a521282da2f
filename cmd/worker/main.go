package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"prepwise.app/pipeline/common/id"
	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/common/otel"
	"prepwise.app/pipeline/core/config"
	"prepwise.app/pipeline/core/db"
	"prepwise.app/pipeline/internal/analysis"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/service"
	"prepwise.app/pipeline/internal/store"
	"prepwise.app/pipeline/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "pipeline worker starting",
		"env", cfg.Env,
		"network", cfg.Network.Name,
		"workflow_client", cfg.Network.WorkflowClientID,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Initialize snowflake ID generator (use different node ID than server)
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	llmClient, err := llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm client ready", "model", llmClient.Model())

	stores := store.NewStores(database.Pool())

	states := store.NewRedisStateStore(redisClient, store.RedisStateOptions{TTL: cfg.Network.StateTTL})
	if active, err := states.ListActive(ctx); err != nil {
		slog.WarnContext(ctx, "failed to list in-flight pipeline states", "error", err)
	} else if len(active) > 0 {
		slog.InfoContext(ctx, "resumable pipeline states found", "count", len(active))
	}

	network := newNetwork(cfg, llmClient, stores, states)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // One document at a time
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	txRunner := &workerTxRunnerAdapter{runner: service.NewTxRunner(database)}
	processor := worker.NewProcessor(network, txRunner, stores.PipelineRuns())

	w := worker.New(consumer, processor, stores.Documents(), states, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.HandleMessage)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go func() {
		reclaimer.Run(runCtx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		// Stop reclaimer first (quick)
		reclaimer.Stop()
		// Stop worker (may be mid-document)
		w.Stop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded, cancelling in-flight document")
		stopRun()
	case <-stopped:
	}

	for len(errCh) > 0 {
		if err := <-errCh; err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func newNetwork(cfg config.Config, llmClient llm.Client, stores *store.Stores, states store.StateStore) *brain.Network {
	genCfg := brain.DefaultGenerationConfig()
	genCfg.Concurrency = cfg.Network.Concurrency
	genCfg.RatePerSecond = cfg.Network.RatePerSecond

	// Task and question agents share one request budget.
	limiter := brain.NewLimiter(genCfg)
	evals := stores.LLMEvals()

	analyzer := analysis.NewAnalyzer(
		analysis.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes),
		llmClient,
		evals,
	)

	return brain.NewNetwork(cfg.Network.Name, brain.Agents{
		Extraction:  brain.NewExtractionAgent(analyzer),
		Tasks:       brain.NewTaskAgent(llmClient, evals, limiter, genCfg),
		Questions:   brain.NewQuestionAgent(llmClient, evals, limiter, genCfg),
		Persistence: brain.NewPersistenceAgent(stores.Documents()),
	}, states, cfg.Network.MaxIterations)
}

// workerTxRunnerAdapter bridges service.TxRunner to worker.TxRunner.
type workerTxRunnerAdapter struct {
	runner service.TxRunner
}

func (a *workerTxRunnerAdapter) WithTx(ctx context.Context, fn func(stores worker.StoreProvider) error) error {
	return a.runner.WithTx(ctx, func(stores service.StoreProvider) error {
		return fn(stores)
	})
}

const banner = `
 ___ ___ ___ ___ __      _____ ___ ___  __      _____  ___ _  _____ ___
| _ \ _ \ __| _ \\ \    / /_ _/ __| __| \ \    / / _ \| _ \ |/ / __| _ \
|  _/   / _||  _/ \ \/\/ / | |\__ \ _|   \ \/\/ / (_) |   / ' <| _||   /
|_| |_|_\___|_|    \_/\_/ |___|___/___|   \_/\_/ \___/|_|_\_|\_\___|_|_\
`
