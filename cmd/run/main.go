package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prepwise.app/pipeline/common/id"
	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/core/config"
	"prepwise.app/pipeline/core/db"
	"prepwise.app/pipeline/internal/analysis"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

func main() {
	url := flag.String("url", "", "document URL to analyse")
	documentID := flag.String("id", "", "document id (generated when empty)")
	fileName := flag.String("file", "", "original file name (defaults to the URL's last path segment)")
	dryRun := flag.Bool("dry-run", false, "log the document update instead of writing it to the database")
	flag.Parse()

	if strings.TrimSpace(*url) == "" {
		die("-url is required")
	}

	ref := model.DocumentRef{
		DocumentID: *documentID,
		URL:        *url,
		FileName:   *fileName,
	}
	if ref.FileName == "" {
		ref.FileName = (*url)[strings.LastIndex(*url, "/")+1:]
	}

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		die("load config: %v", err)
	}
	logger.Setup(cfg)

	if err := id.Init(3); err != nil {
		die("init id generator: %v", err)
	}
	if ref.DocumentID == "" {
		ref.DocumentID = fmt.Sprintf("cli-%d", id.New())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmClient, err := llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		die("create llm client: %v", err)
	}

	var (
		docs  brain.DocumentWriter
		evals store.LLMEvalStore
	)
	if *dryRun {
		docs = logWriter{}
	} else {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			die("connect database: %v", err)
		}
		defer database.Close()

		stores := store.NewStores(database.Pool())
		if _, err := stores.Documents().UpsertPending(ctx, ref); err != nil {
			die("register document: %v", err)
		}
		docs = stores.Documents()
		evals = stores.LLMEvals()
	}

	genCfg := brain.DefaultGenerationConfig()
	genCfg.Concurrency = cfg.Network.Concurrency
	genCfg.RatePerSecond = cfg.Network.RatePerSecond
	limiter := brain.NewLimiter(genCfg)

	analyzer := analysis.NewAnalyzer(
		analysis.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes),
		llmClient,
		evals,
	)

	network := brain.NewNetwork(cfg.Network.Name, brain.Agents{
		Extraction:  brain.NewExtractionAgent(analyzer),
		Tasks:       brain.NewTaskAgent(llmClient, evals, limiter, genCfg),
		Questions:   brain.NewQuestionAgent(llmClient, evals, limiter, genCfg),
		Persistence: brain.NewPersistenceAgent(docs),
	}, store.NewMemoryStateStore(), cfg.Network.MaxIterations)

	state, err := network.Run(ctx, ref)
	if state != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(state); encErr != nil {
			die("encode state: %v", encErr)
		}
	}
	if err != nil {
		die("run network (retryable=%t): %v", brain.IsRetryable(err), err)
	}
}

// logWriter stands in for the documents table on -dry-run.
type logWriter struct{}

func (logWriter) UpdateWithExtractedData(ctx context.Context, update model.DocumentUpdate) error {
	slog.InfoContext(ctx, "dry run: document update",
		"document_id", update.ID,
		"module", update.Module,
		"summary", update.Summary,
		"topics", len(update.ExtractedTopics),
		"tasks", len(update.IndustryTasks),
		"questions", len(update.InterviewQuestions))
	return nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
