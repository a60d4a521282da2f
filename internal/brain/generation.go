package brain

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

// GenerationConfig bounds per-topic model calls.
type GenerationConfig struct {
	Concurrency   int
	RatePerSecond float64 // <= 0 means unlimited
	Retry         llm.RetryPolicy
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Concurrency:   4,
		RatePerSecond: 2,
		Retry:         llm.DefaultRetryPolicy,
	}
}

// generator fans a stage out over core topics. Agents built from the same
// limiter share one request budget against the model API.
type generator struct {
	llm         llm.Client
	evals       store.LLMEvalStore
	limiter     *rate.Limiter
	concurrency int
	retry       llm.RetryPolicy
}

// NewLimiter builds the limiter shared by the generation agents.
func NewLimiter(cfg GenerationConfig) *rate.Limiter {
	if cfg.RatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Concurrency
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
}

func newGenerator(client llm.Client, evals store.LLMEvalStore, limiter *rate.Limiter, cfg GenerationConfig) *generator {
	if limiter == nil {
		limiter = NewLimiter(cfg)
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &generator{
		llm:         client,
		evals:       evals,
		limiter:     limiter,
		concurrency: concurrency,
		retry:       cfg.Retry,
	}
}

// forEachTopic runs fn for every topic with bounded parallelism. fn owns
// slot i of whatever it writes to and must not fail; the only error is the
// context ending before all topics ran.
func (g *generator) forEachTopic(ctx context.Context, topics []string, fn func(ctx context.Context, i int, topic string)) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i, topic := range topics {
		eg.Go(func() error {
			topicCtx := logger.WithLogFields(egCtx, logger.LogFields{Topic: &topic})
			fn(topicCtx, i, topic)
			return nil
		})
	}

	_ = eg.Wait()
	return ctx.Err()
}

// generate issues one rate-limited model call with retries.
func (g *generator) generate(ctx context.Context, req llm.Request) (*llm.Response, time.Duration, error) {
	if g.llm == nil {
		return nil, 0, errors.New("no model client configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	resp, err := llm.GenerateWithRetry(ctx, g.llm, req, g.retry)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func (g *generator) record(ctx context.Context, stage, version, documentID string, req llm.Request, resp *llm.Response, latency time.Duration, output any) {
	store.RecordEval(ctx, g.evals, store.EvalRecord{
		DocumentID:       documentID,
		Stage:            stage,
		Input:            req.UserPrompt,
		Output:           output,
		Model:            g.llm.Model(),
		PromptVersion:    version,
		Latency:          latency,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	})
}

// topicContext renders the extracted profile as prompt context.
func topicContext(data *model.ExtractedDocumentData, topic string) string {
	var sb strings.Builder
	sb.WriteString("Academic module: " + data.AcademicModule + "\n")
	sb.WriteString("Topic: " + topic + "\n")
	writeList(&sb, "Subtopics", data.Subtopics)
	writeList(&sb, "Industry applications", data.IndustryApplications)
	writeList(&sb, "Relevant companies", data.RelevantCompanies)
	writeList(&sb, "Job roles", data.JobRoles)
	writeList(&sb, "Tools and technologies", data.ToolsAndTechnologies)
	writeList(&sb, "Skill levels for this topic", data.SkillLevels[topic])
	return sb.String()
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(label + ": " + strings.Join(items, ", ") + "\n")
}

// normalizeLevel maps free-form seniority labels onto the four levels.
// Unrecognised labels become entry.
func normalizeLevel(l model.Level) model.Level {
	s := strings.ToLower(strings.TrimSpace(string(l)))
	switch {
	case model.Level(s).Valid():
		return model.Level(s)
	case strings.Contains(s, "principal"), strings.Contains(s, "staff"),
		strings.Contains(s, "expert"), strings.Contains(s, "lead"):
		return model.LevelPrincipal
	case strings.Contains(s, "senior"), strings.Contains(s, "advanced"), strings.Contains(s, "hard"):
		return model.LevelSenior
	case strings.Contains(s, "mid"), strings.Contains(s, "intermediate"), strings.Contains(s, "medium"):
		return model.LevelMid
	default:
		return model.LevelEntry
	}
}

func normalizeQuestionType(t model.QuestionType) model.QuestionType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	for _, known := range model.QuestionTypes {
		if s == string(known) {
			return known
		}
	}
	return model.QuestionTypeTechnical
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
