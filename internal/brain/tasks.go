package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

const (
	stageTaskGeneration = "task_generation"
	taskPromptVersion   = "task_generation_v1"
)

const taskSystemPrompt = `You are a senior engineering manager designing portfolio projects that mirror real industry work.
Respond with a JSON array of projects and nothing else.`

type TaskAgent struct {
	gen *generator
	now func() time.Time
}

func NewTaskAgent(client llm.Client, evals store.LLMEvalStore, limiter *rate.Limiter, cfg GenerationConfig) *TaskAgent {
	return &TaskAgent{
		gen: newGenerator(client, evals, limiter, cfg),
		now: time.Now,
	}
}

// Run generates a leveled project list per core topic. A topic whose call
// or parse fails gets the fallback set; only context cancellation aborts.
func (a *TaskAgent) Run(ctx context.Context, state *model.PipelineState) (*AgentOutput, error) {
	data := state.ExtractedData
	if data == nil {
		return nil, NewFatalError(fmt.Errorf("industry tasks: %w", ErrNoExtractedData))
	}
	if state.IndustryTasks != nil {
		return succeeded("industry tasks already present", nil), nil
	}

	categories := make([]model.TaskCategory, len(data.CoreTopics))
	err := a.gen.forEachTopic(ctx, data.CoreTopics, func(ctx context.Context, i int, topic string) {
		categories[i] = a.generateTopic(ctx, state.DocumentID, data, topic)
	})
	if err != nil {
		return nil, NewRetryableError(fmt.Errorf("generating industry tasks: %w", err))
	}

	catalog := newTaskCatalog(data.AcademicModule, categories, a.now())
	state.IndustryTasks = catalog

	slog.InfoContext(ctx, "industry tasks generated",
		"categories", len(catalog.Categories),
		"total_projects", catalog.TotalProjects,
		"fallback_topics", len(catalog.Metadata.FallbackTopics))

	return succeeded(fmt.Sprintf("generated %d projects", catalog.TotalProjects), map[string]int{
		"categories": len(catalog.Categories),
		"projects":   catalog.TotalProjects,
	}), nil
}

func (a *TaskAgent) generateTopic(ctx context.Context, documentID string, data *model.ExtractedDocumentData, topic string) model.TaskCategory {
	req := llm.Request{
		SystemPrompt: taskSystemPrompt,
		UserPrompt:   taskPrompt(data, topic),
		Temperature:  llm.Temp(0.7),
	}

	resp, latency, err := a.gen.generate(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "task generation failed, using fallback projects", "error", err)
		return fallbackTaskCategory(topic, data)
	}

	parsed := llm.ParseModelResponse(resp.Text, func() []model.Project { return nil })
	projects := normalizeProjects(parsed, topic)
	if len(projects) == 0 {
		slog.WarnContext(ctx, "task response unparseable, using fallback projects",
			"response", logger.Truncate(resp.Text, 500))
		return fallbackTaskCategory(topic, data)
	}

	a.gen.record(ctx, stageTaskGeneration, taskPromptVersion, documentID, req, resp, latency, projects)

	return model.TaskCategory{
		Topic:        topic,
		ProjectCount: len(projects),
		Projects:     projects,
	}
}

func taskPrompt(data *model.ExtractedDocumentData, topic string) string {
	var sb strings.Builder
	sb.WriteString(topicContext(data, topic))
	sb.WriteString(`
Generate 8 to 12 industry projects a student of this topic could build to prove job readiness:
exactly 3 entry, 3 mid and 3 senior projects, plus 2 or 3 principal projects.
Each description explains the business problem. Deliverables and technologies must be concrete.

Return a JSON array matching this schema:
`)
	sb.WriteString(llm.SchemaPrompt(llm.GenerateSchema[[]model.Project]()))
	return sb.String()
}

// normalizeProjects drops projects with neither title nor description and
// fills list fields so nothing downstream sees nil.
func normalizeProjects(projects []model.Project, topic string) []model.Project {
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		p.Title = strings.TrimSpace(p.Title)
		p.Description = strings.TrimSpace(p.Description)
		if p.Title == "" && p.Description == "" {
			continue
		}
		if p.Title == "" {
			p.Title = topic + " project"
		}
		p.Level = normalizeLevel(p.Level)
		p.Deliverables = nonEmpty(p.Deliverables)
		p.Technologies = nonEmpty(p.Technologies)
		p.Metadata.Companies = nonEmpty(p.Metadata.Companies)
		p.Metadata.Skills = nonEmpty(p.Metadata.Skills)
		out = append(out, p)
	}
	return out
}

// newTaskCatalog recomputes every count from the projects themselves.
func newTaskCatalog(module string, categories []model.TaskCategory, now time.Time) *model.TaskCatalog {
	catalog := &model.TaskCatalog{
		AcademicModule: module,
		Categories:     categories,
		Metadata:       model.CatalogMeta{GeneratedAt: now.UTC()},
	}
	for i := range catalog.Categories {
		cat := &catalog.Categories[i]
		cat.ProjectCount = len(cat.Projects)
		catalog.TotalProjects += cat.ProjectCount
		if cat.Fallback {
			catalog.Metadata.FallbackTopics = append(catalog.Metadata.FallbackTopics, cat.Topic)
		}
	}
	return catalog
}
