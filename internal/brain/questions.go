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
	stageQuestionGeneration = "question_generation"
	questionPromptVersion   = "question_generation_v1"
)

const questionSystemPrompt = `You are a hiring manager preparing candidates for technical interviews.
Respond with a JSON array of interview questions and nothing else.`

type QuestionAgent struct {
	gen *generator
	now func() time.Time
}

func NewQuestionAgent(client llm.Client, evals store.LLMEvalStore, limiter *rate.Limiter, cfg GenerationConfig) *QuestionAgent {
	return &QuestionAgent{
		gen: newGenerator(client, evals, limiter, cfg),
		now: time.Now,
	}
}

type questionResult struct {
	category   model.QuestionCategory
	backfilled int
}

func (a *QuestionAgent) Run(ctx context.Context, state *model.PipelineState) (*AgentOutput, error) {
	data := state.ExtractedData
	if data == nil {
		return nil, NewFatalError(fmt.Errorf("interview questions: %w", ErrNoExtractedData))
	}
	if state.InterviewQuestions != nil {
		return succeeded("interview questions already present", nil), nil
	}

	results := make([]questionResult, len(data.CoreTopics))
	err := a.gen.forEachTopic(ctx, data.CoreTopics, func(ctx context.Context, i int, topic string) {
		results[i] = a.generateTopic(ctx, state.DocumentID, data, topic)
	})
	if err != nil {
		return nil, NewRetryableError(fmt.Errorf("generating interview questions: %w", err))
	}

	catalog := newQuestionCatalog(data.AcademicModule, results, a.now())
	state.InterviewQuestions = catalog

	slog.InfoContext(ctx, "interview questions generated",
		"categories", len(catalog.Categories),
		"total_questions", catalog.TotalQuestions,
		"fallback_topics", len(catalog.Metadata.FallbackTopics),
		"backfilled_fields", catalog.Metadata.BackfilledFields)

	return succeeded(fmt.Sprintf("generated %d questions", catalog.TotalQuestions), map[string]int{
		"categories": len(catalog.Categories),
		"questions":  catalog.TotalQuestions,
	}), nil
}

func (a *QuestionAgent) generateTopic(ctx context.Context, documentID string, data *model.ExtractedDocumentData, topic string) questionResult {
	req := llm.Request{
		SystemPrompt: questionSystemPrompt,
		UserPrompt:   questionPrompt(data, topic),
		Temperature:  llm.Temp(0.7),
	}

	resp, latency, err := a.gen.generate(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "question generation failed, using fallback questions", "error", err)
		return questionResult{category: fallbackQuestionCategory(topic, data)}
	}

	parsed := llm.ParseModelResponse(resp.Text, func() []model.Question { return nil })
	questions, backfilled := normalizeQuestions(parsed, topic, data)
	if len(questions) == 0 {
		slog.WarnContext(ctx, "question response unparseable, using fallback questions",
			"response", logger.Truncate(resp.Text, 500))
		return questionResult{category: fallbackQuestionCategory(topic, data)}
	}
	if backfilled > 0 {
		slog.WarnContext(ctx, "model omitted question fields, defaults applied",
			"backfilled_fields", backfilled,
			"questions", len(questions))
	}

	a.gen.record(ctx, stageQuestionGeneration, questionPromptVersion, documentID, req, resp, latency, questions)

	return questionResult{
		category: model.QuestionCategory{
			Topic:         topic,
			QuestionCount: len(questions),
			Questions:     questions,
		},
		backfilled: backfilled,
	}
}

func questionPrompt(data *model.ExtractedDocumentData, topic string) string {
	var sb strings.Builder
	sb.WriteString(topicContext(data, topic))
	sb.WriteString(`
Generate 15 to 20 interview questions on this topic spread across entry, mid, senior and principal difficulty.
Cover the categories technical, behavioral, coding, system-design, problem-solving and industry-knowledge.
Every field is required. realCompanyExample names a real company and what it did.

Return a JSON array matching this schema:
`)
	sb.WriteString(llm.SchemaPrompt(llm.GenerateSchema[[]model.Question]()))
	return sb.String()
}

// normalizeQuestions drops entries without question text and back-fills
// every other missing field. It returns the number of fields defaulted.
func normalizeQuestions(questions []model.Question, topic string, data *model.ExtractedDocumentData) ([]model.Question, int) {
	out := make([]model.Question, 0, len(questions))
	backfilled := 0
	for _, q := range questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.Category = normalizeQuestionType(q.Category)
		q.Difficulty = normalizeLevel(q.Difficulty)
		backfilled += backfillQuestion(&q, topic, data)
		out = append(out, q)
	}
	return out, backfilled
}

func backfillQuestion(q *model.Question, topic string, data *model.ExtractedDocumentData) int {
	n := 0
	fillString := func(field *string, def string) {
		if strings.TrimSpace(*field) == "" {
			*field = def
			n++
		}
	}
	fillList := func(field *[]string, def ...string) {
		*field = nonEmpty(*field)
		if len(*field) == 0 {
			*field = def
			n++
		}
	}

	fillString(&q.Context, fmt.Sprintf("Assesses practical understanding of %s as used in industry.", topic))
	fillString(&q.ExpectedAnswer, fmt.Sprintf("A structured answer that explains the core ideas of %s, applies them to the scenario and discusses trade-offs.", topic))
	fillList(&q.EvaluationCriteria,
		"Technical accuracy",
		"Clarity of explanation",
		"Awareness of trade-offs")
	fillList(&q.FollowUpQuestions,
		"How would your approach change at larger scale?",
		"What would you monitor in production?")
	fillString(&q.RealCompanyExample, companyExample(topic, data))
	fillString(&q.SampleSolution, fmt.Sprintf("Clarify requirements, outline an approach grounded in %s, walk through an example and close with limitations.", topic))
	fillList(&q.CommonMistakes,
		"Jumping to a solution before clarifying requirements",
		"Ignoring edge cases and failure modes")
	fillList(&q.InterviewTips,
		"Think aloud and state assumptions",
		"Relate the answer to a project you have built")
	return n
}

func companyExample(topic string, data *model.ExtractedDocumentData) string {
	if data != nil && len(data.RelevantCompanies) > 0 {
		return fmt.Sprintf("%s applies %s in production systems.", data.RelevantCompanies[0], topic)
	}
	return fmt.Sprintf("Large technology companies apply %s in production systems.", topic)
}

func newQuestionCatalog(module string, results []questionResult, now time.Time) *model.QuestionCatalog {
	catalog := &model.QuestionCatalog{
		AcademicModule: module,
		Categories:     make([]model.QuestionCategory, 0, len(results)),
		Metadata:       model.CatalogMeta{GeneratedAt: now.UTC()},
	}
	for _, r := range results {
		cat := r.category
		cat.QuestionCount = len(cat.Questions)
		catalog.TotalQuestions += cat.QuestionCount
		catalog.Metadata.BackfilledFields += r.backfilled
		if cat.Fallback {
			catalog.Metadata.FallbackTopics = append(catalog.Metadata.FallbackTopics, cat.Topic)
		}
		catalog.Categories = append(catalog.Categories, cat)
	}
	return catalog
}
