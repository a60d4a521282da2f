package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

// ErrNoResult is returned when no tier produced a usable profile.
var ErrNoResult = errors.New("document analysis produced no result")

const (
	defaultMaxChars = 12000
	promptVersion   = "document_extraction_v1"
	stageExtraction = "document_extraction"
	schemaName      = "extracted_document_data"
)

const systemPrompt = `You analyse academic course material for a career preparation product.
Identify what the document teaches and how industry uses it.
Respond with a single JSON object and nothing else.`

// Analyzer turns a document reference into ExtractedDocumentData, degrading
// from content analysis to filename heuristics to a generic profile.
type Analyzer struct {
	fetcher  Fetcher
	llm      llm.Client
	evals    store.LLMEvalStore
	retry    llm.RetryPolicy
	maxChars int
}

type Option func(*Analyzer)

func WithRetryPolicy(p llm.RetryPolicy) Option {
	return func(a *Analyzer) { a.retry = p }
}

func WithMaxChars(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// NewAnalyzer builds an Analyzer. A nil client or fetcher disables the
// content tier; a nil eval store disables eval logging.
func NewAnalyzer(fetcher Fetcher, client llm.Client, evals store.LLMEvalStore, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:  fetcher,
		llm:      client,
		evals:    evals,
		retry:    llm.DefaultRetryPolicy,
		maxChars: defaultMaxChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Analyze(ctx context.Context, ref model.DocumentRef) (*model.ExtractedDocumentData, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "pipeline.analysis"})

	if data, err := a.fromContent(ctx, ref); err != nil {
		slog.WarnContext(ctx, "content analysis failed, falling back to file name",
			"error", err,
			"file_name", ref.FileName)
	} else if data = normalize(data, ref); data != nil {
		return data, nil
	}

	if data, ok := FromFileName(ref); ok {
		if data = normalize(data, ref); data != nil {
			slog.InfoContext(ctx, "document profiled from file name",
				"module", data.AcademicModule,
				"topics", len(data.CoreTopics))
			return data, nil
		}
	}

	if data := normalize(Generic(ref), ref); data != nil {
		slog.InfoContext(ctx, "using generic academic profile")
		return data, nil
	}
	return nil, ErrNoResult
}

func (a *Analyzer) fromContent(ctx context.Context, ref model.DocumentRef) (*model.ExtractedDocumentData, error) {
	if a.fetcher == nil || a.llm == nil {
		return nil, errors.New("content analysis not configured")
	}
	if ref.URL == "" {
		return nil, errors.New("document has no url")
	}

	content, err := a.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(content, ref.FileName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("document contains no extractable text")
	}
	text = truncateRunes(text, a.maxChars)

	slog.DebugContext(ctx, "document text extracted",
		"chars", utf8.RuneCountInString(text),
		"truncated_body", content.Truncated)

	req := llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(ref.FileName, text),
		SchemaName:   schemaName,
		Schema:       llm.GenerateSchema[model.ExtractedDocumentData](),
		Temperature:  llm.Temp(0.2),
	}

	start := time.Now()
	data, resp, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	data.Source = model.AnalysisSourceContent

	store.RecordEval(ctx, a.evals, store.EvalRecord{
		DocumentID:       ref.DocumentID,
		Stage:            stageExtraction,
		Input:            logger.Truncate(req.UserPrompt, 2000),
		Output:           data,
		Model:            a.llm.Model(),
		PromptVersion:    promptVersion,
		Latency:          time.Since(start),
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	})

	return data, nil
}

// complete asks for a strict schema response first. Models or gateways that
// reject structured output get the free-text prompt with retries instead.
func (a *Analyzer) complete(ctx context.Context, req llm.Request) (*model.ExtractedDocumentData, *llm.Response, error) {
	var data model.ExtractedDocumentData
	resp, err := a.llm.Chat(ctx, req, &data)
	if err == nil {
		return &data, resp, nil
	}
	slog.WarnContext(ctx, "structured analysis failed, retrying as free text", "error", err)

	resp, err = llm.GenerateWithRetry(ctx, a.llm, req, a.retry)
	if err != nil {
		return nil, nil, fmt.Errorf("analysing document: %w", err)
	}

	data, err = llm.TryParseModelResponse[model.ExtractedDocumentData](resp.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing analysis: %w", err)
	}
	return &data, resp, nil
}

// truncateRunes keeps at most n characters of text.
func truncateRunes(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func buildPrompt(fileName, text string) string {
	var sb strings.Builder
	sb.WriteString("File name: ")
	sb.WriteString(fileName)
	sb.WriteString("\n\nReturn JSON matching this schema:\n")
	sb.WriteString(llm.SchemaPrompt(llm.GenerateSchema[model.ExtractedDocumentData]()))
	sb.WriteString("\n\ncoreTopics must list 3 to 8 topics. skillLevels maps each core topic to beginner, intermediate and advanced skills.")
	sb.WriteString("\n\nDocument text:\n")
	sb.WriteString(text)
	return sb.String()
}

// normalize stamps the request identity onto data, deduplicates every list
// and fills skillLevels for each core topic. It returns nil when no core
// topics survive.
func normalize(data *model.ExtractedDocumentData, ref model.DocumentRef) *model.ExtractedDocumentData {
	if data == nil {
		return nil
	}

	data.DocumentID = ref.DocumentID
	data.FileName = ref.FileName
	data.AcademicModule = strings.TrimSpace(data.AcademicModule)

	data.CoreTopics = dedupe(data.CoreTopics)
	if len(data.CoreTopics) == 0 {
		return nil
	}
	if data.AcademicModule == "" {
		data.AcademicModule = data.CoreTopics[0]
	}

	data.Subtopics = dedupe(data.Subtopics)
	data.IndustryApplications = dedupe(data.IndustryApplications)
	data.RelevantCompanies = dedupe(data.RelevantCompanies)
	data.JobRoles = dedupe(data.JobRoles)
	data.TechnicalSkills = dedupe(data.TechnicalSkills)
	data.ToolsAndTechnologies = dedupe(data.ToolsAndTechnologies)
	data.RealWorldUseCases = dedupe(data.RealWorldUseCases)

	levels := make(map[string][]string, len(data.CoreTopics))
	for _, topic := range data.CoreTopics {
		if skills := dedupe(data.SkillLevels[topic]); len(skills) > 0 {
			levels[topic] = skills
			continue
		}
		levels[topic] = []string{
			"Beginner: explain the fundamentals of " + topic,
			"Intermediate: apply " + topic + " to a realistic project",
			"Advanced: design and evaluate production systems using " + topic,
		}
	}
	data.SkillLevels = levels

	return data
}

// dedupe trims entries and drops blanks and case-insensitive duplicates,
// keeping first occurrence order. The result is never nil.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
