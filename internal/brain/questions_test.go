package brain_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
)

func expectComplete(q model.Question) {
	Expect(q.Category).To(BeElementOf(model.QuestionTypes))
	Expect(q.Difficulty.Valid()).To(BeTrue())
	Expect(q.Question).NotTo(BeEmpty())
	Expect(q.Context).NotTo(BeEmpty())
	Expect(q.ExpectedAnswer).NotTo(BeEmpty())
	Expect(q.EvaluationCriteria).NotTo(BeEmpty())
	Expect(q.FollowUpQuestions).NotTo(BeEmpty())
	Expect(q.RealCompanyExample).NotTo(BeEmpty())
	Expect(q.SampleSolution).NotTo(BeEmpty())
	Expect(q.CommonMistakes).NotTo(BeEmpty())
	Expect(q.InterviewTips).NotTo(BeEmpty())
}

const completeQuestion = `{
  "category": "system-design",
  "difficulty": "senior",
  "question": "Design a sharded ledger.",
  "context": "c",
  "expectedAnswer": "e",
  "evaluationCriteria": ["x"],
  "followUpQuestions": ["y"],
  "realCompanyExample": "Stripe",
  "sampleSolution": "s",
  "commonMistakes": ["m"],
  "interviewTips": ["t"]
}`

var _ = Describe("QuestionAgent", func() {
	var (
		ctx    context.Context
		client *mockLLM
		agent  *brain.QuestionAgent
		state  *model.PipelineState
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLM{}
		agent = brain.NewQuestionAgent(client, nil, nil, testGenConfig)
		state = model.NewPipelineState(model.DocumentRef{DocumentID: "doc1", URL: "http://x/y.pdf", FileName: "y.pdf"})
		state.ExtractedData = extractedData("Indexing", "Transactions")
	})

	It("keeps complete questions untouched", func() {
		client.generateFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "[" + completeQuestion + "]"}, nil
		}

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())

		catalog := state.InterviewQuestions
		Expect(catalog.Categories).To(HaveLen(2))
		Expect(catalog.TotalQuestions).To(Equal(2))
		Expect(catalog.Metadata.BackfilledFields).To(BeZero())

		q := catalog.Categories[0].Questions[0]
		Expect(q.Category).To(Equal(model.QuestionTypeSystemDesign))
		Expect(q.RealCompanyExample).To(Equal("Stripe"))
		Expect(q.CommonMistakes).To(Equal([]string{"m"}))
	})

	It("back-fills missing fields and counts them", func() {
		client.generateFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "```json\n" + `[{"question":"What is a B-tree?","category":"System Design","difficulty":"Intermediate"},{"question":"  "}]` + "\n```"}, nil
		}

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())

		catalog := state.InterviewQuestions
		Expect(catalog.Categories[0].Questions).To(HaveLen(1))
		q := catalog.Categories[0].Questions[0]
		expectComplete(q)
		Expect(q.Category).To(Equal(model.QuestionTypeSystemDesign))
		Expect(q.Difficulty).To(Equal(model.LevelMid))
		Expect(q.RealCompanyExample).To(ContainSubstring("Stripe"))

		// eight defaulted fields per question, two topics
		Expect(catalog.Metadata.BackfilledFields).To(Equal(16))
		Expect(catalog.Metadata.FallbackTopics).To(BeEmpty())
	})

	It("maps unknown question types to technical", func() {
		client.generateFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: `[{"question":"Why?","category":"trivia"}]`}, nil
		}

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.InterviewQuestions.Categories[0].Questions[0].Category).To(Equal(model.QuestionTypeTechnical))
		Expect(state.InterviewQuestions.Categories[0].Questions[0].Difficulty).To(Equal(model.LevelEntry))
	})

	It("falls back per topic with fully populated questions", func() {
		client.generateFn = func(_ context.Context, req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.UserPrompt, "Topic: Indexing") {
				return nil, errors.New("rate limited")
			}
			return &llm.Response{Text: "[" + completeQuestion + "]"}, nil
		}

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())

		catalog := state.InterviewQuestions
		Expect(catalog.Categories[0].Fallback).To(BeTrue())
		Expect(catalog.Categories[0].Questions).To(HaveLen(len(model.QuestionTypes)))
		for _, q := range catalog.Categories[0].Questions {
			expectComplete(q)
		}
		Expect(catalog.Metadata.FallbackTopics).To(Equal([]string{"Indexing"}))

		sum := 0
		for _, cat := range catalog.Categories {
			Expect(cat.QuestionCount).To(Equal(len(cat.Questions)))
			sum += cat.QuestionCount
		}
		Expect(catalog.TotalQuestions).To(Equal(sum))
	})

	It("flattens questions with their type", func() {
		client.generateFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "[" + completeQuestion + "]"}, nil
		}

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.InterviewQuestions.Flatten()).To(Equal([]string{
			"Design a sharded ledger. (system-design)",
			"Design a sharded ledger. (system-design)",
		}))
	})
})
