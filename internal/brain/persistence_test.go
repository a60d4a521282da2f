package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
)

var _ = Describe("PersistenceAgent", func() {
	var (
		ctx   context.Context
		docs  *mockDocs
		agent *brain.PersistenceAgent
		state *model.PipelineState
	)

	BeforeEach(func() {
		ctx = context.Background()
		docs = newMockDocs()
		agent = brain.NewPersistenceAgent(docs)
		state = model.NewPipelineState(model.DocumentRef{DocumentID: "doc1", URL: "http://x/y.pdf", FileName: "y.pdf"})
		state.ExtractedData = extractedData("Indexing", "Transactions")
		state.IndustryTasks = &model.TaskCatalog{
			TotalProjects: 1,
			Categories: []model.TaskCategory{{
				Topic:        "Indexing",
				ProjectCount: 1,
				Projects:     []model.Project{{Title: "Index advisor", Description: "Suggest indexes"}},
			}},
		}
		state.InterviewQuestions = &model.QuestionCatalog{
			TotalQuestions: 1,
			Categories: []model.QuestionCategory{{
				Topic:         "Indexing",
				QuestionCount: 1,
				Questions:     []model.Question{{Question: "What is a B-tree?", Category: model.QuestionTypeTechnical}},
			}},
		}
	})

	It("writes the flattened record and sets the terminal flag", func() {
		out, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Success).To(BeTrue())
		Expect(out.Counts).To(HaveKeyWithValue("projects", 1))
		Expect(state.SavedToDatabase).To(BeTrue())

		row := docs.rows["doc1"]
		Expect(row.FileName).To(Equal("y.pdf"))
		Expect(row.URL).To(Equal("http://x/y.pdf"))
		Expect(row.Module).To(Equal("Database Systems"))
		Expect(row.ExtractedTopics).To(Equal([]string{"Indexing", "Transactions"}))
		Expect(row.IndustryTasks).To(Equal([]string{"Index advisor: Suggest indexes"}))
		Expect(row.InterviewQuestions).To(Equal([]string{"What is a B-tree? (technical)"}))
		Expect(row.Summary).To(Equal("Database Systems: 2 topics, 1 projects, 1 questions"))
		Expect(row.Status).To(Equal(model.DocumentStatusCompleted))
	})

	It("is idempotent for identical state", func() {
		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		first := docs.rows["doc1"]

		state.SavedToDatabase = false
		_, err = agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())

		Expect(docs.rows).To(HaveLen(1))
		Expect(docs.rows["doc1"]).To(Equal(first))
	})

	It("handles missing catalogs as empty lists", func() {
		state.IndustryTasks = nil
		state.InterviewQuestions = nil

		_, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs.rows["doc1"].IndustryTasks).To(BeEmpty())
		Expect(docs.rows["doc1"].IndustryTasks).NotTo(BeNil())
		Expect(docs.rows["doc1"].InterviewQuestions).NotTo(BeNil())
	})

	It("reports a failed write without setting the terminal flag", func() {
		docs.updateFn = func(context.Context, model.DocumentUpdate) error {
			return errors.New("connection refused")
		}

		out, err := agent.Run(ctx, state)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Success).To(BeFalse())
		Expect(out.Error).To(ContainSubstring("connection refused"))
		Expect(state.SavedToDatabase).To(BeFalse())
		Expect(brain.Route(state)).To(Equal(brain.PersistenceAgentRef))
	})

	It("fails fatally without extracted data", func() {
		state.ExtractedData = nil

		_, err := agent.Run(ctx, state)
		Expect(err).To(MatchError(brain.ErrNoExtractedData))
		Expect(docs.callCount).To(BeZero())
	})
})
