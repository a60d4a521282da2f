package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"prepwise.app/pipeline/common/llm"
	"prepwise.app/pipeline/internal/analysis"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

type flakyStateStore struct {
	*store.MemoryStateStore
	saveErr error
}

func (s *flakyStateStore) Save(ctx context.Context, state *model.PipelineState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStateStore.Save(ctx, state)
}

var _ = Describe("Network", func() {
	var (
		ctx      context.Context
		client   *mockLLM
		analyzer *mockAnalyzer
		docs     *mockDocs
		states   *store.MemoryStateStore
		network  *brain.Network
		ref      model.DocumentRef
	)

	newNetwork := func(a brain.DocumentAnalyzer, s store.StateStore) *brain.Network {
		return brain.NewNetwork("document-processing-network", brain.Agents{
			Extraction:  brain.NewExtractionAgent(a),
			Tasks:       brain.NewTaskAgent(client, nil, nil, testGenConfig),
			Questions:   brain.NewQuestionAgent(client, nil, nil, testGenConfig),
			Persistence: brain.NewPersistenceAgent(docs),
		}, s, 10)
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLM{generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: `[{"title":"t","level":"entry","description":"d","question":"q?","category":"coding"}]`}, nil
		}}
		analyzer = &mockAnalyzer{analyzeFn: func(context.Context, model.DocumentRef) (*model.ExtractedDocumentData, error) {
			return extractedData("Indexing", "Transactions"), nil
		}}
		docs = newMockDocs()
		states = store.NewMemoryStateStore()
		network = newNetwork(analyzer, states)
		ref = model.DocumentRef{DocumentID: "doc1", URL: "http://x/y.pdf", FileName: "intro-to-databases.pdf"}
	})

	Context("scenario A: happy path", func() {
		It("runs every stage once and saves the document", func() {
			network = newNetwork(analysis.NewAnalyzer(nil, nil, nil), states)

			state, err := network.Run(ctx, ref)
			Expect(err).NotTo(HaveOccurred())

			Expect(state.SavedToDatabase).To(BeTrue())
			Expect(state.ProcessingStarted).To(BeTrue())
			Expect(state.ExtractedData.CoreTopics).NotTo(BeEmpty())
			Expect(state.ExtractedData.AcademicModule).To(Equal("Database Systems"))
			Expect(state.Iterations).To(Equal(4))

			Expect(docs.rows).To(HaveKey("doc1"))
			Expect(docs.rows["doc1"].Status).To(Equal(model.DocumentStatusCompleted))

			_, err = states.Load(ctx, "doc1")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Context("scenario B: model always fails", func() {
		It("completes with fallback catalogs covering every topic", func() {
			client.generateFn = func(context.Context, llm.Request) (*llm.Response, error) {
				return nil, errors.New("model down")
			}

			state, err := network.Run(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.SavedToDatabase).To(BeTrue())

			topics := len(state.ExtractedData.CoreTopics)
			Expect(state.IndustryTasks.Categories).To(HaveLen(topics))
			Expect(state.InterviewQuestions.Categories).To(HaveLen(topics))
			Expect(state.IndustryTasks.Metadata.FallbackTopics).To(HaveLen(topics))
			Expect(state.InterviewQuestions.Metadata.FallbackTopics).To(HaveLen(topics))
			Expect(docs.rows["doc1"].IndustryTasks).NotTo(BeEmpty())
			Expect(docs.rows["doc1"].InterviewQuestions).NotTo(BeEmpty())
		})
	})

	Context("scenario C: database fails once", func() {
		It("resumes at persistence on the next run", func() {
			failures := 1
			docs.updateFn = func(context.Context, model.DocumentUpdate) error {
				if failures > 0 {
					failures--
					return errors.New("db unavailable")
				}
				return nil
			}

			_, err := network.Run(ctx, ref)
			Expect(err).To(HaveOccurred())
			Expect(brain.IsRetryable(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("db unavailable"))

			checkpoint, err := states.Load(ctx, "doc1")
			Expect(err).NotTo(HaveOccurred())
			Expect(checkpoint.SavedToDatabase).To(BeFalse())
			Expect(brain.Route(checkpoint)).To(Equal(brain.PersistenceAgentRef))

			llmCalls := client.Calls()

			state, err := network.Run(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.SavedToDatabase).To(BeTrue())
			Expect(analyzer.callCount).To(Equal(1))
			Expect(client.Calls()).To(Equal(llmCalls))
			Expect(docs.callCount).To(Equal(2))
		})
	})

	Context("checkpoint lifetime", func() {
		It("starts fresh when the checkpoint belongs to a different upload", func() {
			docs.updateFn = func(context.Context, model.DocumentUpdate) error {
				return errors.New("db unavailable")
			}
			analyzer.analyzeFn = func(_ context.Context, r model.DocumentRef) (*model.ExtractedDocumentData, error) {
				return extractedData("Topic-from-" + r.FileName), nil
			}
			old := model.DocumentRef{DocumentID: "doc1", URL: "http://x/old.pdf", FileName: "old.pdf"}

			_, err := network.Run(ctx, old)
			Expect(err).To(HaveOccurred())
			Expect(brain.IsRetryable(err)).To(BeTrue())

			docs.updateFn = nil
			fresh := model.DocumentRef{DocumentID: "doc1", URL: "http://x/new.pdf", FileName: "new.pdf"}

			state, err := network.Run(ctx, fresh)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Ref()).To(Equal(fresh))
			Expect(analyzer.callCount).To(Equal(2))

			row := docs.rows["doc1"]
			Expect(row.FileName).To(Equal("new.pdf"))
			Expect(row.URL).To(Equal("http://x/new.pdf"))
			Expect(row.ExtractedTopics).To(Equal([]string{"Topic-from-new.pdf"}))
		})

		It("discards the checkpoint when an agent fails fatally", func() {
			Expect(states.Save(ctx, model.NewPipelineState(ref))).To(Succeed())
			analyzer.analyzeFn = func(context.Context, model.DocumentRef) (*model.ExtractedDocumentData, error) {
				return nil, analysis.ErrNoResult
			}

			_, err := network.Run(ctx, ref)
			Expect(brain.IsRetryable(err)).To(BeFalse())

			_, err = states.Load(ctx, "doc1")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("keeps the checkpoint after a retryable failure", func() {
			docs.updateFn = func(context.Context, model.DocumentUpdate) error {
				return errors.New("db unavailable")
			}

			_, err := network.Run(ctx, ref)
			Expect(brain.IsRetryable(err)).To(BeTrue())

			checkpoint, err := states.Load(ctx, "doc1")
			Expect(err).NotTo(HaveOccurred())
			Expect(checkpoint.Ref()).To(Equal(ref))
			Expect(checkpoint.ExtractedData).NotTo(BeNil())
		})
	})

	It("rejects a reference with missing fields as fatal", func() {
		ref.URL = ""

		_, err := network.Run(ctx, ref)
		Expect(err).To(MatchError(brain.ErrMissingDocumentRef))
		Expect(brain.IsRetryable(err)).To(BeFalse())
		Expect(analyzer.callCount).To(BeZero())
	})

	It("treats an extraction failure as fatal", func() {
		analyzer.analyzeFn = func(context.Context, model.DocumentRef) (*model.ExtractedDocumentData, error) {
			return nil, analysis.ErrNoResult
		}

		_, err := network.Run(ctx, ref)
		Expect(err).To(MatchError(analysis.ErrNoResult))
		Expect(brain.IsRetryable(err)).To(BeFalse())
		Expect(client.Calls()).To(BeZero())
	})

	It("returns a retryable error when a checkpoint cannot be written", func() {
		network = newNetwork(analyzer, &flakyStateStore{
			MemoryStateStore: states,
			saveErr:          errors.New("redis down"),
		})

		_, err := network.Run(ctx, ref)
		Expect(err).To(MatchError(ContainSubstring("redis down")))
		Expect(brain.IsRetryable(err)).To(BeTrue())
		Expect(analyzer.callCount).To(Equal(1))
	})

	It("stops after the iteration budget", func() {
		loop := &mockAgent{runFn: func(context.Context, *model.PipelineState) (*brain.AgentOutput, error) {
			return &brain.AgentOutput{Success: true}, nil
		}}
		network.Agents[brain.ExtractionAgentRef] = loop
		network.MaxIterations = 3

		state, err := network.Run(ctx, ref)
		Expect(err).To(MatchError(brain.ErrMaxIterations))
		Expect(brain.IsRetryable(err)).To(BeTrue())
		Expect(loop.callCount).To(Equal(3))
		Expect(state.Iterations).To(Equal(3))
	})

	It("uses a custom router when set", func() {
		network.Router = func(*model.PipelineState) brain.AgentRef { return brain.Done }

		state, err := network.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ProcessingStarted).To(BeFalse())
		Expect(analyzer.callCount).To(BeZero())
	})
})
