package store

type Stores struct {
	db DBTX
}

// NewStores binds every store to db, which may be a pool or a transaction.
func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Documents() DocumentStore {
	return newDocumentStore(s.db)
}

func (s *Stores) PipelineRuns() PipelineRunStore {
	return newPipelineRunStore(s.db)
}

func (s *Stores) LLMEvals() LLMEvalStore {
	return newLLMEvalStore(s.db)
}
