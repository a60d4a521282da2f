package service

import (
	"log/slog"

	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
)

type Services struct {
	stores   *store.Stores
	producer queue.Producer
	logger   *slog.Logger
}

func NewServices(stores *store.Stores, producer queue.Producer, logger *slog.Logger) *Services {
	return &Services{
		stores:   stores,
		producer: producer,
		logger:   logger,
	}
}

func (s *Services) Documents() DocumentService {
	return NewDocumentService(s.stores.Documents(), s.stores.PipelineRuns(), s.producer, s.logger)
}
