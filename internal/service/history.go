package service

import (
	"context"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
)

// HistoryService exposes read access to the card operation audit trail.
// Records are appended only by lifecycle transitions, inside their
// transactions.
type HistoryService struct {
	store repository.Store
}

// NewHistoryService initializes a new history service.
func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

// GetCardHistory returns a page of the card's operation records, newest first.
func (s *HistoryService) GetCardHistory(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return s.store.History().FindByCard(ctx, cardID, page)
}

// GetCardHistoryByType returns a page of the card's records of one operation
// type, newest first.
func (s *HistoryService) GetCardHistoryByType(ctx context.Context, cardID int64, opType models.OperationType, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return s.store.History().FindByCardAndType(ctx, cardID, opType, page)
}
