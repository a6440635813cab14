// Package repository defines the persistence contracts for the card ledger
// and provides Postgres and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
)

// Store is the root persistence capability. InTx runs fn against tx-scoped
// stores; all multi-step core operations (create+history, transition+history,
// debit+credit+receipt) go through it so they commit or roll back as a unit.
// Calling InTx on an already tx-scoped Store joins the enclosing transaction.
type Store interface {
	Cards() CardStore
	Transfers() TransferStore
	BlockRequests() BlockRequestStore
	History() HistoryStore
	Users() UserStore
	InTx(ctx context.Context, fn func(Store) error) error
}

// CardStore persists cards. Uniqueness of the encrypted number is enforced
// here; violating it fails with models.ErrDuplicateCard.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id int64) (*models.Card, error)
	// FindByIDForUpdate locks the card row for the duration of the enclosing
	// transaction so concurrent balance checks never see stale state.
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error)
	FindByUser(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.Card], error)
	FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.Card], error)
	FindExpiredActive(ctx context.Context, asOf time.Time) ([]models.Card, error)
	Save(ctx context.Context, card *models.Card) error
	DeleteByID(ctx context.Context, id int64) error
}

// TransferStore persists transfer receipts. Write-once; no update or delete.
type TransferStore interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	FindByFromCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error)
	FindByToCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error)
}

// BlockRequestStore persists card block requests.
type BlockRequestStore interface {
	Create(ctx context.Context, request *models.CardBlockRequest) error
	FindByID(ctx context.Context, id int64) (*models.CardBlockRequest, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.CardBlockRequest, error)
	FindByRequester(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.CardBlockRequest], error)
	FindByStatus(ctx context.Context, status models.BlockRequestStatus, page models.PageRequest) (*models.Page[models.CardBlockRequest], error)
	FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.CardBlockRequest], error)
	Save(ctx context.Context, request *models.CardBlockRequest) error
}

// HistoryStore persists the append-only card operation audit trail.
type HistoryStore interface {
	Create(ctx context.Context, record *models.CardOperationHistory) error
	FindByCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.CardOperationHistory], error)
	FindByCardAndType(ctx context.Context, cardID int64, opType models.OperationType, page models.PageRequest) (*models.Page[models.CardOperationHistory], error)
	CountByCard(ctx context.Context, cardID int64) (int64, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error)
}
