package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/nvoronin/card-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransferService moves money between cards of the same user. The debit, the
// credit and the transfer receipt commit or roll back together, so the sum of
// the two balances is invariant under any outcome.
type TransferService struct {
	store repository.Store
	cards *CardService
	log   *logrus.Logger
}

// NewTransferService initializes a new transfer service.
func NewTransferService(store repository.Store, cards *CardService, log *logrus.Logger) *TransferService {
	return &TransferService{store: store, cards: cards, log: log}
}

// Transfer moves amount from fromCard to toCard. Both cards are re-read under
// row locks inside the transaction so the balance check never runs against
// stale state; locks are taken in ascending id order to avoid deadlocks
// between opposing transfers.
func (s *TransferService) Transfer(ctx context.Context, fromCard, toCard *models.Card, amount decimal.Decimal) (*models.Transfer, error) {
	if fromCard == nil {
		return nil, fmt.Errorf("%w: from card cannot be nil", models.ErrValidation)
	}
	if toCard == nil {
		return nil, fmt.Errorf("%w: to card cannot be nil", models.ErrValidation)
	}
	if err := utils.ValidatePositiveAmount(amount, "amount"); err != nil {
		return nil, err
	}

	transfer := &models.Transfer{
		FromCardID: fromCard.ID,
		ToCardID:   toCard.ID,
		Amount:     amount,
	}

	err := s.store.InTx(ctx, func(st repository.Store) error {
		from, to, err := lockPair(ctx, st, fromCard.ID, toCard.ID)
		if err != nil {
			return err
		}

		if from.UserID != to.UserID {
			return fmt.Errorf("%w: transfers allowed only between own cards", models.ErrOwnershipMismatch)
		}
		if from.Status != models.CardStatusActive || to.Status != models.CardStatusActive {
			return fmt.Errorf("%w: both cards must be active", models.ErrCardNotActive)
		}
		if from.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is less than %s", models.ErrInsufficientFunds,
				from.Balance.StringFixed(2), amount.StringFixed(2))
		}

		if err := s.cards.UpdateCardBalance(ctx, st, from, from.Balance.Sub(amount)); err != nil {
			return err
		}
		if err := s.cards.UpdateCardBalance(ctx, st, to, to.Balance.Add(amount)); err != nil {
			return err
		}

		transfer.Timestamp = time.Now()
		return st.Transfers().Create(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transfer %d: %s from card %d to card %d",
		transfer.ID, amount.StringFixed(2), transfer.FromCardID, transfer.ToCardID)
	return transfer, nil
}

// lockPair loads both cards under row locks in ascending id order. A transfer
// from a card to itself locks a single row and uses it for both sides.
func lockPair(ctx context.Context, st repository.Store, fromID, toID int64) (*models.Card, *models.Card, error) {
	if fromID == toID {
		card, err := st.Cards().FindByIDForUpdate(ctx, fromID)
		if err != nil {
			return nil, nil, err
		}
		return card, card, nil
	}
	firstID, secondID := fromID, toID
	if toID < fromID {
		firstID, secondID = toID, fromID
	}
	first, err := st.Cards().FindByIDForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := st.Cards().FindByIDForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}
	if firstID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// GetTransfersFromCard returns a page of transfers debited from the card.
func (s *TransferService) GetTransfersFromCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return s.store.Transfers().FindByFromCard(ctx, cardID, page)
}

// GetTransfersToCard returns a page of transfers credited to the card.
func (s *TransferService) GetTransfersToCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return s.store.Transfers().FindByToCard(ctx, cardID, page)
}
