// Package service implements the card ledger business logic: card lifecycle,
// transfers, block requests, operation history and user management.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nvoronin/card-ledger/internal/crypto"
	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/nvoronin/card-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CardService manages the card lifecycle. Every lifecycle transition appends
// exactly one operation history record in the same transaction as the state
// change.
type CardService struct {
	store repository.Store
	enc   *crypto.Encryptor
	log   *logrus.Logger
}

// NewCardService initializes a new card service.
func NewCardService(store repository.Store, enc *crypto.Encryptor, log *logrus.Logger) *CardService {
	return &CardService{store: store, enc: enc, log: log}
}

// GetCardByID returns the card with the given id.
func (s *CardService) GetCardByID(ctx context.Context, id int64) (*models.Card, error) {
	return s.store.Cards().FindByID(ctx, id)
}

// GetCardsByUser returns a page of the user's cards.
func (s *CardService) GetCardsByUser(ctx context.Context, user *models.User, page models.PageRequest) (*models.Page[models.Card], error) {
	return s.store.Cards().FindByUser(ctx, user.ID, page)
}

// GetAllCards returns a page over all cards.
func (s *CardService) GetAllCards(ctx context.Context, page models.PageRequest) (*models.Page[models.Card], error) {
	return s.store.Cards().FindAll(ctx, page)
}

// CreateCard creates a card for the user: validates the raw number, encrypts
// it, stores only ciphertext plus the masked form, and starts the card ACTIVE
// with a zero balance. The CREATE history record is written in the same
// transaction.
func (s *CardService) CreateCard(ctx context.Context, cardNumber, owner string, expiryDate time.Time, user *models.User) (*models.Card, error) {
	if err := utils.ValidateCardNumber(cardNumber); err != nil {
		return nil, err
	}
	if err := utils.ValidateOwner(owner); err != nil {
		return nil, err
	}
	if err := utils.ValidateFutureDate(expiryDate, "expiry date"); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user cannot be nil", models.ErrValidation)
	}

	encryptedNumber, err := s.enc.Encrypt(cardNumber)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		EncryptedNumber: encryptedNumber,
		MaskedNumber:    utils.MaskCardNumber(cardNumber),
		Owner:           strings.TrimSpace(owner),
		ExpiryDate:      expiryDate,
		Status:          models.CardStatusActive,
		Balance:         decimal.Zero,
		UserID:          user.ID,
	}

	err = s.store.InTx(ctx, func(st repository.Store) error {
		if err := st.Cards().Create(ctx, card); err != nil {
			return err
		}
		return recordOperation(ctx, st, card.ID, models.OperationCreate, nil, nil, &card.Status, "card created")
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("card_id", card.ID).Infof("Card created for user %d: %s", user.ID, card.MaskedNumber)
	return card, nil
}

// BlockCard blocks the card. Blocking an already blocked card succeeds and is
// still recorded in the history.
func (s *CardService) BlockCard(ctx context.Context, cardID int64, performedBy *models.User, comment string) error {
	return s.store.InTx(ctx, func(st repository.Store) error {
		return s.transition(ctx, st, cardID, models.CardStatusBlocked, models.OperationBlock, performedBy, comment)
	})
}

// ActivateCard activates the card. Activating an already active card succeeds
// and is still recorded in the history.
func (s *CardService) ActivateCard(ctx context.Context, cardID int64, performedBy *models.User, comment string) error {
	return s.store.InTx(ctx, func(st repository.Store) error {
		return s.transition(ctx, st, cardID, models.CardStatusActive, models.OperationActivate, performedBy, comment)
	})
}

// transition applies a status change and its audit record against tx-scoped
// stores. Used directly by the block-request workflow to join its transaction.
func (s *CardService) transition(ctx context.Context, st repository.Store, cardID int64, status models.CardStatus, opType models.OperationType, performedBy *models.User, comment string) error {
	card, err := st.Cards().FindByIDForUpdate(ctx, cardID)
	if err != nil {
		return err
	}
	previous := card.Status
	card.Status = status
	if err := st.Cards().Save(ctx, card); err != nil {
		return err
	}
	if err := recordOperation(ctx, st, card.ID, opType, performedBy, &previous, &status, comment); err != nil {
		return err
	}
	s.log.Infof("Card %d: %s -> %s (%s)", card.ID, previous, status, opType)
	return nil
}

// DeleteCard removes the card. The DELETE history record is written before
// the row is removed so the audit trail always references a card that still
// existed.
func (s *CardService) DeleteCard(ctx context.Context, cardID int64, performedBy *models.User) error {
	err := s.store.InTx(ctx, func(st repository.Store) error {
		card, err := st.Cards().FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		previous := card.Status
		if err := recordOperation(ctx, st, card.ID, models.OperationDelete, performedBy, &previous, nil, "card deleted"); err != nil {
			return err
		}
		return st.Cards().DeleteByID(ctx, card.ID)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Card %d deleted", cardID)
	return nil
}

// UpdateCardBalance persists a new balance. Invariant enforcement
// (non-negativity, conservation) is the caller's responsibility; the transfer
// engine passes its tx-scoped store here.
func (s *CardService) UpdateCardBalance(ctx context.Context, st repository.Store, card *models.Card, newBalance decimal.Decimal) error {
	card.Balance = newBalance
	return st.Cards().Save(ctx, card)
}

// BlockExpiredCards blocks every active card whose expiry date has passed,
// recording each block as a system-initiated operation (no performer).
// Returns the number of cards blocked.
func (s *CardService) BlockExpiredCards(ctx context.Context) (int, error) {
	expired, err := s.store.Cards().FindExpiredActive(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	blocked := 0
	for _, card := range expired {
		err := s.store.InTx(ctx, func(st repository.Store) error {
			return s.transition(ctx, st, card.ID, models.CardStatusBlocked, models.OperationBlock, nil, "card expired")
		})
		if err != nil {
			// A concurrent delete is not a sweep failure.
			s.log.Warnf("Failed to block expired card %d: %v", card.ID, err)
			continue
		}
		blocked++
	}
	if blocked > 0 {
		s.log.Infof("Expiry sweep blocked %d card(s)", blocked)
	}
	return blocked, nil
}

// recordOperation appends one audit record for a card lifecycle transition.
func recordOperation(ctx context.Context, st repository.Store, cardID int64, opType models.OperationType, performedBy *models.User, previous, next *models.CardStatus, comment string) error {
	record := &models.CardOperationHistory{
		CardID:         cardID,
		OperationType:  opType,
		PreviousStatus: previous,
		NewStatus:      next,
		Comment:        comment,
		CreatedAt:      time.Now(),
	}
	if performedBy != nil {
		record.PerformedBy = &performedBy.ID
	}
	return st.History().Create(ctx, record)
}
