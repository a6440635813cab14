package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/nvoronin/card-ledger/internal/crypto"
	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type testEnv struct {
	store     *repository.MemoryStore
	users     *UserService
	cards     *CardService
	transfers *TransferService
	requests  *BlockRequestService
	history   *HistoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	enc, err := crypto.NewEncryptor("0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	store := repository.NewMemoryStore()
	users := NewUserService(store, logger)
	cards := NewCardService(store, enc, logger)
	return &testEnv{
		store:     store,
		users:     users,
		cards:     cards,
		transfers: NewTransferService(store, cards, logger),
		requests:  NewBlockRequestService(store, cards, users, nil, logger),
		history:   NewHistoryService(store),
	}
}

func (e *testEnv) mustCreateUser(t *testing.T, username string, roles ...models.Role) *models.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), username, "password123", roles, "")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func (e *testEnv) mustCreateCard(t *testing.T, user *models.User, number string) *models.Card {
	t.Helper()
	card, err := e.cards.CreateCard(context.Background(), number, "Jane Doe", time.Now().AddDate(3, 0, 0), user)
	if err != nil {
		t.Fatalf("CreateCard(%s): %v", number, err)
	}
	return card
}

func (e *testEnv) setBalance(t *testing.T, card *models.Card, amount string) {
	t.Helper()
	err := e.cards.UpdateCardBalance(context.Background(), e.store, card, decimal.RequireFromString(amount))
	if err != nil {
		t.Fatalf("UpdateCardBalance: %v", err)
	}
}

func (e *testEnv) mustGetCard(t *testing.T, id int64) *models.Card {
	t.Helper()
	card, err := e.cards.GetCardByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetCardByID(%d): %v", id, err)
	}
	return card
}

func (e *testEnv) cardHistory(t *testing.T, cardID int64) []models.CardOperationHistory {
	t.Helper()
	page, err := e.history.GetCardHistory(context.Background(), cardID, models.PageRequest{Page: 0, Size: 100})
	if err != nil {
		t.Fatalf("GetCardHistory(%d): %v", cardID, err)
	}
	return page.Content
}
