package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
)

func TestCreateCard(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")

	card, err := env.cards.CreateCard(context.Background(),
		"4111 1111 1111 1234", "Jane Doe", time.Now().AddDate(3, 0, 0), user)
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	if card.MaskedNumber != "**** **** **** 1234" {
		t.Fatalf("masked number = %q, want %q", card.MaskedNumber, "**** **** **** 1234")
	}
	if card.Status != models.CardStatusActive {
		t.Fatalf("status = %s, want ACTIVE", card.Status)
	}
	if !card.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", card.Balance)
	}
	if card.EncryptedNumber == "" || card.EncryptedNumber == "4111 1111 1111 1234" {
		t.Fatalf("card number stored unencrypted: %q", card.EncryptedNumber)
	}
	if card.UserID != user.ID {
		t.Fatalf("user id = %d, want %d", card.UserID, user.ID)
	}

	records := env.cardHistory(t, card.ID)
	if len(records) != 1 {
		t.Fatalf("history len = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.OperationType != models.OperationCreate {
		t.Fatalf("operation = %s, want CREATE", rec.OperationType)
	}
	if rec.PerformedBy != nil || rec.PreviousStatus != nil {
		t.Fatalf("CREATE record should have nil performer and previous status: %+v", rec)
	}
	if rec.NewStatus == nil || *rec.NewStatus != models.CardStatusActive {
		t.Fatalf("CREATE record new status = %v, want ACTIVE", rec.NewStatus)
	}
}

func TestCreateCardValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")
	future := time.Now().AddDate(3, 0, 0)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"bad number", func() error {
			_, err := env.cards.CreateCard(ctx, "1234", "Jane Doe", future, user)
			return err
		}},
		{"blank owner", func() error {
			_, err := env.cards.CreateCard(ctx, "4111111111111234", "  ", future, user)
			return err
		}},
		{"short owner", func() error {
			_, err := env.cards.CreateCard(ctx, "4111111111111234", "J", future, user)
			return err
		}},
		{"past expiry", func() error {
			_, err := env.cards.CreateCard(ctx, "4111111111111234", "Jane Doe", time.Now().AddDate(-1, 0, 0), user)
			return err
		}},
		{"nil user", func() error {
			_, err := env.cards.CreateCard(ctx, "4111111111111234", "Jane Doe", future, nil)
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("%s: want ErrValidation, got %v", tc.name, err)
		}
	}

	// Nothing was persisted by the failed attempts.
	page, err := env.cards.GetCardsByUser(ctx, user, models.PageRequest{Page: 0, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 0 {
		t.Fatalf("failed creations persisted %d cards", page.TotalElements)
	}
}

func TestCreateCardDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	jane := env.mustCreateUser(t, "jane")
	john := env.mustCreateUser(t, "john")

	env.mustCreateCard(t, jane, "4111111111111234")
	_, err := env.cards.CreateCard(context.Background(),
		"4111111111111234", "John Doe", time.Now().AddDate(3, 0, 0), john)
	if !errors.Is(err, models.ErrDuplicateCard) {
		t.Fatalf("want ErrDuplicateCard, got %v", err)
	}
}

func TestBlockAndActivateCard(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")
	admin := env.mustCreateUser(t, "admin", models.RoleAdmin)
	card := env.mustCreateCard(t, user, "4111111111111234")
	ctx := context.Background()

	if err := env.cards.BlockCard(ctx, card.ID, admin, "blocked by administrator"); err != nil {
		t.Fatalf("BlockCard: %v", err)
	}
	if got := env.mustGetCard(t, card.ID); got.Status != models.CardStatusBlocked {
		t.Fatalf("status after block = %s", got.Status)
	}

	if err := env.cards.ActivateCard(ctx, card.ID, admin, "activated by administrator"); err != nil {
		t.Fatalf("ActivateCard: %v", err)
	}
	if got := env.mustGetCard(t, card.ID); got.Status != models.CardStatusActive {
		t.Fatalf("status after activate = %s", got.Status)
	}

	// One record per applied transition: CREATE, BLOCK, ACTIVATE.
	records := env.cardHistory(t, card.ID)
	if len(records) != 3 {
		t.Fatalf("history len = %d, want 3", len(records))
	}
	// Newest first.
	if records[0].OperationType != models.OperationActivate ||
		records[1].OperationType != models.OperationBlock ||
		records[2].OperationType != models.OperationCreate {
		t.Fatalf("unexpected history order: %s %s %s",
			records[0].OperationType, records[1].OperationType, records[2].OperationType)
	}
	block := records[1]
	if block.PerformedBy == nil || *block.PerformedBy != admin.ID {
		t.Fatalf("BLOCK performer = %v, want %d", block.PerformedBy, admin.ID)
	}
	if *block.PreviousStatus != models.CardStatusActive || *block.NewStatus != models.CardStatusBlocked {
		t.Fatalf("BLOCK statuses = %s -> %s", *block.PreviousStatus, *block.NewStatus)
	}

	// Timestamps are monotonically non-decreasing in application order.
	for i := len(records) - 1; i > 0; i-- {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Fatalf("history timestamps not monotonic: %v after %v",
				records[i].CreatedAt, records[i-1].CreatedAt)
		}
	}
}

func TestBlockCardIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")
	admin := env.mustCreateUser(t, "admin", models.RoleAdmin)
	card := env.mustCreateCard(t, user, "4111111111111234")
	ctx := context.Background()

	if err := env.cards.BlockCard(ctx, card.ID, admin, "first"); err != nil {
		t.Fatal(err)
	}
	// Re-blocking a blocked card is not an error; it is still audited.
	if err := env.cards.BlockCard(ctx, card.ID, admin, "second"); err != nil {
		t.Fatalf("second block: %v", err)
	}
	records := env.cardHistory(t, card.ID)
	if len(records) != 3 {
		t.Fatalf("history len = %d, want 3", len(records))
	}
	if *records[0].PreviousStatus != models.CardStatusBlocked || *records[0].NewStatus != models.CardStatusBlocked {
		t.Fatalf("repeat block statuses = %s -> %s", *records[0].PreviousStatus, *records[0].NewStatus)
	}
}

func TestBlockCardNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustCreateUser(t, "admin", models.RoleAdmin)
	if err := env.cards.BlockCard(context.Background(), 42, admin, ""); !errors.Is(err, models.ErrCardNotFound) {
		t.Fatalf("want ErrCardNotFound, got %v", err)
	}
}

func TestDeleteCard(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")
	admin := env.mustCreateUser(t, "admin", models.RoleAdmin)
	card := env.mustCreateCard(t, user, "4111111111111234")
	ctx := context.Background()

	if err := env.cards.DeleteCard(ctx, card.ID, admin); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, err := env.cards.GetCardByID(ctx, card.ID); !errors.Is(err, models.ErrCardNotFound) {
		t.Fatalf("card still present after delete: %v", err)
	}

	// The audit trail outlives the card.
	records := env.cardHistory(t, card.ID)
	if len(records) != 2 {
		t.Fatalf("history len = %d, want 2", len(records))
	}
	del := records[0]
	if del.OperationType != models.OperationDelete {
		t.Fatalf("latest record = %s, want DELETE", del.OperationType)
	}
	if del.PreviousStatus == nil || *del.PreviousStatus != models.CardStatusActive {
		t.Fatalf("DELETE previous status = %v, want ACTIVE", del.PreviousStatus)
	}
	if del.NewStatus != nil {
		t.Fatalf("DELETE new status = %v, want nil", del.NewStatus)
	}

	if err := env.cards.DeleteCard(ctx, card.ID, admin); !errors.Is(err, models.ErrCardNotFound) {
		t.Fatalf("second delete: want ErrCardNotFound, got %v", err)
	}
}

func TestBlockExpiredCards(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustCreateUser(t, "jane")
	expired := env.mustCreateCard(t, user, "4111111111111234")
	fresh := env.mustCreateCard(t, user, "4111111111115678")
	ctx := context.Background()

	// Backdate the first card's expiry.
	loaded := env.mustGetCard(t, expired.ID)
	loaded.ExpiryDate = time.Now().AddDate(0, 0, -1)
	if err := env.store.Cards().Save(ctx, loaded); err != nil {
		t.Fatal(err)
	}

	blocked, err := env.cards.BlockExpiredCards(ctx)
	if err != nil {
		t.Fatalf("BlockExpiredCards: %v", err)
	}
	if blocked != 1 {
		t.Fatalf("blocked = %d, want 1", blocked)
	}
	if got := env.mustGetCard(t, expired.ID); got.Status != models.CardStatusBlocked {
		t.Fatalf("expired card status = %s, want BLOCKED", got.Status)
	}
	if got := env.mustGetCard(t, fresh.ID); got.Status != models.CardStatusActive {
		t.Fatalf("fresh card status = %s, want ACTIVE", got.Status)
	}

	records := env.cardHistory(t, expired.ID)
	if records[0].OperationType != models.OperationBlock || records[0].PerformedBy != nil {
		t.Fatalf("sweep record should be a system BLOCK: %+v", records[0])
	}
	if records[0].Comment != "card expired" {
		t.Fatalf("sweep comment = %q", records[0].Comment)
	}
}
