package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nvoronin/card-ledger/internal/middleware"
	"github.com/nvoronin/card-ledger/internal/models"
)

type createCardRequest struct {
	Username   string `json:"username"`
	CardNumber string `json:"card_number"`
	Owner      string `json:"owner"`
	ExpiryDate string `json:"expiry_date"` // Format: YYYY-MM-DD
}

// CreateCard creates a card for the named user. Admin only.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		h.respondError(w, fmt.Errorf("%w: expiry date must be YYYY-MM-DD", models.ErrValidation))
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.respondError(w, err)
		return
	}

	card, err := h.cards.CreateCard(r.Context(), req.CardNumber, req.Owner, expiry, user)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, card)
}

// GetAllCards returns a page over all cards. Admin only.
func (h *Handler) GetAllCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	cards, err := h.cards.GetAllCards(r.Context(), page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, cards)
}

// GetUserCards returns a page of the caller's own cards.
func (h *Handler) GetUserCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	cards, err := h.cards.GetCardsByUser(r.Context(), user, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, cards)
}

// BlockCard blocks a card by id. Admin only.
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.cards.BlockCard, "blocked by administrator")
}

// ActivateCard activates a card by id. Admin only.
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.cards.ActivateCard, "activated by administrator")
}

func (h *Handler) adminTransition(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, cardID int64, performedBy *models.User, comment string) error, comment string) {
	cardID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	admin, err := h.currentUser(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := apply(r.Context(), cardID, admin, comment); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteCard removes a card by id. Admin only.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	admin, err := h.currentUser(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.cards.DeleteCard(r.Context(), cardID, admin); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetCardTransfers returns a page of transfers debited from the card. The
// caller must own the card or be an administrator.
func (h *Handler) GetCardTransfers(w http.ResponseWriter, r *http.Request) {
	card, page, ok := h.authorizeCardRead(w, r)
	if !ok {
		return
	}
	transfers, err := h.transfers.GetTransfersFromCard(r.Context(), card.ID, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, transfers)
}

// GetCardHistory returns a page of the card's operation history. The caller
// must own the card or be an administrator.
func (h *Handler) GetCardHistory(w http.ResponseWriter, r *http.Request) {
	card, page, ok := h.authorizeCardRead(w, r)
	if !ok {
		return
	}
	records, err := h.history.GetCardHistory(r.Context(), card.ID, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, records)
}

// authorizeCardRead loads the card and checks the caller may read it.
func (h *Handler) authorizeCardRead(w http.ResponseWriter, r *http.Request) (*models.Card, models.PageRequest, bool) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return nil, page, false
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return nil, page, false
	}
	card, err := h.cards.GetCardByID(r.Context(), cardID)
	if err != nil {
		h.respondError(w, err)
		return nil, page, false
	}
	user, err := h.currentUser(r)
	if err != nil {
		h.respondError(w, err)
		return nil, page, false
	}
	if !middleware.HasRole(r.Context(), models.RoleAdmin) && card.UserID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, page, false
	}
	return card, page, true
}
