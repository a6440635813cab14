package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

type transferRequest struct {
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// CreateTransfer moves money between two of the caller's own cards.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	fromCard, err := h.cards.GetCardByID(r.Context(), req.FromCardID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	toCard, err := h.cards.GetCardByID(r.Context(), req.ToCardID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if fromCard.UserID != user.ID || toCard.UserID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), fromCard, toCard, req.Amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, transfer)
}
