package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nvoronin/card-ledger/internal/middleware"
	"github.com/nvoronin/card-ledger/internal/models"
)

type createBlockRequestRequest struct {
	CardID int64  `json:"card_id"`
	Reason string `json:"reason"`
}

// CreateBlockRequest lets the caller request blocking of their own card.
func (h *Handler) CreateBlockRequest(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	request, err := h.requests.CreateBlockRequest(r.Context(), req.CardID, username, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, request)
}

// GetMyBlockRequests returns a page of the caller's own block requests.
func (h *Handler) GetMyBlockRequests(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requests, err := h.requests.GetUserRequests(r.Context(), username, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

// GetBlockRequests returns a page of block requests, optionally filtered by
// status. Admin only.
func (h *Handler) GetBlockRequests(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var requests *models.Page[models.CardBlockRequest]
	switch status := r.URL.Query().Get("status"); status {
	case "":
		requests, err = h.requests.GetAllRequests(r.Context(), page)
	case string(models.BlockRequestPending), string(models.BlockRequestApproved), string(models.BlockRequestRejected):
		requests, err = h.requests.GetRequestsByStatus(r.Context(), models.BlockRequestStatus(status), page)
	default:
		h.respondError(w, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status))
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

type processBlockRequestRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

// ProcessBlockRequest approves or rejects a pending block request. Admin only.
func (h *Handler) ProcessBlockRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req processBlockRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	request, err := h.requests.ProcessBlockRequest(r.Context(), requestID, username, req.Approved, req.Comment)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}
