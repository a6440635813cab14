package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nvoronin/card-ledger/internal/models"
)

type createUserRequest struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Email    string        `json:"email"`
	Roles    []models.Role `json:"roles"`
}

// CreateUser registers a new user. Admin only.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Password, req.Roles, req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, user)
}

// ListUsers returns a page over all users. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	users, err := h.users.GetUsers(r.Context(), page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, users)
}
