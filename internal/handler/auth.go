package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nvoronin/card-ledger/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login verifies credentials and issues a JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := middleware.GenerateToken(h.cfg, user.Username, user.Roles)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.log.Infof("User logged in: %s", user.Username)
	h.respondJSON(w, http.StatusOK, loginResponse{Token: token})
}
