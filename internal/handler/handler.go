// Package handler implements the HTTP surface over the card ledger services.
// Identity and roles are resolved by the auth middleware before any handler
// runs; handlers validate request shape and map the error taxonomy to status
// codes.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/nvoronin/card-ledger/internal/config"
	"github.com/nvoronin/card-ledger/internal/middleware"
	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	cfg       *config.Config
	users     *service.UserService
	cards     *service.CardService
	transfers *service.TransferService
	requests  *service.BlockRequestService
	history   *service.HistoryService
	log       *logrus.Logger
}

func NewHandler(cfg *config.Config, users *service.UserService, cards *service.CardService,
	transfers *service.TransferService, requests *service.BlockRequestService,
	history *service.HistoryService, log *logrus.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		users:     users,
		cards:     cards,
		transfers: transfers,
		requests:  requests,
		history:   history,
		log:       log,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.log.Errorf("Failed to encode response: %v", err)
		}
	}
}

// respondError maps the error taxonomy to HTTP status codes: validation to
// 400, not-found to 404, business-rule conflicts to 409, the rest to 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrCardNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrOwnershipMismatch),
		errors.Is(err, models.ErrCardNotActive),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrAlreadyProcessed),
		errors.Is(err, models.ErrDuplicateCard),
		errors.Is(err, models.ErrDuplicateUser):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("Internal error: %v", err)
		h.respondJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// pageParams parses page/size query parameters: page >= 0, size 1..100,
// defaults 0/10.
func pageParams(r *http.Request) (models.PageRequest, error) {
	page := 0
	size := 10
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return models.PageRequest{}, fmt.Errorf("%w: page number must be 0 or greater", models.ErrValidation)
		}
		page = parsed
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return models.PageRequest{}, fmt.Errorf("%w: page size must be between 1 and 100", models.ErrValidation)
		}
		size = parsed
	}
	return models.PageRequest{Page: page, Size: size}, nil
}

// pathID parses a positive int64 path variable.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number", models.ErrValidation, name)
	}
	return id, nil
}

// currentUser resolves the authenticated caller to a stored user.
func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		return nil, fmt.Errorf("%w: no authenticated user", models.ErrUserNotFound)
	}
	return h.users.GetUserByUsername(r.Context(), username)
}
