package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/nvoronin/card-ledger/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// BlockRequestService runs the block-request workflow: an owner requests a
// block on their own active card, an administrator approves or rejects it
// exactly once. Approval drives the card's block transition in the same
// transaction as the request update.
type BlockRequestService struct {
	store  repository.Store
	cards  *CardService
	users  *UserService
	sender *email.Sender // nil when SMTP is not configured
	log    *logrus.Logger
}

// NewBlockRequestService initializes a new block request service.
func NewBlockRequestService(store repository.Store, cards *CardService, users *UserService, sender *email.Sender, log *logrus.Logger) *BlockRequestService {
	return &BlockRequestService{store: store, cards: cards, users: users, sender: sender, log: log}
}

// CreateBlockRequest creates a PENDING block request for the caller's own
// active card.
func (s *BlockRequestService) CreateBlockRequest(ctx context.Context, cardID int64, username, reason string) (*models.CardBlockRequest, error) {
	requester, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	request := &models.CardBlockRequest{
		CardID:      cardID,
		RequesterID: requester.ID,
		Reason:      reason,
		Status:      models.BlockRequestPending,
		CreatedAt:   time.Now(),
	}

	err = s.store.InTx(ctx, func(st repository.Store) error {
		card, err := st.Cards().FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		if card.UserID != requester.ID {
			return fmt.Errorf("%w: you can only request blocking of your own cards", models.ErrOwnershipMismatch)
		}
		if card.Status != models.CardStatusActive {
			return fmt.Errorf("%w: can only request blocking of active cards", models.ErrCardNotActive)
		}
		return st.BlockRequests().Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d created by %s for card %d", request.ID, username, cardID)
	return request, nil
}

// ProcessBlockRequest decides a PENDING request exactly once. Approval sets
// the request APPROVED and blocks the target card with the admin as performer;
// rejection sets REJECTED with no card mutation. A second call on the same
// request fails with ErrAlreadyProcessed regardless of the decision.
func (s *BlockRequestService) ProcessBlockRequest(ctx context.Context, requestID int64, adminUsername string, approved bool, adminComment string) (*models.CardBlockRequest, error) {
	admin, err := s.users.GetUserByUsername(ctx, adminUsername)
	if err != nil {
		return nil, err
	}

	var request *models.CardBlockRequest
	err = s.store.InTx(ctx, func(st repository.Store) error {
		request, err = st.BlockRequests().FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.BlockRequestPending {
			return models.ErrAlreadyProcessed
		}

		now := time.Now()
		request.AdminID = &admin.ID
		request.AdminComment = adminComment
		request.ProcessedAt = &now
		if approved {
			request.Status = models.BlockRequestApproved
		} else {
			request.Status = models.BlockRequestRejected
		}
		if err := st.BlockRequests().Save(ctx, request); err != nil {
			return err
		}
		if approved {
			comment := "Blocked via user request: " + request.Reason
			return s.cards.transition(ctx, st, request.CardID, models.CardStatusBlocked, models.OperationBlock, admin, comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d %s by %s", request.ID, request.Status, adminUsername)
	s.notifyRequester(ctx, request)
	return request, nil
}

// notifyRequester sends a best-effort decision email; failures are logged,
// never propagated.
func (s *BlockRequestService) notifyRequester(ctx context.Context, request *models.CardBlockRequest) {
	if s.sender == nil {
		return
	}
	requester, err := s.users.GetUserByID(ctx, request.RequesterID)
	if err != nil || requester.Email == "" {
		return
	}
	approved := request.Status == models.BlockRequestApproved
	if err := s.sender.SendBlockDecisionNotice(requester.Email, requester.Username, request.CardID, approved, request.AdminComment); err != nil {
		s.log.Warnf("Failed to notify %s about block request %d: %v", requester.Username, request.ID, err)
	}
}

// GetUserRequests returns a page of requests created by the user.
func (s *BlockRequestService) GetUserRequests(ctx context.Context, username string, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.store.BlockRequests().FindByRequester(ctx, user.ID, page)
}

// GetAllRequests returns a page over all block requests.
func (s *BlockRequestService) GetAllRequests(ctx context.Context, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return s.store.BlockRequests().FindAll(ctx, page)
}

// GetRequestsByStatus returns a page of requests in the given status.
func (s *BlockRequestService) GetRequestsByStatus(ctx context.Context, status models.BlockRequestStatus, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return s.store.BlockRequests().FindByStatus(ctx, status, page)
}
