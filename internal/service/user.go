package service

import (
	"context"
	"fmt"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/nvoronin/card-ledger/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages users and verifies credentials for login.
type UserService struct {
	store repository.Store
	log   *logrus.Logger
}

// NewUserService initializes a new user service.
func NewUserService(store repository.Store, log *logrus.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// CreateUser creates a user with a bcrypt-hashed password. An empty role set
// defaults to USER.
func (s *UserService) CreateUser(ctx context.Context, username, password string, roles []models.Role, emailAddr string) (*models.User, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []models.Role{models.RoleUser}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		Roles:        roles,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Username)
	return user, nil
}

// GetUserByUsername returns the user with the given username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.Users().FindByUsername(ctx, username)
}

// GetUserByID returns the user with the given id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

// GetUsers returns a page over all users.
func (s *UserService) GetUsers(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error) {
	return s.store.Users().FindAll(ctx, page)
}

// Authenticate verifies a username/password pair. The failure reason is
// deliberately not distinguished.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return user, nil
}
