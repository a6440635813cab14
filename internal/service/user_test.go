package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nvoronin/card-ledger/internal/models"
)

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, "jane_doe", "password123", nil, "jane@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("no id assigned")
	}
	if len(user.Roles) != 1 || user.Roles[0] != models.RoleUser {
		t.Fatalf("default roles = %v, want [USER]", user.Roles)
	}
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Fatal("password stored unhashed")
	}

	if _, err := env.users.CreateUser(ctx, "jane_doe", "password456", nil, ""); !errors.Is(err, models.ErrDuplicateUser) {
		t.Fatalf("want ErrDuplicateUser, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CreateUser(ctx, "ab", "password123", nil, ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("short username: want ErrValidation, got %v", err)
	}
	if _, err := env.users.CreateUser(ctx, "jane doe", "password123", nil, ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("username with space: want ErrValidation, got %v", err)
	}
	if _, err := env.users.CreateUser(ctx, "jane_doe", "short", nil, ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("short password: want ErrValidation, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "jane")

	user, err := env.users.Authenticate(ctx, "jane", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Username != "jane" {
		t.Fatalf("authenticated wrong user: %s", user.Username)
	}

	if _, err := env.users.Authenticate(ctx, "jane", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if _, err := env.users.Authenticate(ctx, "nobody", "password123"); err == nil {
		t.Fatal("unknown user accepted")
	}
}

func TestGetUserByUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.mustCreateUser(t, "jane")

	found, err := env.users.GetUserByUsername(ctx, "jane")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != created.ID {
		t.Fatalf("found wrong user: %+v", found)
	}
	if _, err := env.users.GetUserByUsername(ctx, "nobody"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}
