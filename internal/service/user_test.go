package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/storage"
	"github.com/sirosfoundation/go-meanhost/internal/storage/memory"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestUserService() *UserService {
	svc := NewUserService(memory.NewStore().Users(), testLogger())
	svc.cost = bcrypt.MinCost
	return svc
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	service := newTestUserService()

	user, err := service.Register(ctx, &domain.RegisterRequest{
		Username:    "testuser",
		Password:    "password123",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.ID.String() == "" {
		t.Error("User ID should be set")
	}
	if user.Username != "testuser" {
		t.Errorf("Username = %s", user.Username)
	}
	if user.PasswordHash == "" || user.PasswordHash == "password123" {
		t.Error("PasswordHash should be a bcrypt hash")
	}
	if !user.HasRole(domain.RoleUser) {
		t.Errorf("default role missing, got %v", user.Roles)
	}
}

func TestUserService_Register_KeepsRoles(t *testing.T) {
	service := newTestUserService()

	user, err := service.Register(context.Background(), &domain.RegisterRequest{
		Username: "root",
		Password: "password123",
		Roles:    []string{domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !user.HasRole(domain.RoleAdmin) || user.HasRole(domain.RoleUser) {
		t.Errorf("Roles = %v", user.Roles)
	}
}

func TestUserService_Register_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	service := newTestUserService()

	req := &domain.RegisterRequest{Username: "duplicate", Password: "password123"}
	if _, err := service.Register(ctx, req); err != nil {
		t.Fatalf("First Register() error = %v", err)
	}

	if _, err := service.Register(ctx, req); !errors.Is(err, ErrUserExists) {
		t.Errorf("Register() with duplicate username should return ErrUserExists, got %v", err)
	}
}

func TestUserService_VerifyPassword(t *testing.T) {
	ctx := context.Background()
	service := newTestUserService()

	registered, err := service.Register(ctx, &domain.RegisterRequest{Username: "logintest", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := service.VerifyPassword(ctx, "logintest", "password123")
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("VerifyPassword() returned user %s, want %s", user.ID, registered.ID)
	}
}

func TestUserService_VerifyPassword_Invalid(t *testing.T) {
	ctx := context.Background()
	service := newTestUserService()

	if _, err := service.Register(ctx, &domain.RegisterRequest{Username: "logintest", Password: "password123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "logintest", "wrongpassword"},
		{"unknown user", "nobody", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyPassword(ctx, tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("VerifyPassword() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestUserService_GetListDelete(t *testing.T) {
	ctx := context.Background()
	service := newTestUserService()

	var ids []domain.UserID
	for _, name := range []string{"bob", "alice"} {
		u, err := service.Register(ctx, &domain.RegisterRequest{Username: name, Password: "password123"})
		if err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
		ids = append(ids, u.ID)
	}

	got, err := service.Get(ctx, ids[0])
	if err != nil || got.Username != "bob" {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	users, err := service.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" {
		t.Errorf("List() should be ordered by username, got %v", users)
	}

	if err := service.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := service.Get(ctx, ids[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
}
