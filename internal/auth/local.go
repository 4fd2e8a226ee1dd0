package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// PasswordVerifier checks a username and password pair
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, username, password string) (*domain.User, error)
}

// LocalStrategy authenticates a username and password posted as JSON or form
type LocalStrategy struct {
	verifier PasswordVerifier
}

func NewLocalStrategy(verifier PasswordVerifier) *LocalStrategy {
	return &LocalStrategy{verifier: verifier}
}

func (s *LocalStrategy) Name() string { return "local" }

func (s *LocalStrategy) Authenticate(c *gin.Context) (*domain.User, error) {
	var req domain.LoginRequest
	if !middleware.BindAndValidate(c, &req) {
		return nil, fmt.Errorf("%w: malformed credentials", ErrUnauthorized)
	}

	user, err := s.verifier.VerifyPassword(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
