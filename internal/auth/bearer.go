package auth

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/internal/storage"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// ClaimsKey is the context key holding the verified bearer token claims
const ClaimsKey = "token_claims"

// BearerStrategy authenticates HS256 tokens sent as "Authorization: Bearer"
type BearerStrategy struct {
	tokens      *service.TokenService
	revocations *service.Revocations
	users       UserLookup
}

func NewBearerStrategy(tokens *service.TokenService, revocations *service.Revocations, users UserLookup) *BearerStrategy {
	return &BearerStrategy{tokens: tokens, revocations: revocations, users: users}
}

func (s *BearerStrategy) Name() string { return "bearer" }

func (s *BearerStrategy) Authenticate(c *gin.Context) (*domain.User, error) {
	claims, err := s.Claims(c)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(c.Request.Context(), domain.UserID(claims.UserID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: token subject no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	c.Set(ClaimsKey, claims)
	return user, nil
}

// Claims verifies the request's bearer token without loading the user
func (s *BearerStrategy) Claims(c *gin.Context) (*service.Claims, error) {
	raw, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if s.revocations != nil && s.revocations.IsRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}
	return claims, nil
}

// Revoke revokes the request's bearer token, if it carries a valid one
func (s *BearerStrategy) Revoke(c *gin.Context) bool {
	claims, err := s.Claims(c)
	if err != nil || s.revocations == nil {
		return false
	}
	s.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
	return true
}
