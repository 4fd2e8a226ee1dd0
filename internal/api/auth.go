package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/auth"
	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// AuthHandlers serves the /apis/auth endpoints
type AuthHandlers struct {
	services *service.Services
	passport *auth.Passport
	limiter  *middleware.AuthRateLimiter
	logger   *zap.Logger
}

// NewAuthHandlers creates auth handlers. limiter may be nil.
func NewAuthHandlers(services *service.Services, passport *auth.Passport, limiter *middleware.AuthRateLimiter, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		services: services,
		passport: passport,
		limiter:  limiter,
		logger:   logger.Named("auth-handlers"),
	}
}

// LoginResponse is returned by login and registration
type LoginResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
}

func (h *AuthHandlers) loggedIn(c *gin.Context, status int, user *domain.User) {
	token, expiresAt, err := h.services.Tokens.Issue(user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.passport.LogIn(c, user)
	c.JSON(status, LoginResponse{User: user, Token: token, ExpiresAt: expiresAt.Unix()})
}

// Register handles POST /apis/auth/register. Self-registered accounts
// always get the default role.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}
	req.Roles = nil

	user, err := h.services.User.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		_ = c.Error(err)
		return
	}

	h.loggedIn(c, http.StatusCreated, user)
}

// Login handles POST /apis/auth/login with the local strategy
func (h *AuthHandlers) Login(c *gin.Context) {
	user, err := h.passport.AuthenticateRequest(c, "local")
	if c.IsAborted() {
		return
	}
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			if h.limiter != nil {
				h.limiter.RecordFailure(c.ClientIP())
			}
			auth.Unauthorized(c)
			return
		}
		_ = c.Error(err)
		return
	}

	h.loggedIn(c, http.StatusOK, user)
}

// Logout handles POST /apis/auth/logout. It revokes the bearer token, if
// any, and rotates the session.
func (h *AuthHandlers) Logout(c *gin.Context) {
	revoked := false
	if s, ok := h.passport.Strategy("bearer"); ok {
		if bearer, ok := s.(*auth.BearerStrategy); ok {
			revoked = bearer.Revoke(c)
		}
	}
	h.passport.LogOut(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "token_revoked": revoked})
}

// Me handles GET /apis/auth/me. The session user wins; otherwise a bearer
// token is required.
func (h *AuthHandlers) Me(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		var err error
		user, err = h.passport.AuthenticateRequest(c, "bearer")
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				auth.Unauthorized(c)
				return
			}
			_ = c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
