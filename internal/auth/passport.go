// Package auth is a strategy-based authenticator for gin: strategies are
// registered by name, tried in order on a request, and a successful login
// is persisted in the request's session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/session"
	"github.com/sirosfoundation/go-meanhost/internal/storage"
)

// Context keys
const (
	PassportKey = "passport"
	UserKey     = "user"
)

// ErrUnauthorized is returned by strategies that could not authenticate the
// request. Any other strategy error is treated as a server failure.
var ErrUnauthorized = errors.New("unauthorized")

// Strategy authenticates a request
type Strategy interface {
	Name() string
	Authenticate(c *gin.Context) (*domain.User, error)
}

// UserLookup loads a user by ID for session restoration
type UserLookup interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// Passport holds the registered strategies
type Passport struct {
	strategies map[string]Strategy
	users      UserLookup
	logger     *zap.Logger
}

// New creates a Passport that restores session users through users
func New(users UserLookup, logger *zap.Logger) *Passport {
	return &Passport{
		strategies: make(map[string]Strategy),
		users:      users,
		logger:     logger.Named("passport"),
	}
}

// Use registers a strategy under its name, replacing any previous one
func (p *Passport) Use(s Strategy) *Passport {
	p.strategies[s.Name()] = s
	return p
}

// Strategy returns a registered strategy
func (p *Passport) Strategy(name string) (Strategy, bool) {
	s, ok := p.strategies[name]
	return s, ok
}

// Initialize exposes the passport on the request context
func (p *Passport) Initialize() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(PassportKey, p)
		c.Next()
	}
}

// Session restores the logged-in user from the request's session. A session
// pointing at a deleted user is unbound.
func (p *Passport) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.From(c)
		if sess == nil || sess.UserID() == "" {
			c.Next()
			return
		}

		user, err := p.users.GetByID(c.Request.Context(), domain.UserID(sess.UserID()))
		switch {
		case err == nil:
			c.Set(UserKey, user)
		case errors.Is(err, storage.ErrNotFound):
			p.logger.Debug("Session refers to a missing user", zap.String("user_id", sess.UserID()))
			sess.SetUserID("")
		default:
			_ = c.Error(fmt.Errorf("failed to restore session user: %w", err))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthenticateRequest tries the named strategies in order and returns the
// first user one of them yields. It returns ErrUnauthorized when every
// strategy declines. A strategy that aborts the request (for instance with a
// 400 on a malformed body) stops the search.
func (p *Passport) AuthenticateRequest(c *gin.Context, names ...string) (*domain.User, error) {
	for _, name := range names {
		s, ok := p.strategies[name]
		if !ok {
			return nil, fmt.Errorf("unknown authentication strategy %q", name)
		}

		user, err := s.Authenticate(c)
		if err == nil {
			c.Set(UserKey, user)
			return user, nil
		}
		if c.IsAborted() {
			return nil, err
		}
		if !errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
	}
	return nil, ErrUnauthorized
}

// Authenticate is AuthenticateRequest as middleware: it answers 401 when
// every strategy declines.
func (p *Passport) Authenticate(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := p.AuthenticateRequest(c, names...); err != nil {
			if c.IsAborted() {
				return
			}
			if errors.Is(err, ErrUnauthorized) {
				Unauthorized(c)
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// LogIn binds user to a fresh session
func (p *Passport) LogIn(c *gin.Context, user *domain.User) {
	if sess := session.From(c); sess != nil {
		sess.Regenerate()
		sess.SetUserID(user.ID.String())
	}
	c.Set(UserKey, user)
}

// LogOut unbinds the user and rotates the session
func (p *Passport) LogOut(c *gin.Context) {
	if sess := session.From(c); sess != nil {
		sess.Regenerate()
	}
	c.Set(UserKey, nil)
}

// CurrentUser returns the authenticated user, or nil
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// FromContext returns the passport installed by Initialize, or nil
func FromContext(c *gin.Context) *Passport {
	if v, ok := c.Get(PassportKey); ok {
		if p, ok := v.(*Passport); ok {
			return p
		}
	}
	return nil
}

// RequireUser answers 401 unless a user is authenticated
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireRole answers 403 unless the authenticated user holds role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			Unauthorized(c)
			return
		}
		if !user.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Unauthorized answers 401
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
}
