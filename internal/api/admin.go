package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/internal/session"
	"github.com/sirosfoundation/go-meanhost/internal/storage"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// AdminHandlers contains handlers for internal admin API endpoints
type AdminHandlers struct {
	users    *service.UserService
	sessions session.Store
	status   *StatusHandlers
	logger   *zap.Logger
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(users *service.UserService, sessions session.Store, status *StatusHandlers, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		users:    users,
		sessions: sessions,
		status:   status,
		logger:   logger.Named("admin-handlers"),
	}
}

// AdminStatus returns the admin server status
// GET /admin/status
func (h *AdminHandlers) AdminStatus(c *gin.Context) {
	resp := h.status.response()
	resp.Service += "-admin"
	c.JSON(http.StatusOK, resp)
}

// ListUsers returns all users
// GET /admin/users
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser creates a user with the requested roles
// POST /admin/users
func (h *AdminHandlers) CreateUser(c *gin.Context) {
	var req domain.RegisterRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		_ = c.Error(err)
		return
	}

	h.logger.Info("Created user via admin API",
		zap.String("user_id", user.ID.String()),
		zap.Strings("roles", user.Roles))
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// DeleteUser deletes a user and every session bound to it
// DELETE /admin/users/:id
func (h *AdminHandlers) DeleteUser(c *gin.Context) {
	id := domain.UserID(c.Param("id"))

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(err)
		return
	}

	n, err := h.sessions.DeleteByUser(c.Request.Context(), id.String())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id, "sessions_revoked": n})
}

// RevokeSessions deletes every session bound to a user
// DELETE /admin/users/:id/sessions
func (h *AdminHandlers) RevokeSessions(c *gin.Context) {
	id := domain.UserID(c.Param("id"))

	if _, err := h.users.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		_ = c.Error(err)
		return
	}

	n, err := h.sessions.DeleteByUser(c.Request.Context(), id.String())
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Revoked user sessions", zap.String("user_id", id.String()), zap.Int64("count", n))
	c.JSON(http.StatusOK, gin.H{"sessions_revoked": n})
}
