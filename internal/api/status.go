// Package api provides the HTTP handlers mounted by the built-in host modules.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusResponse is the response from the status endpoints
type StatusResponse struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Modules []string `json:"modules"`
}

// Pinger checks a dependency is alive
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusHandlers serves /status and /health
type StatusHandlers struct {
	service string
	modules []string
	db      Pinger
	logger  *zap.Logger
}

// NewStatusHandlers creates status handlers reporting service and the
// loaded modules. db may be nil, in which case /health never fails.
func NewStatusHandlers(service string, modules []string, db Pinger, logger *zap.Logger) *StatusHandlers {
	return &StatusHandlers{
		service: service,
		modules: modules,
		db:      db,
		logger:  logger.Named("status"),
	}
}

func (h *StatusHandlers) response() StatusResponse {
	modules := h.modules
	if modules == nil {
		modules = []string{}
	}
	return StatusResponse{Status: "ok", Service: h.service, Modules: modules}
}

// Status handles GET /status
func (h *StatusHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.response())
}

// Health handles GET /health. It additionally pings the database.
func (h *StatusHandlers) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": h.service})
			return
		}
	}
	c.JSON(http.StatusOK, h.response())
}
