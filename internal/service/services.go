package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/storage"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// Services aggregates the application services
type Services struct {
	User        *UserService
	Tokens      *TokenService
	Revocations *Revocations
}

// NewServices creates a new Services instance
func NewServices(users storage.UserStore, cfg *config.Config, logger *zap.Logger) *Services {
	return &Services{
		User:        NewUserService(users, logger),
		Tokens:      NewTokenService(cfg.JWT),
		Revocations: NewRevocations(time.Duration(cfg.Session.CleanupInterval)*time.Second, logger),
	}
}

// Start starts background workers
func (s *Services) Start() {
	s.Revocations.Start()
}

// Stop gracefully stops background workers
func (s *Services) Stop() {
	s.Revocations.Stop()
}
