package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Revocations tracks revoked bearer token IDs (jti) until the tokens
// themselves expire.
type Revocations struct {
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	tokens   map[string]time.Time // jti -> token expiry
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewRevocations creates an empty revocation list whose expired entries are
// purged every interval once started.
func NewRevocations(interval time.Duration, logger *zap.Logger) *Revocations {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Revocations{
		interval: interval,
		logger:   logger.Named("revocations"),
		now:      time.Now,
		tokens:   make(map[string]time.Time),
	}
}

// Start begins the purge loop
func (r *Revocations) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stopChan = make(chan struct{})

	r.wg.Add(1)
	go r.cleanupLoop(r.stopChan)

	r.logger.Info("Token revocation list started", zap.Duration("cleanup_interval", r.interval))
}

// Stop halts the purge loop
func (r *Revocations) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Token revocation list stopped")
}

func (r *Revocations) cleanupLoop(stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Purge()
		}
	}
}

// Purge removes entries whose tokens have expired and returns how many
func (r *Revocations) Purge() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for jti, expiry := range r.tokens {
		if now.After(expiry) {
			delete(r.tokens, jti)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Debug("Purged expired revocations",
			zap.Int("removed", removed),
			zap.Int("remaining", len(r.tokens)),
		)
	}
	return removed
}

// Revoke records jti as revoked until expiry. Tokens without a jti cannot
// be revoked.
func (r *Revocations) Revoke(jti string, expiry time.Time) {
	if jti == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[jti] = expiry

	r.logger.Debug("Token revoked", zap.String("jti", jti), zap.Time("expiry", expiry))
}

// IsRevoked reports whether jti is revoked and not yet expired
func (r *Revocations) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	expiry, ok := r.tokens[jti]
	return ok && !r.now().After(expiry)
}

// Count returns the number of entries currently held
func (r *Revocations) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
