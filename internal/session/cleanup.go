package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupWorker periodically removes expired sessions from stores that do
// not expire them on their own.
type CleanupWorker struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleanupWorker creates a worker; a non-positive interval disables it.
func NewCleanupWorker(store Store, interval time.Duration, logger *zap.Logger) *CleanupWorker {
	return &CleanupWorker{
		store:    store,
		interval: interval,
		logger:   logger.Named("session-cleanup"),
	}
}

// Start begins the cleanup loop in the background
func (w *CleanupWorker) Start() {
	if w.interval <= 0 {
		w.logger.Info("Session cleanup worker disabled")
		return
	}

	var ctx context.Context
	ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)

	go w.run(ctx)

	w.logger.Info("Session cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop halts the loop and waits for an in-flight pass to finish
func (w *CleanupWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.cancel = nil
	w.logger.Info("Session cleanup worker stopped")
}

func (w *CleanupWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("Failed to clean up expired sessions", zap.Error(err))
	}
}

// RunOnce runs a single cleanup pass
func (w *CleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	return w.store.Cleanup(ctx)
}
