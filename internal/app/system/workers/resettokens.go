// internal/app/system/workers/resettokens.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// TokenClearer removes reset token pairs that expired at or before now.
type TokenClearer interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenSweeper periodically clears expired password-reset tokens.
// Lookups still check expiry themselves; the sweep only keeps stale pairs
// from lingering in the collection.
type ResetTokenSweeper struct {
	store    TokenClearer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewResetTokenSweeper(store TokenClearer, logger *zap.Logger, interval time.Duration) *ResetTokenSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ResetTokenSweeper{
		store:    store,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ResetTokenSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reset token sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *ResetTokenSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("reset token sweeper stopped")
	})
}

func (w *ResetTokenSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one pass and returns the number of accounts cleared.
func (w *ResetTokenSweeper) Sweep() int64 {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "reset token sweep")
	defer cancel()

	count, err := w.store.ClearExpiredResetTokens(ctx, w.now())
	if err != nil {
		w.log.Error("failed to clear expired reset tokens", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("cleared expired reset tokens", zap.Int64("count", count))
	}
	return count
}
