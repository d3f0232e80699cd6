package swap

import (
	"context"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/config"
	"github.com/trinity-exchange/trinity-swapd/internal/metrics"
	"github.com/trinity-exchange/trinity-swapd/internal/ratelimit"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
	"github.com/trinity-exchange/trinity-swapd/pkg/logging"
)

// Sweeper is the periodic retention task: it purges terminal orders and
// stale metrics past the retention window and prunes idle rate-limit
// windows. Purging is housekeeping, not a lifecycle transition.
type Sweeper struct {
	store     storage.OrderStore
	rec       *metrics.Recorder
	memLimits *ratelimit.MemoryLimiter
	retention config.RetentionConfig
	rateWin   time.Duration
	log       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates the retention sweeper. memLimits may be nil when the
// Redis limiter is in use (Redis expires its own keys).
func NewSweeper(store storage.OrderStore, rec *metrics.Recorder, memLimits *ratelimit.MemoryLimiter, retention config.RetentionConfig, rateWindow time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:     store,
		rec:       rec,
		memLimits: memLimits,
		retention: retention,
		rateWin:   rateWindow,
		log:       logging.GetDefault().Component("sweeper"),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	go s.run()
	s.log.Info("Retention sweeper started", "interval", s.retention.SweepInterval, "ttl", s.retention.OrderTTL)
}

// Stop cancels the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.cancel()
	<-s.done
	s.log.Info("Retention sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.retention.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.retention.OrderTTL)

	purged, err := s.store.PurgeCompletedBefore(cutoff)
	if err != nil {
		s.log.Warn("Order purge failed", "error", err)
	}
	swept := s.rec.SweepBefore(cutoff)
	if s.memLimits != nil {
		s.memLimits.Prune(s.rateWin)
	}

	if purged > 0 || swept > 0 {
		s.log.Debug("Sweep complete", "orders", purged, "metrics", swept)
	}
}
