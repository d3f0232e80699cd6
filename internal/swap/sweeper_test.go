package swap

import (
	"testing"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/config"
	"github.com/trinity-exchange/trinity-swapd/internal/metrics"
	"github.com/trinity-exchange/trinity-swapd/internal/ratelimit"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
)

func TestSweeperPurgesExpiredOrders(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := metrics.NewRecorder()

	stale := &storage.Order{
		ID:          "stale",
		UserAddress: ethUser,
		Status:      storage.StatusExecuted,
		CreatedAt:   time.Now().Add(-48 * time.Hour),
		CompletedAt: time.Now().Add(-48 * time.Hour),
	}
	live := &storage.Order{
		ID:          "live",
		UserAddress: ethUser,
		Status:      storage.StatusLocked,
		CreatedAt:   time.Now(),
	}
	for _, o := range []*storage.Order{stale, live} {
		if err := store.Create(o); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	rec.RecordCreation(stale, 1)
	rec.RecordTransition("stale", storage.StatusExecuted)

	s := NewSweeper(store, rec, ratelimit.NewMemoryLimiter(), config.RetentionConfig{
		OrderTTL:      24 * time.Hour,
		SweepInterval: 10 * time.Millisecond,
	}, time.Hour)
	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.Get("stale"); err != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stale order was never purged")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, err := store.Get("live"); err != nil {
		t.Error("live order must survive the sweep")
	}
}

func TestSweeperStopIsClean(t *testing.T) {
	s := NewSweeper(storage.NewMemoryStore(), metrics.NewRecorder(), nil, config.RetentionConfig{
		OrderTTL:      time.Hour,
		SweepInterval: time.Hour,
	}, time.Hour)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestRecorderSweepAlignsWithStore(t *testing.T) {
	// Completion before the cutoff drops from the recorder too.
	rec := metrics.NewRecorder()
	o := &storage.Order{ID: "x", UserAddress: ethUser, FromToken: "ETH", ToToken: "USDC", Status: storage.StatusPending, CreatedAt: time.Now().Add(-time.Hour)}
	rec.RecordCreation(o, 1)
	rec.RecordTransition("x", storage.StatusRefunded)

	if n := rec.SweepBefore(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("SweepBefore = %d, want 1", n)
	}
}
