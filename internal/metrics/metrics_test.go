package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
)

func metricOrder(id string) *storage.Order {
	return &storage.Order{
		ID:          id,
		UserAddress: "0xalice",
		FromToken:   "ETH",
		ToToken:     "USDC",
		FromNetwork: chain.Ethereum,
		ToNetwork:   chain.Solana,
		Status:      storage.StatusPending,
		CreatedAt:   time.Now().Add(-time.Minute),
	}
}

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()

	r.RecordCreation(metricOrder("a"), 2850)
	r.RecordCreation(metricOrder("b"), 100)
	r.RecordCreation(metricOrder("c"), 50)

	r.RecordTransition("a", storage.StatusLocked)
	r.RecordTransition("a", storage.StatusExecuted)
	r.RecordTransition("b", storage.StatusRefunded)
	r.RecordTransition("c", storage.StatusFailed)

	rep := r.Report()
	if rep.TotalSwaps != 3 {
		t.Errorf("TotalSwaps = %d, want 3", rep.TotalSwaps)
	}
	if rep.Executed != 1 || rep.Refunded != 1 || rep.Failed != 1 {
		t.Errorf("terminal counters = %d/%d/%d, want 1/1/1", rep.Executed, rep.Refunded, rep.Failed)
	}
	if rep.Pending != 0 {
		t.Errorf("Pending = %d, want 0", rep.Pending)
	}
	if rep.AvgCompletion <= 0 {
		t.Errorf("AvgCompletion = %v, want positive", rep.AvgCompletion)
	}

	ns := rep.PerNetwork[chain.Ethereum]
	if ns == nil || ns.Total != 3 {
		t.Fatalf("ethereum stats = %+v, want total 3", ns)
	}
	if ns.Succeeded != 1 || ns.Failed != 1 {
		t.Errorf("ethereum succeeded/failed = %d/%d, want 1/1", ns.Succeeded, ns.Failed)
	}

	ps := rep.PerPair["ETH/USDC"]
	if ps == nil || ps.Total != 3 {
		t.Fatalf("pair stats = %+v, want total 3", ps)
	}
	if ps.VolumeUSD != 3000 {
		t.Errorf("VolumeUSD = %v, want 3000", ps.VolumeUSD)
	}
}

func TestRecorderPendingDerived(t *testing.T) {
	r := NewRecorder()
	r.RecordCreation(metricOrder("a"), 1)
	r.RecordCreation(metricOrder("b"), 1)
	r.RecordTransition("a", storage.StatusConsensusPending)

	rep := r.Report()
	if rep.Pending != 2 {
		t.Errorf("Pending = %d, want 2 (consensus_pending is not terminal)", rep.Pending)
	}

	r.RecordTransition("a", storage.StatusExecuted)
	if rep := r.Report(); rep.Pending != 1 {
		t.Errorf("Pending = %d, want 1", rep.Pending)
	}
}

func TestRecorderTransitionForUnknownOrder(t *testing.T) {
	r := NewRecorder()
	// Must be a silent no-op.
	r.RecordTransition("ghost", storage.StatusExecuted)
	if rep := r.Report(); rep.Executed != 0 {
		t.Errorf("Executed = %d, want 0", rep.Executed)
	}
}

func TestTimingPercentiles(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.RecordTiming(OpCreate, time.Duration(i)*time.Millisecond)
	}

	rep := r.Report()
	stats := rep.Operations[OpCreate]
	if stats == nil {
		t.Fatal("missing create stats")
	}
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.AvgMS != 50.5 {
		t.Errorf("AvgMS = %v, want 50.5", stats.AvgMS)
	}
	if stats.P95MS != 95 {
		t.Errorf("P95MS = %v, want 95", stats.P95MS)
	}
	if stats.P99MS != 99 {
		t.Errorf("P99MS = %v, want 99", stats.P99MS)
	}
}

func TestSampleRingCap(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < maxSamples+500; i++ {
		r.RecordTiming(OpLock, time.Millisecond)
	}

	rep := r.Report()
	if got := rep.Operations[OpLock].Count; got != maxSamples {
		t.Errorf("Count = %d, want capped at %d", got, maxSamples)
	}
}

func TestSweepBefore(t *testing.T) {
	r := NewRecorder()
	r.RecordCreation(metricOrder("done"), 1)
	r.RecordCreation(metricOrder("live"), 1)
	r.RecordTransition("done", storage.StatusExecuted)

	removed := r.SweepBefore(time.Now().Add(time.Hour))
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rep := r.Report(); rep.Pending != 1 {
		t.Errorf("Pending = %d, want the live order only", rep.Pending)
	}
	// Counters survive the sweep.
	if rep := r.Report(); rep.Executed != 1 {
		t.Errorf("Executed = %d, want 1 after sweep", rep.Executed)
	}
}

func TestPrometheusOutput(t *testing.T) {
	r := NewRecorder()
	r.RecordCreation(metricOrder("a"), 2850)
	r.RecordTransition("a", storage.StatusExecuted)
	r.RecordTiming(OpCreate, 5*time.Millisecond)

	out := r.Prometheus()

	for _, want := range []string{
		"trinity_swaps_total 1",
		"trinity_swaps_executed_total 1",
		"trinity_swap_create_latency_p95_ms 5",
		`trinity_network_swaps_total{network="ethereum"} 1`,
		`trinity_network_swaps_succeeded_total{network="solana"} 1`,
		"# TYPE trinity_swaps_total gauge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prometheus output missing %q", want)
		}
	}
}
