// Package metrics is the passive observability recorder for swap activity.
// It never blocks, errors, or rejects a swap operation; everything here is
// best-effort bookkeeping read by the health and metrics endpoints.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
)

// maxSamples caps each operation's raw timing buffer.
const maxSamples = 1000

// Operation names used for timing measurements.
const (
	OpCreate  = "swap_create"
	OpLock    = "swap_lock"
	OpExecute = "swap_execute"
	OpRefund  = "swap_refund"
)

type orderMetric struct {
	user        string
	pair        string
	fromNetwork chain.Network
	toNetwork   chain.Network
	usdValue    float64
	status      storage.Status
	createdAt   time.Time
	completedAt time.Time
}

type networkStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

type pairStats struct {
	Total     int64   `json:"total"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	VolumeUSD float64 `json:"volume_usd"`
}

// sampleRing is a fixed-capacity ring of duration samples.
type sampleRing struct {
	samples []time.Duration
	next    int
	full    bool
}

func (r *sampleRing) add(d time.Duration) {
	if len(r.samples) < maxSamples && !r.full {
		r.samples = append(r.samples, d)
		if len(r.samples) == maxSamples {
			r.full = true
		}
		return
	}
	r.samples[r.next] = d
	r.next = (r.next + 1) % maxSamples
}

func (r *sampleRing) snapshot() []time.Duration {
	out := make([]time.Duration, len(r.samples))
	copy(out, r.samples)
	return out
}

// Recorder accumulates swap metrics. All methods are safe for concurrent
// use; the single mutex is held only for map bookkeeping, never around I/O.
type Recorder struct {
	mu sync.Mutex

	created  int64
	executed int64
	refunded int64
	failed   int64

	orders     map[string]*orderMetric
	timings    map[string]*sampleRing
	perNetwork map[chain.Network]*networkStats
	perPair    map[string]*pairStats

	// completion time accumulation for the average gauge
	completionTotal time.Duration
	completionCount int64
}

// NewRecorder creates an empty metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		orders:     make(map[string]*orderMetric),
		timings:    make(map[string]*sampleRing),
		perNetwork: make(map[chain.Network]*networkStats),
		perPair:    make(map[string]*pairStats),
	}
}

// RecordCreation records a newly created order.
func (r *Recorder) RecordCreation(o *storage.Order, usdValue float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := o.FromToken + "/" + o.ToToken
	r.created++
	r.orders[o.ID] = &orderMetric{
		user:        o.UserAddress,
		pair:        pair,
		fromNetwork: o.FromNetwork,
		toNetwork:   o.ToNetwork,
		usdValue:    usdValue,
		status:      o.Status,
		createdAt:   o.CreatedAt,
	}

	for _, n := range []chain.Network{o.FromNetwork, o.ToNetwork} {
		ns := r.perNetwork[n]
		if ns == nil {
			ns = &networkStats{}
			r.perNetwork[n] = ns
		}
		ns.Total++
	}

	ps := r.perPair[pair]
	if ps == nil {
		ps = &pairStats{}
		r.perPair[pair] = ps
	}
	ps.Total++
	ps.VolumeUSD += usdValue
}

// RecordTransition records a status change for an order.
func (r *Recorder) RecordTransition(orderID string, to storage.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	om, ok := r.orders[orderID]
	if !ok {
		return
	}
	om.status = to

	if !to.Terminal() {
		return
	}
	om.completedAt = time.Now()

	switch to {
	case storage.StatusExecuted:
		r.executed++
	case storage.StatusRefunded:
		r.refunded++
	case storage.StatusFailed:
		r.failed++
	}

	success := to == storage.StatusExecuted
	for _, n := range []chain.Network{om.fromNetwork, om.toNetwork} {
		if ns := r.perNetwork[n]; ns != nil {
			if success {
				ns.Succeeded++
			} else if to == storage.StatusFailed {
				ns.Failed++
			}
		}
	}
	if ps := r.perPair[om.pair]; ps != nil {
		if success {
			ps.Succeeded++
		} else if to == storage.StatusFailed {
			ps.Failed++
		}
	}

	if success {
		r.completionTotal += om.completedAt.Sub(om.createdAt)
		r.completionCount++
	}
}

// RecordTiming records the latency of a named operation.
func (r *Recorder) RecordTiming(op string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ring := r.timings[op]
	if ring == nil {
		ring = &sampleRing{}
		r.timings[op] = ring
	}
	ring.add(d)
}

// Time runs fn and records its duration under op.
func (r *Recorder) Time(op string, fn func()) {
	start := time.Now()
	fn()
	r.RecordTiming(op, time.Since(start))
}

// OperationStats summarizes one operation's timing samples.
type OperationStats struct {
	Count int     `json:"count"`
	AvgMS float64 `json:"avg_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
}

// Report is the machine-readable aggregate view.
type Report struct {
	TotalSwaps    int64   `json:"total_swaps"`
	Pending       int64   `json:"pending_swaps"`
	Executed      int64   `json:"executed_swaps"`
	Refunded      int64   `json:"refunded_swaps"`
	Failed        int64   `json:"failed_swaps"`
	AvgCompletion float64 `json:"avg_completion_sec"`

	Operations  map[string]*OperationStats      `json:"operations"`
	PerNetwork  map[chain.Network]*networkStats `json:"per_network"`
	PerPair     map[string]*pairStats           `json:"per_pair"`
	GeneratedAt time.Time                       `json:"generated_at"`
}

// Report builds the aggregate view.
func (r *Recorder) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := int64(0)
	for _, om := range r.orders {
		if !om.status.Terminal() {
			pending++
		}
	}

	rep := &Report{
		TotalSwaps:  r.created,
		Pending:     pending,
		Executed:    r.executed,
		Refunded:    r.refunded,
		Failed:      r.failed,
		Operations:  make(map[string]*OperationStats, len(r.timings)),
		PerNetwork:  make(map[chain.Network]*networkStats, len(r.perNetwork)),
		PerPair:     make(map[string]*pairStats, len(r.perPair)),
		GeneratedAt: time.Now(),
	}
	if r.completionCount > 0 {
		rep.AvgCompletion = r.completionTotal.Seconds() / float64(r.completionCount)
	}

	for op, ring := range r.timings {
		rep.Operations[op] = summarize(ring.snapshot())
	}
	for n, ns := range r.perNetwork {
		cp := *ns
		rep.PerNetwork[n] = &cp
	}
	for p, ps := range r.perPair {
		cp := *ps
		rep.PerPair[p] = &cp
	}
	return rep
}

// SweepBefore drops per-order entries for orders completed before the
// cutoff, bounding memory for long-running daemons.
func (r *Recorder) SweepBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, om := range r.orders {
		if om.status.Terminal() && !om.completedAt.IsZero() && om.completedAt.Before(cutoff) {
			delete(r.orders, id)
			removed++
		}
	}
	return removed
}

func summarize(samples []time.Duration) *OperationStats {
	stats := &OperationStats{Count: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var total time.Duration
	for _, d := range samples {
		total += d
	}
	stats.AvgMS = float64(total.Microseconds()) / float64(len(samples)) / 1000
	stats.P95MS = float64(percentile(samples, 95).Microseconds()) / 1000
	stats.P99MS = float64(percentile(samples, 99).Microseconds()) / 1000
	return stats
}

// percentile returns the pth percentile of sorted samples
// (nearest-rank method).
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
