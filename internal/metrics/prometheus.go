package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
)

// Prometheus renders the aggregate view in the Prometheus text exposition
// format for pull-based scrapers.
func (r *Recorder) Prometheus() string {
	rep := r.Report()

	var b strings.Builder

	writeGauge(&b, "trinity_swaps_total", "Total swap orders created.", float64(rep.TotalSwaps))
	writeGauge(&b, "trinity_swaps_pending", "Swap orders not yet terminal.", float64(rep.Pending))
	writeGauge(&b, "trinity_swaps_executed_total", "Swap orders executed successfully.", float64(rep.Executed))
	writeGauge(&b, "trinity_swaps_refunded_total", "Swap orders refunded after timelock expiry.", float64(rep.Refunded))
	writeGauge(&b, "trinity_swaps_failed_total", "Swap orders that failed during execution.", float64(rep.Failed))
	writeGauge(&b, "trinity_swap_completion_avg_seconds", "Average creation-to-execution time.", rep.AvgCompletion)

	if create, ok := rep.Operations[OpCreate]; ok {
		writeGauge(&b, "trinity_swap_create_latency_p95_ms", "95th percentile swap creation latency.", create.P95MS)
		writeGauge(&b, "trinity_swap_create_latency_p99_ms", "99th percentile swap creation latency.", create.P99MS)
	}

	// Per-network counters, sorted for stable output.
	networks := make([]string, 0, len(rep.PerNetwork))
	for n := range rep.PerNetwork {
		networks = append(networks, string(n))
	}
	sort.Strings(networks)

	fmt.Fprintf(&b, "# HELP trinity_network_swaps_total Swap orders touching a network.\n")
	fmt.Fprintf(&b, "# TYPE trinity_network_swaps_total counter\n")
	for _, n := range networks {
		ns := rep.PerNetwork[chain.Network(n)]
		fmt.Fprintf(&b, "trinity_network_swaps_total{network=%q} %d\n", n, ns.Total)
	}
	fmt.Fprintf(&b, "# HELP trinity_network_swaps_succeeded_total Executed swap orders per network.\n")
	fmt.Fprintf(&b, "# TYPE trinity_network_swaps_succeeded_total counter\n")
	for _, n := range networks {
		ns := rep.PerNetwork[chain.Network(n)]
		fmt.Fprintf(&b, "trinity_network_swaps_succeeded_total{network=%q} %d\n", n, ns.Succeeded)
	}

	return b.String()
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n", name, value)
}
