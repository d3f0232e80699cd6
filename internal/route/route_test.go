package route

import (
	"testing"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/pkg/helpers"
)

func TestSameChainRoutes(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("ETH", "USDC", "1", chain.Ethereum, chain.Ethereum)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}
	if len(routes) == 0 {
		t.Fatal("expected routes for ETH/USDC on ethereum")
	}

	// One route per ethereum venue.
	params, _ := chain.Get(chain.Ethereum)
	if len(routes) != len(params.Venues) {
		t.Errorf("routes = %d, want %d (one per venue)", len(routes), len(params.Venues))
	}

	for _, r := range routes {
		if r.FromNetwork != chain.Ethereum || r.ToNetwork != chain.Ethereum {
			t.Errorf("same-chain route crosses networks: %s -> %s", r.FromNetwork, r.ToNetwork)
		}
		if len(r.Path) != 2 || len(r.Venues) != 1 {
			t.Errorf("same-chain route shape = path %v venues %v", r.Path, r.Venues)
		}
		if r.TimeEstimateSec != sameChainSec {
			t.Errorf("TimeEstimateSec = %d, want %d", r.TimeEstimateSec, sameChainSec)
		}
	}
}

func TestRoutesSortedByOutput(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("ETH", "USDC", "1", chain.Ethereum, chain.Ethereum)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}

	for i := 1; i < len(routes); i++ {
		prev, _ := helpers.ParseDecimal(routes[i-1].EstimatedOutput)
		cur, _ := helpers.ParseDecimal(routes[i].EstimatedOutput)
		if prev.Cmp(cur) < 0 {
			t.Fatalf("routes not sorted: %s before %s", routes[i-1].EstimatedOutput, routes[i].EstimatedOutput)
		}
	}

	// Curve's fee is the lowest, so it wins a stable-ish pair; for
	// ETH/USDC the ranking still holds: best first means highest output.
	best, _ := helpers.ParseDecimal(routes[0].EstimatedOutput)
	if best.Sign() <= 0 {
		t.Error("best route output should be positive")
	}
}

func TestCrossChainDirectBridge(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("USDC", "USDC", "1000", chain.Ethereum, chain.Solana)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}
	if len(routes) == 0 {
		t.Fatal("expected a direct bridge route for USDC")
	}

	direct := routes[0]
	if len(direct.Path) != 2 {
		t.Fatalf("direct bridge path = %v, want 2 hops", direct.Path)
	}
	if direct.Venues[0] != bridgeVenue {
		t.Errorf("direct bridge venue = %s, want %s", direct.Venues[0], bridgeVenue)
	}

	// 1000 USDC less the 0.1% bridge fee.
	out, _ := helpers.ParseDecimal(direct.EstimatedOutput)
	want, _ := helpers.ParseDecimal("999")
	if out.Cmp(want) != 0 {
		t.Errorf("direct bridge output = %s, want 999", direct.EstimatedOutput)
	}
}

func TestCrossChainMultiHop(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("ETH", "SOL", "1", chain.Ethereum, chain.Solana)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}
	if len(routes) == 0 {
		t.Fatal("expected swap-bridge-swap routes for ETH/SOL")
	}

	for _, r := range routes {
		if len(r.Path) != 3 {
			t.Errorf("multi-hop path = %v, want fromToken/hop/toToken", r.Path)
			continue
		}
		if len(r.Venues) != 3 || r.Venues[1] != bridgeVenue {
			t.Errorf("multi-hop venues = %v, want swap/bridge/swap", r.Venues)
		}
		if r.TimeEstimateSec != multiHopTimeSec {
			t.Errorf("TimeEstimateSec = %d, want %d", r.TimeEstimateSec, multiHopTimeSec)
		}
	}
}

func TestNoRouteForIdentityPair(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("ETH", "ETH", "1", chain.Ethereum, chain.Ethereum)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("identity pair should yield no routes, got %d", len(routes))
	}
}

func TestNoRouteForUnknownToken(t *testing.T) {
	f := NewFinder()
	routes, err := f.FindOptimalRoute("DOGE", "USDC", "1", chain.Ethereum, chain.Ethereum)
	if err != nil {
		t.Fatalf("FindOptimalRoute error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("unknown token should yield no routes, got %d", len(routes))
	}
}

func TestFindOptimalRouteRejectsBadAmount(t *testing.T) {
	f := NewFinder()
	if _, err := f.FindOptimalRoute("ETH", "USDC", "1e18", chain.Ethereum, chain.Ethereum); err == nil {
		t.Error("scientific notation amount should be rejected")
	}
}

func TestPriceImpactTiers(t *testing.T) {
	tests := []struct {
		usd  float64
		want float64
	}{
		{usd: 500, want: 0.01},
		{usd: 5_000, want: 0.05},
		{usd: 50_000, want: 0.15},
		{usd: 500_000, want: 0.5},
	}
	for _, tt := range tests {
		if got := priceImpact(tt.usd); got != tt.want {
			t.Errorf("priceImpact(%v) = %v, want %v", tt.usd, got, tt.want)
		}
	}
}
