// Package route computes candidate conversion paths between token/network
// pairs. Routes are ephemeral estimates: they seed an order's expected
// output and are never an authoritative price oracle.
package route

import (
	"math/big"
	"sort"

	"github.com/google/uuid"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/pkg/helpers"
)

// Route is one candidate path for converting fromToken on fromNetwork into
// toToken on toNetwork.
type Route struct {
	ID              string        `json:"id"`
	FromToken       string        `json:"from_token"`
	ToToken         string        `json:"to_token"`
	FromNetwork     chain.Network `json:"from_network"`
	ToNetwork       chain.Network `json:"to_network"`
	Path            []string      `json:"path"`
	Venues          []string      `json:"venues"`
	EstimatedOutput string        `json:"estimated_output"`
	PriceImpact     float64       `json:"price_impact"`
	GasEstimate     string        `json:"gas_estimate"`
	TimeEstimateSec int           `json:"time_estimate_sec"`

	output *big.Rat
}

// Bridge parameters.
const (
	bridgeFee       = 0.001 // 0.1% of bridged value
	bridgeVenue     = "Trinity Bridge"
	bridgeTimeSec   = 180
	multiHopTimeSec = 300
	sameChainSec    = 30
)

// venueFees holds the indicative taker fee per DEX venue.
var venueFees = map[string]float64{
	"Uniswap V3": 0.003,
	"Uniswap V2": 0.003,
	"SushiSwap":  0.003,
	"1inch":      0.001,
	"Curve":      0.0004,
	"Balancer":   0.002,
	"Jupiter":    0.002,
	"Raydium":    0.0025,
	"Orca":       0.003,
	"Serum":      0.0022,
	"Aldrin":     0.003,
	"DeDust":     0.0025,
	"STON.fi":    0.003,
	"TON DEX":    0.004,
}

// Finder discovers and ranks swap routes.
type Finder struct{}

// NewFinder creates a route finder.
func NewFinder() *Finder {
	return &Finder{}
}

// FindOptimalRoute returns all viable routes for the pair, best estimated
// output first. An empty slice means no venue or bridge path exists.
func (f *Finder) FindOptimalRoute(fromToken, toToken, amount string, from, to chain.Network) ([]*Route, error) {
	amt, err := helpers.ParseDecimal(amount)
	if err != nil {
		return nil, err
	}

	var routes []*Route
	if from == to {
		routes = f.sameChainRoutes(fromToken, toToken, amt, from)
	} else {
		routes = f.crossChainRoutes(fromToken, toToken, amt, from, to)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].output.Cmp(routes[j].output) > 0
	})
	return routes, nil
}

// sameChainRoutes enumerates one route per configured venue.
func (f *Finder) sameChainRoutes(fromToken, toToken string, amount *big.Rat, network chain.Network) []*Route {
	params, ok := chain.Get(network)
	if !ok {
		return nil
	}
	if fromToken == toToken {
		return nil
	}

	routes := make([]*Route, 0, len(params.Venues))
	for _, venue := range params.Venues {
		out, ok := swapLeg(fromToken, toToken, amount, network, venue)
		if !ok {
			continue
		}
		toInfo, _ := chain.GetToken(network, toToken)
		routes = append(routes, &Route{
			ID:              uuid.New().String(),
			FromToken:       fromToken,
			ToToken:         toToken,
			FromNetwork:     network,
			ToNetwork:       network,
			Path:            []string{fromToken, toToken},
			Venues:          []string{venue},
			EstimatedOutput: helpers.FormatDecimal(out, int(toInfo.Decimals)),
			PriceImpact:     priceImpact(usdValue(fromToken, network, amount)),
			GasEstimate:     params.GasEstimate,
			TimeEstimateSec: sameChainSec,
			output:          out,
		})
	}
	return routes
}

// crossChainRoutes computes the direct bridge path plus one
// swap-bridge-swap path per bridge hop token.
func (f *Finder) crossChainRoutes(fromToken, toToken string, amount *big.Rat, from, to chain.Network) []*Route {
	var routes []*Route

	fromParams, ok := chain.Get(from)
	if !ok {
		return nil
	}
	toParams, ok := chain.Get(to)
	if !ok {
		return nil
	}

	// Direct bridge when both sides can cross without a swap leg.
	if fromToken == toToken || chain.Bridgeable(fromToken, toToken) {
		if out, ok := bridgeLeg(fromToken, toToken, amount, from, to); ok {
			toInfo, _ := chain.GetToken(to, toToken)
			routes = append(routes, &Route{
				ID:              uuid.New().String(),
				FromToken:       fromToken,
				ToToken:         toToken,
				FromNetwork:     from,
				ToNetwork:       to,
				Path:            []string{fromToken, toToken},
				Venues:          []string{bridgeVenue},
				EstimatedOutput: helpers.FormatDecimal(out, int(toInfo.Decimals)),
				PriceImpact:     0.1,
				GasEstimate:     fromParams.GasEstimate,
				TimeEstimateSec: bridgeTimeSec,
				output:          out,
			})
		}
	}

	impact := priceImpact(usdValue(fromToken, from, amount)) + 0.2

	for _, hop := range chain.BridgeHopTokens(from, to) {
		if hop == fromToken || hop == toToken {
			continue
		}

		fromVenue := fromParams.Venues[0]
		toVenue := toParams.Venues[0]

		step1, ok := swapLeg(fromToken, hop, amount, from, fromVenue)
		if !ok {
			continue
		}
		step2, ok := bridgeLeg(hop, hop, step1, from, to)
		if !ok {
			continue
		}
		final, ok := swapLeg(hop, toToken, step2, to, toVenue)
		if !ok {
			continue
		}

		toInfo, _ := chain.GetToken(to, toToken)
		routes = append(routes, &Route{
			ID:              uuid.New().String(),
			FromToken:       fromToken,
			ToToken:         toToken,
			FromNetwork:     from,
			ToNetwork:       to,
			Path:            []string{fromToken, hop, toToken},
			Venues:          []string{fromVenue, bridgeVenue, toVenue},
			EstimatedOutput: helpers.FormatDecimal(final, int(toInfo.Decimals)),
			PriceImpact:     impact,
			GasEstimate:     fromParams.GasEstimate,
			TimeEstimateSec: multiHopTimeSec,
			output:          final,
		})
	}

	return routes
}

// swapLeg estimates one DEX hop: amount * price ratio, less the venue fee.
func swapLeg(fromToken, toToken string, amount *big.Rat, network chain.Network, venue string) (*big.Rat, bool) {
	fromInfo, ok := chain.GetToken(network, fromToken)
	if !ok {
		return nil, false
	}
	toInfo, ok := chain.GetToken(network, toToken)
	if !ok {
		return nil, false
	}
	if fromToken == toToken {
		return new(big.Rat).Set(amount), true
	}

	fee, ok := venueFees[venue]
	if !ok {
		return nil, false
	}

	rate := new(big.Rat).Quo(helpers.RatFromFloat(fromInfo.PriceUSD), helpers.RatFromFloat(toInfo.PriceUSD))
	out := new(big.Rat).Mul(amount, rate)
	keep := new(big.Rat).Sub(big.NewRat(1, 1), helpers.RatFromFloat(fee))
	return out.Mul(out, keep), true
}

// bridgeLeg estimates a bridge crossing: price-converted amount less the
// bridge fee. Both tokens must exist on their networks.
func bridgeLeg(fromToken, toToken string, amount *big.Rat, from, to chain.Network) (*big.Rat, bool) {
	fromInfo, ok := chain.GetToken(from, fromToken)
	if !ok {
		return nil, false
	}
	toInfo, ok := chain.GetToken(to, toToken)
	if !ok {
		return nil, false
	}

	rate := new(big.Rat).Quo(helpers.RatFromFloat(fromInfo.PriceUSD), helpers.RatFromFloat(toInfo.PriceUSD))
	out := new(big.Rat).Mul(amount, rate)
	keep := new(big.Rat).Sub(big.NewRat(1, 1), helpers.RatFromFloat(bridgeFee))
	return out.Mul(out, keep), true
}

// usdValue returns the indicative USD value of an amount of a token.
func usdValue(token string, network chain.Network, amount *big.Rat) float64 {
	info, ok := chain.GetToken(network, token)
	if !ok {
		return 0
	}
	v := new(big.Rat).Mul(amount, helpers.RatFromFloat(info.PriceUSD))
	f, _ := v.Float64()
	return f
}

// priceImpact tiers the estimated impact by trade size in USD.
func priceImpact(usd float64) float64 {
	switch {
	case usd < 1_000:
		return 0.01
	case usd < 10_000:
		return 0.05
	case usd < 100_000:
		return 0.15
	default:
		return 0.5
	}
}
