// Package chain provides reference data for the three Trinity networks and
// the adapter interface used to reach them.
package chain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Network identifies one of the three supported blockchain networks.
type Network string

const (
	Ethereum Network = "ethereum"
	Solana   Network = "solana"
	TON      Network = "ton"
)

// Networks lists all supported networks in consensus order.
var Networks = []Network{Ethereum, Solana, TON}

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrUnknownToken   = errors.New("unknown token")
)

// Params holds per-network reference parameters.
type Params struct {
	Network     Network
	Name        string
	NativeToken string
	// GasEstimate is the indicative gas/compute cost of a swap leg,
	// in the network's native gas unit.
	GasEstimate string
	// Venues are the DEX venues available for same-chain swaps.
	Venues []string
}

var registry = map[Network]*Params{
	Ethereum: {
		Network:     Ethereum,
		Name:        "Ethereum",
		NativeToken: "ETH",
		GasEstimate: "180000",
		Venues:      []string{"Uniswap V3", "Uniswap V2", "SushiSwap", "1inch", "Curve", "Balancer"},
	},
	Solana: {
		Network:     Solana,
		Name:        "Solana",
		NativeToken: "SOL",
		GasEstimate: "5000",
		Venues:      []string{"Jupiter", "Raydium", "Orca", "Serum", "Aldrin"},
	},
	TON: {
		Network:     TON,
		Name:        "The Open Network",
		NativeToken: "TON",
		GasEstimate: "10000",
		Venues:      []string{"DeDust", "STON.fi", "TON DEX"},
	},
}

// Get returns the parameters for a network.
func Get(n Network) (*Params, bool) {
	p, ok := registry[n]
	return p, ok
}

// Valid reports whether n names a supported network.
func Valid(n Network) bool {
	_, ok := registry[n]
	return ok
}

// ValidAddress reports whether addr is a plausible account address on the
// given network. Ethereum addresses are checked strictly; Solana and TON
// addresses are length-checked only, since full validation requires the
// chain client.
func ValidAddress(n Network, addr string) bool {
	if addr == "" {
		return false
	}
	switch n {
	case Ethereum:
		return common.IsHexAddress(addr)
	case Solana:
		return len(addr) >= 32 && len(addr) <= 44
	case TON:
		return len(addr) >= 36 && len(addr) <= 66
	default:
		return false
	}
}
