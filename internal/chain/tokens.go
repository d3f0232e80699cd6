package chain

// TokenInfo describes a token supported on a specific network.
type TokenInfo struct {
	Symbol   string  // Token symbol (ETH, USDC, etc.)
	Name     string  // Full name
	Decimals uint8   // Token decimals
	Address  string  // Contract/mint address, empty for native coins
	Network  Network // Network the token lives on
	// PriceUSD is the indicative reference price used for amount bounds
	// and output estimation. It is not a trading oracle.
	PriceUSD float64
}

// tokenRegistry maps network -> symbol -> TokenInfo.
var tokenRegistry = make(map[Network]map[string]*TokenInfo)

func registerToken(t *TokenInfo) {
	if tokenRegistry[t.Network] == nil {
		tokenRegistry[t.Network] = make(map[string]*TokenInfo)
	}
	tokenRegistry[t.Network][t.Symbol] = t
}

func init() {
	// ==========================================================================
	// Ethereum
	// ==========================================================================
	registerToken(&TokenInfo{
		Symbol:   "ETH",
		Name:     "Ether",
		Decimals: 18,
		Network:  Ethereum,
		PriceUSD: 2850,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
		Address:  "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Network:  Ethereum,
		PriceUSD: 1,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDT",
		Name:     "Tether USD",
		Decimals: 6,
		Address:  "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Network:  Ethereum,
		PriceUSD: 1,
	})
	registerToken(&TokenInfo{
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
		Address:  "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		Network:  Ethereum,
		PriceUSD: 2850,
	})
	registerToken(&TokenInfo{
		Symbol:   "WBTC",
		Name:     "Wrapped Bitcoin",
		Decimals: 8,
		Address:  "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
		Network:  Ethereum,
		PriceUSD: 68500,
	})

	// ==========================================================================
	// Solana
	// ==========================================================================
	registerToken(&TokenInfo{
		Symbol:   "SOL",
		Name:     "Solana",
		Decimals: 9,
		Network:  Solana,
		PriceUSD: 145,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
		Address:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Network:  Solana,
		PriceUSD: 1,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDT",
		Name:     "Tether USD",
		Decimals: 6,
		Address:  "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
		Network:  Solana,
		PriceUSD: 1,
	})
	registerToken(&TokenInfo{
		Symbol:   "WETH",
		Name:     "Wrapped Ether (Wormhole)",
		Decimals: 8,
		Address:  "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs",
		Network:  Solana,
		PriceUSD: 2850,
	})

	// ==========================================================================
	// TON
	// ==========================================================================
	registerToken(&TokenInfo{
		Symbol:   "TON",
		Name:     "Toncoin",
		Decimals: 9,
		Network:  TON,
		PriceUSD: 6.75,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDC",
		Name:     "USD Coin (Bridged)",
		Decimals: 6,
		Address:  "EQB-MPwrd1G6WKNkLz_VnV6WqBDd142KMQv-g1O-8QUA3728",
		Network:  TON,
		PriceUSD: 1,
	})
	registerToken(&TokenInfo{
		Symbol:   "USDT",
		Name:     "Tether USD (Jetton)",
		Decimals: 6,
		Address:  "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs",
		Network:  TON,
		PriceUSD: 1,
	})
}

// GetToken returns the token info for a symbol on a network.
func GetToken(n Network, symbol string) (*TokenInfo, bool) {
	tokens, ok := tokenRegistry[n]
	if !ok {
		return nil, false
	}
	t, ok := tokens[symbol]
	return t, ok
}

// Tokens returns all tokens registered on a network.
func Tokens(n Network) []*TokenInfo {
	tokens := tokenRegistry[n]
	out := make([]*TokenInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t)
	}
	return out
}

// bridgeableTokens can cross networks via the bridge without a swap leg.
var bridgeableTokens = map[string]bool{
	"USDC": true,
	"USDT": true,
	"WETH": true,
	"WBTC": true,
}

// Bridgeable reports whether both tokens can use the direct bridge path.
func Bridgeable(fromToken, toToken string) bool {
	return bridgeableTokens[fromToken] && bridgeableTokens[toToken]
}

// BridgeHopTokens lists the intermediate tokens usable for
// swap-bridge-swap routes between two networks.
func BridgeHopTokens(from, to Network) []string {
	hops := make([]string, 0, 3)
	for _, symbol := range []string{"USDC", "USDT", "WETH"} {
		if _, ok := GetToken(from, symbol); !ok {
			continue
		}
		if _, ok := GetToken(to, symbol); !ok {
			continue
		}
		hops = append(hops, symbol)
	}
	return hops
}
