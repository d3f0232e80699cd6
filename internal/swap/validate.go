package swap

import (
	"fmt"
	"math/big"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/config"
	"github.com/trinity-exchange/trinity-swapd/pkg/helpers"
)

// CreateRequest carries the caller-supplied swap parameters.
type CreateRequest struct {
	UserAddress string        `json:"user_address"`
	Recipient   string        `json:"recipient,omitempty"`
	FromToken   string        `json:"from_token"`
	ToToken     string        `json:"to_token"`
	FromAmount  string        `json:"from_amount"`
	MinAmount   string        `json:"min_amount"`
	FromNetwork chain.Network `json:"from_network"`
	ToNetwork   chain.Network `json:"to_network"`
	SecretHash  string        `json:"secret_hash"`
}

// validateRequest checks everything about a create request that does not
// need a route: formats, reference-data membership, and USD bounds. It
// returns the indicative USD value of the input amount.
func validateRequest(req *CreateRequest, limits config.LimitsConfig) (float64, error) {
	if !isSecretHash(req.SecretHash) {
		return 0, fmt.Errorf("%w: want 0x-prefixed 64-char lowercase hex", ErrInvalidSecretHash)
	}

	if !chain.Valid(req.FromNetwork) {
		return 0, fmt.Errorf("%w: %s", chain.ErrUnknownNetwork, req.FromNetwork)
	}
	if !chain.Valid(req.ToNetwork) {
		return 0, fmt.Errorf("%w: %s", chain.ErrUnknownNetwork, req.ToNetwork)
	}

	if !chain.ValidAddress(req.FromNetwork, req.UserAddress) {
		return 0, fmt.Errorf("%w: user address for %s", ErrInvalidAddress, req.FromNetwork)
	}
	if req.Recipient != "" && !chain.ValidAddress(req.ToNetwork, req.Recipient) {
		return 0, fmt.Errorf("%w: recipient for %s", ErrInvalidAddress, req.ToNetwork)
	}

	fromInfo, ok := chain.GetToken(req.FromNetwork, req.FromToken)
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", ErrUnsupportedToken, req.FromToken, req.FromNetwork)
	}
	if _, ok := chain.GetToken(req.ToNetwork, req.ToToken); !ok {
		return 0, fmt.Errorf("%w: %s on %s", ErrUnsupportedToken, req.ToToken, req.ToNetwork)
	}

	amount, err := helpers.ParseDecimal(req.FromAmount)
	if err != nil {
		return 0, fmt.Errorf("%w: fromAmount: %v", ErrInvalidAmount, err)
	}
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: fromAmount must be positive", ErrInvalidAmount)
	}
	minAmount, err := helpers.ParseDecimal(req.MinAmount)
	if err != nil {
		return 0, fmt.Errorf("%w: minAmount: %v", ErrInvalidAmount, err)
	}
	if minAmount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: minAmount must be positive", ErrInvalidAmount)
	}

	usd := new(big.Rat).Mul(amount, helpers.RatFromFloat(fromInfo.PriceUSD))
	usdValue, _ := usd.Float64()
	if usd.Cmp(helpers.RatFromFloat(limits.MinSwapUSD)) < 0 {
		return usdValue, fmt.Errorf("%w: $%.2f below $%.0f minimum", ErrAmountTooSmall, usdValue, limits.MinSwapUSD)
	}
	if usd.Cmp(helpers.RatFromFloat(limits.MaxSwapUSD)) > 0 {
		return usdValue, fmt.Errorf("%w: $%.2f above $%.0f maximum", ErrAmountTooLarge, usdValue, limits.MaxSwapUSD)
	}

	return usdValue, nil
}

// isSecretHash reports whether s is a canonical keccak256 digest string:
// 0x prefix plus exactly 64 lowercase hex characters.
func isSecretHash(s string) bool {
	if len(s) != 66 || s[0] != '0' || s[1] != 'x' {
		return false
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
