package swap

import (
	"fmt"
	"math/big"
	"strings"

	meridian "github.com/meridianfi/meridian-go"
)

// Hop is one pool traversal within a quoted route.
type Hop struct {
	Provider   string           `json:"provider"`
	PoolObject meridian.Address `json:"poolObject"`
	CoinIn     string           `json:"coinIn"`
	CoinOut    string           `json:"coinOut"`
	AmountIn   string           `json:"amountIn"`
	AmountOut  string           `json:"amountOut"`
}

// Quote is the aggregator's best route for a fixed input amount. Amounts
// are base-10 integer strings in base units.
type Quote struct {
	CoinIn         string `json:"coinIn"`
	CoinOut        string `json:"coinOut"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	PriceImpactBps int    `json:"priceImpactBps"`
	Route          []Hop  `json:"route"`
}

const bpsDenominator = 10_000

// MinAmountOut applies a slippage tolerance in basis points to the quoted
// output, rounding down.
func MinAmountOut(quote Quote, slippageBps int) (string, error) {
	if slippageBps < 0 || slippageBps >= bpsDenominator {
		return "", fmt.Errorf("slippage %d bps out of range [0, %d)", slippageBps, bpsDenominator)
	}
	out, ok := new(big.Int).SetString(strings.TrimSpace(quote.AmountOut), 10)
	if !ok || out.Sign() < 0 {
		return "", fmt.Errorf("invalid quoted output amount %q", quote.AmountOut)
	}
	out.Mul(out, big.NewInt(int64(bpsDenominator-slippageBps)))
	out.Quo(out, big.NewInt(bpsDenominator))
	return out.String(), nil
}
