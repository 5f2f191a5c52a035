package lending

import (
	"fmt"
	"math/big"
	"time"

	meridian "github.com/meridianfi/meridian-go"
)

// Pool is one lending market as reported by the backend. Amounts are
// base-10 integer strings in the asset's base units; rates and factors are
// decimal strings.
type Pool struct {
	Symbol               string           `json:"symbol"`
	AssetType            string           `json:"assetType"`
	Decimals             int              `json:"decimals"`
	TotalSupplied        string           `json:"totalSupplied"`
	TotalBorrowed        string           `json:"totalBorrowed"`
	SupplyAPY            string           `json:"supplyApy"`
	BorrowAPY            string           `json:"borrowApy"`
	CollateralFactor     string           `json:"collateralFactor"`
	LiquidationThreshold string           `json:"liquidationThreshold"`
	OracleFeedID         string           `json:"oracleFeedId"`
	PoolObject           meridian.Address `json:"poolObject"`
}

// Reserve is the detailed on-chain state of one pool.
type Reserve struct {
	Symbol        string    `json:"symbol"`
	Available     string    `json:"available"`
	SupplyIndex   string    `json:"supplyIndex"`
	BorrowIndex   string    `json:"borrowIndex"`
	UtilizationAt string    `json:"utilization"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PositionEntry is one asset's balance within an account position.
type PositionEntry struct {
	Symbol   string `json:"symbol"`
	Supplied string `json:"supplied"`
	Borrowed string `json:"borrowed"`
}

// Position is an account's aggregate lending position.
type Position struct {
	Account      meridian.Address `json:"account"`
	Entries      []PositionEntry  `json:"entries"`
	HealthFactor string           `json:"healthFactor"`
}

// ComputeHealthFactor derives a position's health factor from its entries,
// the pool parameters and per-symbol prices (quote units per whole asset).
// The result is liquidation-weighted collateral over total debt; a nil
// result with nil error means the position has no outstanding debt.
func ComputeHealthFactor(entries []PositionEntry, pools map[string]Pool, prices map[string]*big.Rat) (*big.Rat, error) {
	collateral := new(big.Rat)
	debt := new(big.Rat)

	for _, e := range entries {
		pool, ok := pools[e.Symbol]
		if !ok {
			return nil, fmt.Errorf("no pool parameters for %q", e.Symbol)
		}
		price, ok := prices[e.Symbol]
		if !ok {
			return nil, fmt.Errorf("no price for %q", e.Symbol)
		}
		scale := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(pool.Decimals)), nil))

		if e.Supplied != "" && e.Supplied != "0" {
			supplied, ok := new(big.Rat).SetString(e.Supplied)
			if !ok {
				return nil, fmt.Errorf("invalid supplied amount %q for %q", e.Supplied, e.Symbol)
			}
			threshold, ok := new(big.Rat).SetString(pool.LiquidationThreshold)
			if !ok {
				return nil, fmt.Errorf("invalid liquidation threshold %q for %q", pool.LiquidationThreshold, e.Symbol)
			}
			v := new(big.Rat).Mul(supplied, scale)
			v.Mul(v, price)
			v.Mul(v, threshold)
			collateral.Add(collateral, v)
		}

		if e.Borrowed != "" && e.Borrowed != "0" {
			borrowed, ok := new(big.Rat).SetString(e.Borrowed)
			if !ok {
				return nil, fmt.Errorf("invalid borrowed amount %q for %q", e.Borrowed, e.Symbol)
			}
			v := new(big.Rat).Mul(borrowed, scale)
			v.Mul(v, price)
			debt.Add(debt, v)
		}
	}

	if debt.Sign() == 0 {
		return nil, nil
	}
	return collateral.Quo(collateral, debt), nil
}
