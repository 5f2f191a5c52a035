package wallet

import (
	"context"
	"fmt"
	"math/big"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/lending"
	"github.com/meridianfi/meridian-go/memo"
)

// Holding is one valued asset line within a portfolio. Amount is a base-10
// integer string in base units; Value is the quote-currency value of the
// whole amount, empty when the asset has no known price.
type Holding struct {
	Symbol   string `json:"symbol"`
	CoinType string `json:"coinType"`
	Amount   string `json:"amount"`
	Value    string `json:"value,omitempty"`
}

// Portfolio is an account's combined view: wallet coin balances, lending
// supplies and borrows, all valued at current oracle prices.
type Portfolio struct {
	Account      meridian.Address `json:"account"`
	Balances     []Holding        `json:"balances"`
	Supplied     []Holding        `json:"supplied"`
	Borrowed     []Holding        `json:"borrowed"`
	TotalValue   string           `json:"totalValue"`
	HealthFactor string           `json:"healthFactor,omitempty"`
}

// valuePlaces is the number of decimal places in rendered values.
const valuePlaces = 6

// Portfolio joins an account's coin balances, lending position and the
// current oracle prices into one valued snapshot. Total value counts wallet
// balances and supplied collateral net of borrows. Cache-control options are
// forwarded to every underlying read.
func (c *Client) Portfolio(ctx context.Context, account meridian.Address, opts ...memo.CallOption) (*Portfolio, error) {
	if !account.Valid() {
		return nil, fmt.Errorf("invalid account address %q", account)
	}

	pools, err := c.lending.Pools(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}
	feeds, err := c.oracle.Prices(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	balances, err := c.Balances(ctx, account, opts...)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	position, err := c.lending.Position(ctx, account, opts...)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}

	poolBySymbol := make(map[string]lending.Pool, len(pools))
	poolByCoin := make(map[string]lending.Pool, len(pools))
	for _, p := range pools {
		poolBySymbol[p.Symbol] = p
		poolByCoin[p.AssetType] = p
	}
	priceByFeed := make(map[string]*big.Rat, len(feeds))
	for _, f := range feeds {
		r, err := f.Rat()
		if err != nil {
			return nil, err
		}
		priceByFeed[f.FeedID] = r
	}
	priceBySymbol := make(map[string]*big.Rat, len(pools))
	for _, p := range pools {
		if r, ok := priceByFeed[p.OracleFeedID]; ok {
			priceBySymbol[p.Symbol] = r
		}
	}

	pf := &Portfolio{Account: account}
	total := new(big.Rat)

	for _, b := range balances {
		h := Holding{CoinType: b.CoinType, Amount: b.Total}
		if pool, ok := poolByCoin[b.CoinType]; ok {
			h.Symbol = pool.Symbol
			if v, err := holdingValue(b.Total, pool.Decimals, priceBySymbol[pool.Symbol]); err != nil {
				return nil, fmt.Errorf("value balance %s: %w", pool.Symbol, err)
			} else if v != nil {
				h.Value = v.FloatString(valuePlaces)
				total.Add(total, v)
			}
		}
		pf.Balances = append(pf.Balances, h)
	}

	for _, e := range position.Entries {
		pool, ok := poolBySymbol[e.Symbol]
		if !ok {
			return nil, fmt.Errorf("position references unknown pool %q", e.Symbol)
		}
		if e.Supplied != "" && e.Supplied != "0" {
			h := Holding{Symbol: e.Symbol, CoinType: pool.AssetType, Amount: e.Supplied}
			v, err := holdingValue(e.Supplied, pool.Decimals, priceBySymbol[e.Symbol])
			if err != nil {
				return nil, fmt.Errorf("value supply %s: %w", e.Symbol, err)
			}
			if v != nil {
				h.Value = v.FloatString(valuePlaces)
				total.Add(total, v)
			}
			pf.Supplied = append(pf.Supplied, h)
		}
		if e.Borrowed != "" && e.Borrowed != "0" {
			h := Holding{Symbol: e.Symbol, CoinType: pool.AssetType, Amount: e.Borrowed}
			v, err := holdingValue(e.Borrowed, pool.Decimals, priceBySymbol[e.Symbol])
			if err != nil {
				return nil, fmt.Errorf("value borrow %s: %w", e.Symbol, err)
			}
			if v != nil {
				h.Value = v.FloatString(valuePlaces)
				total.Sub(total, v)
			}
			pf.Borrowed = append(pf.Borrowed, h)
		}
	}

	pf.TotalValue = total.FloatString(valuePlaces)

	if allPriced(position.Entries, priceBySymbol) {
		hf, err := lending.ComputeHealthFactor(position.Entries, poolBySymbol, priceBySymbol)
		if err != nil {
			return nil, fmt.Errorf("health factor: %w", err)
		}
		if hf != nil {
			pf.HealthFactor = hf.FloatString(valuePlaces)
		}
	}
	return pf, nil
}

// allPriced reports whether every entry's symbol has an oracle price. The
// health factor is omitted rather than guessed when a feed is missing.
func allPriced(entries []lending.PositionEntry, prices map[string]*big.Rat) bool {
	for _, e := range entries {
		if _, ok := prices[e.Symbol]; !ok {
			return false
		}
	}
	return true
}

// holdingValue prices an integer base-unit amount. A nil price yields a nil
// value, not an error: assets without feeds stay unvalued.
func holdingValue(amount string, decimals int, price *big.Rat) (*big.Rat, error) {
	if price == nil {
		return nil, nil
	}
	raw, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	v := raw.Quo(raw, new(big.Rat).SetInt(scale))
	return v.Mul(v, price), nil
}
