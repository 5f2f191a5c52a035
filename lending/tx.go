package lending

import (
	"fmt"
	"math/big"
	"strings"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/ptb"
)

// ensurePositiveAmount parses and validates that the provided string
// represents a strictly positive integer. Amounts are encoded as base-10
// strings in the asset's base units.
func ensurePositiveAmount(label, amount string) (string, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return "", fmt.Errorf("%s amount required", label)
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || parsed.Sign() <= 0 {
		return "", fmt.Errorf("%s amount must be a positive integer", label)
	}
	return parsed.String(), nil
}

func (c *Client) checkPool(pool Pool) error {
	if strings.TrimSpace(pool.AssetType) == "" {
		return fmt.Errorf("pool %q has no asset type", pool.Symbol)
	}
	if !pool.PoolObject.Valid() {
		return fmt.Errorf("pool %q has no pool object", pool.Symbol)
	}
	return nil
}

func (c *Client) target(function string) string {
	return c.book.LendingPackage.String() + "::market::" + function
}

// Supply appends a supply of amount from coin into pool. The coin argument
// is split, so any remainder stays with the caller.
func (c *Client) Supply(b *ptb.Builder, pool Pool, coin ptb.Argument, amount string) error {
	if err := c.checkPool(pool); err != nil {
		return err
	}
	normalized, err := ensurePositiveAmount("supply", amount)
	if err != nil {
		return err
	}
	deposit := b.SplitCoins(coin, b.Pure(normalized))
	b.MoveCall(c.target("supply"), []string{pool.AssetType},
		b.SharedObject(c.book.LendingMarket, true),
		b.SharedObject(pool.PoolObject, true),
		deposit,
		b.SharedObject(c.book.ClockObject, false),
	)
	return b.Err()
}

// Withdraw appends a withdrawal from pool and returns a handle to the
// withdrawn coin.
func (c *Client) Withdraw(b *ptb.Builder, pool Pool, amount string) (ptb.Argument, error) {
	if err := c.checkPool(pool); err != nil {
		return ptb.Argument{}, err
	}
	normalized, err := ensurePositiveAmount("withdraw", amount)
	if err != nil {
		return ptb.Argument{}, err
	}
	coin := b.MoveCall(c.target("withdraw"), []string{pool.AssetType},
		b.SharedObject(c.book.LendingMarket, true),
		b.SharedObject(pool.PoolObject, true),
		b.Pure(normalized),
		b.SharedObject(c.book.ClockObject, false),
	)
	return coin, b.Err()
}

// Borrow appends a borrow against the account's collateral and returns a
// handle to the borrowed coin.
func (c *Client) Borrow(b *ptb.Builder, pool Pool, amount string) (ptb.Argument, error) {
	if err := c.checkPool(pool); err != nil {
		return ptb.Argument{}, err
	}
	normalized, err := ensurePositiveAmount("borrow", amount)
	if err != nil {
		return ptb.Argument{}, err
	}
	coin := b.MoveCall(c.target("borrow"), []string{pool.AssetType},
		b.SharedObject(c.book.LendingMarket, true),
		b.SharedObject(pool.PoolObject, true),
		b.Pure(normalized),
		b.SharedObject(c.book.ClockObject, false),
	)
	return coin, b.Err()
}

// Repay appends a repayment of amount from coin into pool.
func (c *Client) Repay(b *ptb.Builder, pool Pool, coin ptb.Argument, amount string) error {
	if err := c.checkPool(pool); err != nil {
		return err
	}
	normalized, err := ensurePositiveAmount("repay", amount)
	if err != nil {
		return err
	}
	payment := b.SplitCoins(coin, b.Pure(normalized))
	b.MoveCall(c.target("repay"), []string{pool.AssetType},
		b.SharedObject(c.book.LendingMarket, true),
		b.SharedObject(pool.PoolObject, true),
		payment,
		b.SharedObject(c.book.ClockObject, false),
	)
	return b.Err()
}

// Liquidate appends a liquidation: repayAmount of the debt pool's asset is
// paid from coin against borrower, seizing collateral from the collateral
// pool. Returns a handle to the seized collateral coin.
func (c *Client) Liquidate(b *ptb.Builder, debtPool, collateralPool Pool, borrower meridian.Address, coin ptb.Argument, repayAmount string) (ptb.Argument, error) {
	if err := c.checkPool(debtPool); err != nil {
		return ptb.Argument{}, err
	}
	if err := c.checkPool(collateralPool); err != nil {
		return ptb.Argument{}, err
	}
	if !borrower.Valid() {
		return ptb.Argument{}, fmt.Errorf("invalid borrower address %q", borrower)
	}
	normalized, err := ensurePositiveAmount("repay", repayAmount)
	if err != nil {
		return ptb.Argument{}, err
	}
	payment := b.SplitCoins(coin, b.Pure(normalized))
	seized := b.MoveCall(c.target("liquidate"),
		[]string{debtPool.AssetType, collateralPool.AssetType},
		b.SharedObject(c.book.LendingMarket, true),
		b.SharedObject(debtPool.PoolObject, true),
		b.SharedObject(collateralPool.PoolObject, true),
		b.Pure(borrower.String()),
		payment,
		b.SharedObject(c.book.ClockObject, false),
	)
	return seized, b.Err()
}
