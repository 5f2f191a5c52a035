// Package lending provides the client for Meridian's lending module:
// cached pool and position reads over the backend gateway, and transaction
// builders for supply, withdraw, borrow, repay and liquidate.
package lending

import (
	"context"
	"fmt"
	"time"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/memo"
)

// Default freshness windows for cached reads. Pool listings move with the
// interest-rate clock; positions move with the account's own transactions.
const (
	DefaultPoolTTL     = 30 * time.Second
	DefaultPositionTTL = 15 * time.Second
)

// Client reads lending state and builds lending transactions.
type Client struct {
	gw   *gateway.Client
	book meridian.AddressBook

	pools    func(context.Context, ...memo.CallOption) ([]Pool, error)
	pool     func(context.Context, string, ...memo.CallOption) (Pool, error)
	reserve  func(context.Context, string, ...memo.CallOption) (Reserve, error)
	position func(context.Context, string, ...memo.CallOption) (Position, error)
}

type config struct {
	poolTTL     time.Duration
	positionTTL time.Duration
	observer    memo.Observer
}

// Option configures the client.
type Option func(*config)

// WithPoolTTL overrides the freshness window for pool and reserve reads.
func WithPoolTTL(ttl time.Duration) Option {
	return func(c *config) { c.poolTTL = ttl }
}

// WithPositionTTL overrides the freshness window for position reads.
func WithPositionTTL(ttl time.Duration) Option {
	return func(c *config) { c.positionTTL = ttl }
}

// WithObserver attaches a cache observer to all memoized reads.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// New constructs a lending client for one network.
func New(gw *gateway.Client, network meridian.Network, opts ...Option) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	book, err := network.Addresses()
	if err != nil {
		return nil, err
	}
	cfg := config{poolTTL: DefaultPoolTTL, positionTTL: DefaultPositionTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{gw: gw, book: book}
	c.pools = memo.Wrap0(c.fetchPools,
		memo.WithName("lending.pools"), memo.WithTTL(cfg.poolTTL), memo.WithObserver(cfg.observer))
	c.pool = memo.Wrap1(c.fetchPool,
		memo.WithName("lending.pool"), memo.WithTTL(cfg.poolTTL), memo.WithObserver(cfg.observer))
	c.reserve = memo.Wrap1(c.fetchReserve,
		memo.WithName("lending.reserve"), memo.WithTTL(cfg.poolTTL), memo.WithObserver(cfg.observer))
	c.position = memo.Wrap1(c.fetchPosition,
		memo.WithName("lending.position"), memo.WithTTL(cfg.positionTTL), memo.WithObserver(cfg.observer))
	return c, nil
}

// Pools lists all lending markets. Served from cache while fresh; pass
// memo.Bypass to force a refresh.
func (c *Client) Pools(ctx context.Context, opts ...memo.CallOption) ([]Pool, error) {
	return c.pools(ctx, opts...)
}

// Pool fetches one market by symbol.
func (c *Client) Pool(ctx context.Context, symbol string, opts ...memo.CallOption) (Pool, error) {
	if symbol == "" {
		return Pool{}, fmt.Errorf("pool symbol required")
	}
	return c.pool(ctx, symbol, opts...)
}

// Reserve fetches detailed reserve state for one market.
func (c *Client) Reserve(ctx context.Context, symbol string, opts ...memo.CallOption) (Reserve, error) {
	if symbol == "" {
		return Reserve{}, fmt.Errorf("pool symbol required")
	}
	return c.reserve(ctx, symbol, opts...)
}

// Position fetches an account's aggregate lending position.
func (c *Client) Position(ctx context.Context, account meridian.Address, opts ...memo.CallOption) (Position, error) {
	if !account.Valid() {
		return Position{}, fmt.Errorf("invalid account address %q", account)
	}
	return c.position(ctx, account.String(), opts...)
}

func (c *Client) fetchPools(ctx context.Context) ([]Pool, error) {
	var out []Pool
	if err := c.gw.Get(ctx, "/lending/pools", nil, &out); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return out, nil
}

func (c *Client) fetchPool(ctx context.Context, symbol string) (Pool, error) {
	var out Pool
	if err := c.gw.Get(ctx, "/lending/pools/"+symbol, nil, &out); err != nil {
		return Pool{}, fmt.Errorf("get pool %s: %w", symbol, err)
	}
	return out, nil
}

func (c *Client) fetchReserve(ctx context.Context, symbol string) (Reserve, error) {
	var out Reserve
	if err := c.gw.Get(ctx, "/lending/reserves/"+symbol, nil, &out); err != nil {
		return Reserve{}, fmt.Errorf("get reserve %s: %w", symbol, err)
	}
	return out, nil
}

func (c *Client) fetchPosition(ctx context.Context, account string) (Position, error) {
	var out Position
	if err := c.gw.Get(ctx, "/lending/accounts/"+account+"/position", nil, &out); err != nil {
		return Position{}, fmt.Errorf("get position for %s: %w", account, err)
	}
	return out, nil
}
