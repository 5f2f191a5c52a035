// Package oracle reads Meridian price feeds from the backend gateway.
// Price data goes stale quickly, so reads default to a short freshness
// window.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/memo"
)

// DefaultTTL is the default freshness window for price reads.
const DefaultTTL = 5 * time.Second

// PriceData is one feed observation. Price is a base-10 integer string
// scaled by Decimals; Confidence is the feed's reported interval in the
// same scale.
type PriceData struct {
	FeedID     string    `json:"feedId"`
	Symbol     string    `json:"symbol"`
	Price      string    `json:"price"`
	Decimals   int       `json:"decimals"`
	Confidence string    `json:"confidence"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Age reports how old the observation is.
func (p PriceData) Age(now time.Time) time.Duration {
	return now.Sub(p.UpdatedAt)
}

// Stale reports whether the observation is older than maxAge.
func (p PriceData) Stale(maxAge time.Duration, now time.Time) bool {
	return p.Age(now) > maxAge
}

// Rat returns the price as an exact rational in quote units.
func (p PriceData) Rat() (*big.Rat, error) {
	raw, ok := new(big.Rat).SetString(p.Price)
	if !ok {
		return nil, fmt.Errorf("feed %s: invalid price %q", p.FeedID, p.Price)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(p.Decimals)), nil)
	return raw.Quo(raw, new(big.Rat).SetInt(scale)), nil
}

// Client reads price feeds.
type Client struct {
	gw     *gateway.Client
	price  func(context.Context, string, ...memo.CallOption) (PriceData, error)
	prices func(context.Context, ...memo.CallOption) ([]PriceData, error)
}

type config struct {
	ttl      time.Duration
	observer memo.Observer
}

// Option configures the client.
type Option func(*config)

// WithTTL overrides the freshness window for price reads.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithObserver attaches a cache observer to all memoized reads.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// New constructs an oracle client.
func New(gw *gateway.Client, opts ...Option) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	cfg := config{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{gw: gw}
	c.price = memo.Wrap1(c.fetchPrice,
		memo.WithName("oracle.price"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	c.prices = memo.Wrap0(c.fetchPrices,
		memo.WithName("oracle.prices"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	return c, nil
}

// Price fetches one feed by ID.
func (c *Client) Price(ctx context.Context, feedID string, opts ...memo.CallOption) (PriceData, error) {
	if feedID == "" {
		return PriceData{}, fmt.Errorf("feed id required")
	}
	return c.price(ctx, feedID, opts...)
}

// Prices fetches all feeds.
func (c *Client) Prices(ctx context.Context, opts ...memo.CallOption) ([]PriceData, error) {
	return c.prices(ctx, opts...)
}

func (c *Client) fetchPrice(ctx context.Context, feedID string) (PriceData, error) {
	var out PriceData
	if err := c.gw.Get(ctx, "/oracle/prices/"+feedID, nil, &out); err != nil {
		return PriceData{}, fmt.Errorf("get price %s: %w", feedID, err)
	}
	return out, nil
}

func (c *Client) fetchPrices(ctx context.Context) ([]PriceData, error) {
	var out []PriceData
	if err := c.gw.Get(ctx, "/oracle/prices", nil, &out); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}
