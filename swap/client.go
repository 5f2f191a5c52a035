// Package swap provides the client for Meridian's DEX-aggregation router:
// cached quotes from the backend and translation of quoted routes into
// programmable transaction commands via a provider registry.
package swap

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/memo"
	"github.com/meridianfi/meridian-go/ptb"
)

// DefaultQuoteTTL is the default freshness window for quotes. Quotes track
// live pool state, so the window is deliberately tight: it exists to absorb
// request fan-out, not to serve stale routes.
const DefaultQuoteTTL = 3 * time.Second

// ProviderFunc appends the commands for one route hop and returns a handle
// to the hop's output coin.
type ProviderFunc func(b *ptb.Builder, book meridian.AddressBook, hop Hop, in ptb.Argument) (ptb.Argument, error)

// Client quotes and builds aggregated swaps.
type Client struct {
	gw        *gateway.Client
	book      meridian.AddressBook
	providers map[string]ProviderFunc

	quote func(context.Context, string, string, string, ...memo.CallOption) (Quote, error)
}

type config struct {
	ttl       time.Duration
	observer  memo.Observer
	providers map[string]ProviderFunc
}

// Option configures the client.
type Option func(*config)

// WithQuoteTTL overrides the freshness window for quotes.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithObserver attaches a cache observer to quote reads.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithProvider registers a route builder for the named DEX provider,
// overriding a built-in of the same name.
func WithProvider(name string, fn ProviderFunc) Option {
	return func(c *config) {
		if name != "" && fn != nil {
			c.providers[name] = fn
		}
	}
}

// New constructs a swap client for one network. The protocol's own CLMM
// and stable pools are registered out of the box.
func New(gw *gateway.Client, network meridian.Network, opts ...Option) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	book, err := network.Addresses()
	if err != nil {
		return nil, err
	}
	cfg := config{
		ttl: DefaultQuoteTTL,
		providers: map[string]ProviderFunc{
			"clmm":   clmmSwap,
			"stable": stableSwap,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{gw: gw, book: book, providers: cfg.providers}
	c.quote = memo.Wrap3(c.fetchQuote,
		memo.WithName("swap.quote"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	return c, nil
}

// Quote asks the aggregator for the best route selling amountIn of coinIn
// for coinOut. Identical requests within the freshness window share one
// backend call.
func (c *Client) Quote(ctx context.Context, coinIn, coinOut, amountIn string, opts ...memo.CallOption) (Quote, error) {
	coinIn = strings.TrimSpace(coinIn)
	coinOut = strings.TrimSpace(coinOut)
	if coinIn == "" || coinOut == "" {
		return Quote{}, fmt.Errorf("both coin types required")
	}
	if coinIn == coinOut {
		return Quote{}, fmt.Errorf("cannot swap %s for itself", coinIn)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(amountIn), 10)
	if !ok || amount.Sign() <= 0 {
		return Quote{}, fmt.Errorf("input amount must be a positive integer")
	}
	return c.quote(ctx, coinIn, coinOut, amount.String(), opts...)
}

// Build translates a quoted route into commands consuming the input coin,
// asserts the slippage floor, and returns a handle to the output coin.
func (c *Client) Build(b *ptb.Builder, quote Quote, coin ptb.Argument, slippageBps int) (ptb.Argument, error) {
	if len(quote.Route) == 0 {
		return ptb.Argument{}, fmt.Errorf("quote has no route")
	}
	minOut, err := MinAmountOut(quote, slippageBps)
	if err != nil {
		return ptb.Argument{}, err
	}

	out := coin
	for i, hop := range quote.Route {
		fn, ok := c.providers[hop.Provider]
		if !ok {
			return ptb.Argument{}, fmt.Errorf("route hop %d: unknown provider %q", i, hop.Provider)
		}
		out, err = fn(b, c.book, hop, out)
		if err != nil {
			return ptb.Argument{}, fmt.Errorf("route hop %d (%s): %w", i, hop.Provider, err)
		}
	}

	out = b.MoveCall(
		c.book.AggregatorPackage.String()+"::router::ensure_out",
		[]string{quote.CoinOut},
		out,
		b.Pure(minOut),
	)
	return out, b.Err()
}

func (c *Client) fetchQuote(ctx context.Context, coinIn, coinOut, amountIn string) (Quote, error) {
	query := url.Values{
		"from":   {coinIn},
		"to":     {coinOut},
		"amount": {amountIn},
	}
	var out Quote
	if err := c.gw.Get(ctx, "/aggregator/quote", query, &out); err != nil {
		return Quote{}, fmt.Errorf("quote %s->%s: %w", coinIn, coinOut, err)
	}
	return out, nil
}

func clmmSwap(b *ptb.Builder, book meridian.AddressBook, hop Hop, in ptb.Argument) (ptb.Argument, error) {
	if !hop.PoolObject.Valid() {
		return ptb.Argument{}, fmt.Errorf("invalid pool object %q", hop.PoolObject)
	}
	out := b.MoveCall(
		book.AggregatorPackage.String()+"::clmm_router::swap",
		[]string{hop.CoinIn, hop.CoinOut},
		b.SharedObject(hop.PoolObject, true),
		in,
		b.SharedObject(book.ClockObject, false),
	)
	return out, b.Err()
}

func stableSwap(b *ptb.Builder, book meridian.AddressBook, hop Hop, in ptb.Argument) (ptb.Argument, error) {
	if !hop.PoolObject.Valid() {
		return ptb.Argument{}, fmt.Errorf("invalid pool object %q", hop.PoolObject)
	}
	out := b.MoveCall(
		book.AggregatorPackage.String()+"::stable_router::swap",
		[]string{hop.CoinIn, hop.CoinOut},
		b.SharedObject(hop.PoolObject, true),
		in,
	)
	return out, b.Err()
}
