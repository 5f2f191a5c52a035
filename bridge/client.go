// Package bridge provides the client for Meridian's cross-chain bridge:
// chain and token listings, transfer quoting, submission and status
// polling. The heavy lifting happens in the backend's bridge providers;
// this client marshals requests and tracks transfer lifecycles.
package bridge

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/memo"
)

// DefaultListingTTL is the freshness window for chain and token listings;
// they change on backend deploys, not block-by-block.
const DefaultListingTTL = 5 * time.Minute

// Chain is one bridgeable network.
type Chain struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NativeToken string `json:"nativeToken"`
}

// Token is one bridgeable asset on a chain.
type Token struct {
	Symbol   string `json:"symbol"`
	ChainID  string `json:"chainId"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// QuoteRequest prices a transfer of amount between two chain/token pairs.
type QuoteRequest struct {
	FromChain string `json:"fromChain"`
	ToChain   string `json:"toChain"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// Quote is the backend's priced transfer offer.
type Quote struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	AmountIn  string    `json:"amountIn"`
	AmountOut string    `json:"amountOut"`
	Fee       string    `json:"fee"`
	ETA       string    `json:"eta"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Transfer states reported by the backend.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transfer is a submitted bridge transfer.
type Transfer struct {
	ID          string    `json:"id"`
	QuoteID     string    `json:"quoteId"`
	Status      string    `json:"status"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"`
	SourceTx    string    `json:"sourceTx"`
	DestTx      string    `json:"destTx"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Done reports whether the transfer reached a terminal state.
func (t Transfer) Done() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// SubmitRequest executes a previously obtained quote.
type SubmitRequest struct {
	QuoteID     string `json:"quoteId"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

// Client talks to the bridge endpoints.
type Client struct {
	gw *gateway.Client

	chains func(context.Context, ...memo.CallOption) ([]Chain, error)
	tokens func(context.Context, string, ...memo.CallOption) ([]Token, error)
}

type config struct {
	ttl      time.Duration
	observer memo.Observer
}

// Option configures the client.
type Option func(*config)

// WithListingTTL overrides the freshness window for chain and token
// listings.
func WithListingTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithObserver attaches a cache observer to memoized reads.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// New constructs a bridge client.
func New(gw *gateway.Client, opts ...Option) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	cfg := config{ttl: DefaultListingTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{gw: gw}
	c.chains = memo.Wrap0(c.fetchChains,
		memo.WithName("bridge.chains"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	c.tokens = memo.Wrap1(c.fetchTokens,
		memo.WithName("bridge.tokens"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	return c, nil
}

// Chains lists bridgeable networks.
func (c *Client) Chains(ctx context.Context, opts ...memo.CallOption) ([]Chain, error) {
	return c.chains(ctx, opts...)
}

// Tokens lists bridgeable assets on one chain.
func (c *Client) Tokens(ctx context.Context, chainID string, opts ...memo.CallOption) ([]Token, error) {
	if strings.TrimSpace(chainID) == "" {
		return nil, fmt.Errorf("chain id required")
	}
	return c.tokens(ctx, chainID, opts...)
}

func (c *Client) fetchChains(ctx context.Context) ([]Chain, error) {
	var out []Chain
	if err := c.gw.Get(ctx, "/bridge/chains", nil, &out); err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return out, nil
}

func (c *Client) fetchTokens(ctx context.Context, chainID string) ([]Token, error) {
	var out []Token
	if err := c.gw.Get(ctx, "/bridge/tokens/"+url.PathEscape(chainID), nil, &out); err != nil {
		return nil, fmt.Errorf("list tokens for %s: %w", chainID, err)
	}
	return out, nil
}

// RequestQuote prices a transfer. Quotes are per-request priced and carry
// an expiry, so they are never cached.
func (c *Client) RequestQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if strings.TrimSpace(req.FromChain) == "" || strings.TrimSpace(req.ToChain) == "" {
		return Quote{}, fmt.Errorf("both chains required")
	}
	if req.FromChain == req.ToChain {
		return Quote{}, fmt.Errorf("transfer must cross chains")
	}
	if strings.TrimSpace(req.Token) == "" {
		return Quote{}, fmt.Errorf("token required")
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return Quote{}, fmt.Errorf("transfer amount must be a positive integer")
	}
	req.Amount = amount.String()

	var out Quote
	if err := c.gw.Post(ctx, "/bridge/quotes", req, &out); err != nil {
		return Quote{}, fmt.Errorf("bridge quote: %w", err)
	}
	return out, nil
}

// Submit executes a quote. Pass an idempotency key when retrying a submit
// whose outcome is unknown; otherwise one is generated per attempt.
func (c *Client) Submit(ctx context.Context, req SubmitRequest, opts ...gateway.RequestOption) (Transfer, error) {
	if strings.TrimSpace(req.QuoteID) == "" {
		return Transfer{}, fmt.Errorf("quote id required")
	}
	if strings.TrimSpace(req.FromAddress) == "" || strings.TrimSpace(req.ToAddress) == "" {
		return Transfer{}, fmt.Errorf("both addresses required")
	}
	var out Transfer
	if err := c.gw.Post(ctx, "/bridge/transfers", req, &out, opts...); err != nil {
		return Transfer{}, fmt.Errorf("submit transfer: %w", err)
	}
	return out, nil
}

// Status fetches the current state of a transfer. Status reads are not
// cached: callers poll them for progress.
func (c *Client) Status(ctx context.Context, transferID string) (Transfer, error) {
	if strings.TrimSpace(transferID) == "" {
		return Transfer{}, fmt.Errorf("transfer id required")
	}
	var out Transfer
	if err := c.gw.Get(ctx, "/bridge/transfers/"+url.PathEscape(transferID), nil, &out); err != nil {
		return Transfer{}, fmt.Errorf("transfer status %s: %w", transferID, err)
	}
	return out, nil
}

// WaitForCompletion polls a transfer until it reaches a terminal state or
// ctx is done.
func (c *Client) WaitForCompletion(ctx context.Context, transferID string, interval time.Duration) (Transfer, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		transfer, err := c.Status(ctx, transferID)
		if err != nil {
			return Transfer{}, err
		}
		if transfer.Done() {
			return transfer, nil
		}
		select {
		case <-ctx.Done():
			return transfer, ctx.Err()
		case <-ticker.C:
		}
	}
}
