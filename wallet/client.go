// Package wallet ties the Meridian module clients together behind one
// composable client: balances, portfolio valuation, and transaction
// building and execution against a fullnode.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/bridge"
	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/lending"
	"github.com/meridianfi/meridian-go/memo"
	"github.com/meridianfi/meridian-go/oracle"
	"github.com/meridianfi/meridian-go/ptb"
	"github.com/meridianfi/meridian-go/rewards"
	"github.com/meridianfi/meridian-go/rpc"
	"github.com/meridianfi/meridian-go/swap"
)

// DefaultBalanceTTL is the freshness window for balance reads.
const DefaultBalanceTTL = 10 * time.Second

// Client is the composed wallet client. Construct one per network with New;
// it is safe for concurrent use.
type Client struct {
	network meridian.Network
	node    *rpc.Client
	gw      *gateway.Client

	lending *lending.Client
	swap    *swap.Client
	oracle  *oracle.Client
	rewards *rewards.Client
	bridge  *bridge.Client

	balances func(context.Context, string, ...memo.CallOption) ([]rpc.Balance, error)
}

type config struct {
	fullNodeURL string
	gatewayURL  string
	httpClient  *http.Client
	logger      *slog.Logger
	observer    memo.Observer
	apiKey      string
	apiSecret   string
	balanceTTL  time.Duration
}

// Option configures the client.
type Option func(*config)

// WithFullNodeURL overrides the network's default fullnode endpoint.
func WithFullNodeURL(u string) Option {
	return func(c *config) { c.fullNodeURL = u }
}

// WithGatewayURL overrides the network's default backend endpoint.
func WithGatewayURL(u string) Option {
	return func(c *config) { c.gatewayURL = u }
}

// WithHTTPClient sets the HTTP client shared by all transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithLogger attaches a structured logger to all transports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithObserver attaches a cache observer to every memoized read across all
// module clients.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithCredentials enables signed gateway requests.
func WithCredentials(apiKey, apiSecret string) Option {
	return func(c *config) {
		c.apiKey = apiKey
		c.apiSecret = apiSecret
	}
}

// WithBalanceTTL overrides the freshness window for balance reads.
func WithBalanceTTL(ttl time.Duration) Option {
	return func(c *config) { c.balanceTTL = ttl }
}

// New constructs a wallet client for one network.
func New(network meridian.Network, opts ...Option) (*Client, error) {
	eps, err := network.Endpoints()
	if err != nil {
		return nil, err
	}
	cfg := config{
		fullNodeURL: eps.FullNodeURL,
		gatewayURL:  eps.GatewayURL,
		balanceTTL:  DefaultBalanceTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var rpcOpts []rpc.Option
	var gwOpts []gateway.Option
	if cfg.httpClient != nil {
		rpcOpts = append(rpcOpts, rpc.WithHTTPClient(cfg.httpClient))
		gwOpts = append(gwOpts, gateway.WithHTTPClient(cfg.httpClient))
	}
	if cfg.logger != nil {
		rpcOpts = append(rpcOpts, rpc.WithLogger(cfg.logger))
		gwOpts = append(gwOpts, gateway.WithLogger(cfg.logger))
	}
	if cfg.apiKey != "" {
		gwOpts = append(gwOpts, gateway.WithCredentials(cfg.apiKey, cfg.apiSecret))
	}

	node, err := rpc.New(cfg.fullNodeURL, rpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("fullnode client: %w", err)
	}
	gw, err := gateway.New(cfg.gatewayURL, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}

	lendingClient, err := lending.New(gw, network, lending.WithObserver(cfg.observer))
	if err != nil {
		return nil, fmt.Errorf("lending client: %w", err)
	}
	swapClient, err := swap.New(gw, network, swap.WithObserver(cfg.observer))
	if err != nil {
		return nil, fmt.Errorf("swap client: %w", err)
	}
	oracleClient, err := oracle.New(gw, oracle.WithObserver(cfg.observer))
	if err != nil {
		return nil, fmt.Errorf("oracle client: %w", err)
	}
	rewardsClient, err := rewards.New(gw, network, rewards.WithObserver(cfg.observer))
	if err != nil {
		return nil, fmt.Errorf("rewards client: %w", err)
	}
	bridgeClient, err := bridge.New(gw, bridge.WithObserver(cfg.observer))
	if err != nil {
		return nil, fmt.Errorf("bridge client: %w", err)
	}

	c := &Client{
		network: network,
		node:    node,
		gw:      gw,
		lending: lendingClient,
		swap:    swapClient,
		oracle:  oracleClient,
		rewards: rewardsClient,
		bridge:  bridgeClient,
	}
	c.balances = memo.Wrap1(c.fetchBalances,
		memo.WithName("wallet.balances"), memo.WithTTL(cfg.balanceTTL), memo.WithObserver(cfg.observer))
	return c, nil
}

// Network returns the network this client is bound to.
func (c *Client) Network() meridian.Network { return c.network }

// Node exposes the fullnode RPC client for advanced interactions.
func (c *Client) Node() *rpc.Client { return c.node }

// Gateway exposes the backend REST client for advanced interactions.
func (c *Client) Gateway() *gateway.Client { return c.gw }

// Lending returns the lending module client.
func (c *Client) Lending() *lending.Client { return c.lending }

// Swap returns the aggregator module client.
func (c *Client) Swap() *swap.Client { return c.swap }

// Oracle returns the price feed client.
func (c *Client) Oracle() *oracle.Client { return c.oracle }

// Rewards returns the rewards module client.
func (c *Client) Rewards() *rewards.Client { return c.rewards }

// Bridge returns the bridge module client.
func (c *Client) Bridge() *bridge.Client { return c.bridge }

// Balances lists the coin balances owned by an address, served from cache
// while fresh.
func (c *Client) Balances(ctx context.Context, owner meridian.Address, opts ...memo.CallOption) ([]rpc.Balance, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	return c.balances(ctx, owner.String(), opts...)
}

func (c *Client) fetchBalances(ctx context.Context, owner string) ([]rpc.Balance, error) {
	return c.node.GetBalances(ctx, meridian.Address(owner))
}

// NewTransaction starts a transaction block with the sender set.
func (c *Client) NewTransaction(sender meridian.Address) *ptb.Builder {
	b := ptb.New()
	b.SetSender(sender)
	return b
}

// DryRun finishes the block and simulates it on the fullnode.
func (c *Client) DryRun(ctx context.Context, b *ptb.Builder) (*rpc.ExecuteResult, error) {
	tx, err := b.Finish()
	if err != nil {
		return nil, err
	}
	return c.node.DryRunTransactionBlock(ctx, tx)
}

// Close releases client resources. The client holds no connections of its
// own, so Close is safe to call on a nil or already closed client.
func (c *Client) Close() error { return nil }

// Execute finishes the block and submits it with the given signature.
func (c *Client) Execute(ctx context.Context, b *ptb.Builder, signature string) (*rpc.ExecuteResult, error) {
	tx, err := b.Finish()
	if err != nil {
		return nil, err
	}
	return c.node.ExecuteTransactionBlock(ctx, tx, signature)
}
