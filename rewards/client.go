// Package rewards reads Meridian reward programs and builds claim
// transactions. Reward tables are opaque backend payloads surfaced as typed
// rows.
package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/gateway"
	"github.com/meridianfi/meridian-go/memo"
	"github.com/meridianfi/meridian-go/ptb"
)

// DefaultTTL is the default freshness window for reward reads.
const DefaultTTL = 60 * time.Second

// Program is one live reward emission program.
type Program struct {
	ID         string    `json:"id"`
	PoolSymbol string    `json:"poolSymbol"`
	RewardType string    `json:"rewardType"`
	RatePerDay string    `json:"ratePerDay"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
}

// Active reports whether the program is emitting at the given instant.
func (p Program) Active(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// Claimable is one claimable reward balance for an account.
type Claimable struct {
	ProgramID  string `json:"programId"`
	RewardType string `json:"rewardType"`
	Amount     string `json:"amount"`
}

// Client reads reward state and builds claim transactions.
type Client struct {
	gw   *gateway.Client
	book meridian.AddressBook

	programs  func(context.Context, ...memo.CallOption) ([]Program, error)
	claimable func(context.Context, string, ...memo.CallOption) ([]Claimable, error)
}

type config struct {
	ttl      time.Duration
	observer memo.Observer
}

// Option configures the client.
type Option func(*config)

// WithTTL overrides the freshness window for reward reads.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithObserver attaches a cache observer to all memoized reads.
func WithObserver(o memo.Observer) Option {
	return func(c *config) { c.observer = o }
}

// New constructs a rewards client for one network.
func New(gw *gateway.Client, network meridian.Network, opts ...Option) (*Client, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	book, err := network.Addresses()
	if err != nil {
		return nil, err
	}
	cfg := config{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{gw: gw, book: book}
	c.programs = memo.Wrap0(c.fetchPrograms,
		memo.WithName("rewards.programs"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	c.claimable = memo.Wrap1(c.fetchClaimable,
		memo.WithName("rewards.claimable"), memo.WithTTL(cfg.ttl), memo.WithObserver(cfg.observer))
	return c, nil
}

// Programs lists all reward programs.
func (c *Client) Programs(ctx context.Context, opts ...memo.CallOption) ([]Program, error) {
	return c.programs(ctx, opts...)
}

// ClaimableRewards lists the account's claimable balances across programs.
func (c *Client) ClaimableRewards(ctx context.Context, account meridian.Address, opts ...memo.CallOption) ([]Claimable, error) {
	if !account.Valid() {
		return nil, fmt.Errorf("invalid account address %q", account)
	}
	return c.claimable(ctx, account.String(), opts...)
}

// Claim appends a claim of all pending rewards for one program. The claimed
// coin is returned for further composition.
func (c *Client) Claim(b *ptb.Builder, program Program) (ptb.Argument, error) {
	if strings.TrimSpace(program.ID) == "" {
		return ptb.Argument{}, fmt.Errorf("program id required")
	}
	if strings.TrimSpace(program.RewardType) == "" {
		return ptb.Argument{}, fmt.Errorf("program %s has no reward type", program.ID)
	}
	claimed := b.MoveCall(
		c.book.RewardsPackage.String()+"::incentive::claim",
		[]string{program.RewardType},
		b.SharedObject(c.book.RewardsVault, true),
		b.Pure(program.ID),
		b.SharedObject(c.book.ClockObject, false),
	)
	return claimed, b.Err()
}

func (c *Client) fetchPrograms(ctx context.Context) ([]Program, error) {
	var out []Program
	if err := c.gw.Get(ctx, "/rewards/programs", nil, &out); err != nil {
		return nil, fmt.Errorf("list reward programs: %w", err)
	}
	return out, nil
}

func (c *Client) fetchClaimable(ctx context.Context, account string) ([]Claimable, error) {
	var out []Claimable
	if err := c.gw.Get(ctx, "/rewards/accounts/"+account+"/claimable", nil, &out); err != nil {
		return nil, fmt.Errorf("get claimable for %s: %w", account, err)
	}
	return out, nil
}
