// Package rpc is a JSON-RPC 2.0 client for a Meridian fullnode. It covers
// the read and execution endpoints the SDK needs: object reads, coin
// balances, and transaction-block dry-run and execution.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	meridian "github.com/meridianfi/meridian-go"
	"github.com/meridianfi/meridian-go/ptb"
)

// Client talks JSON-RPC to one fullnode endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger attaches a structured logger; requests are logged at debug
// level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client pointed at the supplied fullnode URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	client := &Client{
		endpoint:   trimmed,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call performs one JSON-RPC call and decodes the result into out. A nil
// out discards the result. Node-side failures surface as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "rpc call", "method", method, "id", reqBody.ID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// ObjectData is an on-chain object read.
type ObjectData struct {
	ID      meridian.Address `json:"objectId"`
	Version uint64           `json:"version"`
	Digest  string           `json:"digest"`
	Type    string           `json:"type"`
	Fields  json.RawMessage  `json:"fields"`
}

// GetObject fetches one object by ID.
func (c *Client) GetObject(ctx context.Context, id meridian.Address) (*ObjectData, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("invalid object id %q", id)
	}
	var out ObjectData
	if err := c.Call(ctx, "chain_getObject", []any{id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance is one coin-type balance owned by an address.
type Balance struct {
	CoinType string `json:"coinType"`
	Total    string `json:"total"`
	Objects  int    `json:"objects"`
}

// GetBalances lists the coin balances owned by an address.
func (c *Client) GetBalances(ctx context.Context, owner meridian.Address) ([]Balance, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	var out []Balance
	if err := c.Call(ctx, "chain_getBalances", []any{owner}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GasUsed breaks down a transaction's gas consumption.
type GasUsed struct {
	Computation string `json:"computation"`
	Storage     string `json:"storage"`
	Rebate      string `json:"rebate"`
}

// ExecuteResult is the node's verdict on a submitted transaction block.
type ExecuteResult struct {
	Digest  string  `json:"digest"`
	Status  string  `json:"status"`
	Error   string  `json:"error,omitempty"`
	GasUsed GasUsed `json:"gasUsed"`
}

// Succeeded reports whether the transaction executed without error.
func (r *ExecuteResult) Succeeded() bool {
	return r != nil && r.Status == "success"
}

// DryRunTransactionBlock simulates a transaction block without committing
// effects.
func (c *Client) DryRunTransactionBlock(ctx context.Context, tx *ptb.TransactionBlock) (*ExecuteResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction block required")
	}
	var out ExecuteResult
	if err := c.Call(ctx, "chain_dryRunTransactionBlock", []any{tx}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteTransactionBlock submits a signed transaction block for execution.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, tx *ptb.TransactionBlock, signature string) (*ExecuteResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction block required")
	}
	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("signature required")
	}
	var out ExecuteResult
	if err := c.Call(ctx, "chain_executeTransactionBlock", []any{tx, signature}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
