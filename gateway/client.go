// Package gateway is the REST client for the Meridian backend API: pool
// records, oracle feeds, reward tables, aggregator quotes and bridge
// endpoints. Payloads are opaque backend data; the SDK modules give them
// typed shapes.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client issues requests against one backend base URL.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	apiSecret  []byte
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
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

// WithCredentials enables HMAC request signing with the given API key pair.
// Without credentials, requests go out unsigned; public read endpoints
// accept them.
func WithCredentials(apiKey, apiSecret string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(apiKey)
		c.apiSecret = []byte(strings.TrimSpace(apiSecret))
	}
}

// WithClock overrides the time source used when signing requests.
// Primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
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

// New constructs a client pointed at the supplied base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("baseURL required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %d: %s", e.Status, e.Message)
}

// RequestOption tweaks request metadata such as the Idempotency-Key header.
type RequestOption func(*requestOptions)

type requestOptions struct {
	idempotencyKey string
}

// WithIdempotencyKey sets the Idempotency-Key header for the request.
// POSTs without one get a generated key.
func WithIdempotencyKey(key string) RequestOption {
	return func(opts *requestOptions) {
		opts.idempotencyKey = strings.TrimSpace(key)
	}
}

// Get performs a GET against path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, opts...)
}

// Post sends payload as JSON to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, payload, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, nil, payload, out, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any, opts ...RequestOption) error {
	options := requestOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		key := options.idempotencyKey
		if key == "" {
			key = uuid.NewString()
		}
		req.Header.Set("Idempotency-Key", key)
	}
	c.sign(req, body)

	c.logger.DebugContext(ctx, "gateway request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var decoded APIError
		if json.Unmarshal(raw, &decoded) == nil && decoded.Message != "" {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// sign adds the HMAC authentication headers when credentials are present.
// The signature covers timestamp, method, path and body.
func (c *Client) sign(req *http.Request, body []byte) {
	if c.apiKey == "" || len(c.apiSecret) == 0 {
		return
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write([]byte(req.Method))
	mac.Write([]byte("\n"))
	mac.Write([]byte(req.URL.Path))
	mac.Write([]byte("\n"))
	mac.Write(body)

	req.Header.Set("X-Meridian-Key", c.apiKey)
	req.Header.Set("X-Meridian-Timestamp", timestamp)
	req.Header.Set("X-Meridian-Signature", hex.EncodeToString(mac.Sum(nil)))
}
