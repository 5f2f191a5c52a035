package bridge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/meridian-go/bridge"
	"github.com/meridianfi/meridian-go/gateway"
)

type backend struct {
	listHits   atomic.Int32
	statusHits atomic.Int32
	submitKeys []string
}

func (be *backend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/bridge/chains":
			be.listHits.Add(1)
			json.NewEncoder(w).Encode([]bridge.Chain{
				{ID: "meridian", Name: "Meridian", NativeToken: "MERA"},
				{ID: "ethereum", Name: "Ethereum", NativeToken: "ETH"},
			})
		case r.URL.Path == "/bridge/tokens/ethereum" || r.URL.Path == "/bridge/tokens":
			be.listHits.Add(1)
			json.NewEncoder(w).Encode([]bridge.Token{{Symbol: "USDC", ChainID: "ethereum", Decimals: 6}})
		case r.URL.Path == "/bridge/quotes":
			json.NewEncoder(w).Encode(bridge.Quote{ID: "q-1", Provider: "wormgate", AmountIn: "100", AmountOut: "99", Fee: "1"})
		case r.URL.Path == "/bridge/transfers" && r.Method == http.MethodPost:
			be.submitKeys = append(be.submitKeys, r.Header.Get("Idempotency-Key"))
			json.NewEncoder(w).Encode(bridge.Transfer{ID: "t-1", QuoteID: "q-1", Status: bridge.StatusPending})
		case r.URL.Path == "/bridge/transfers/t-1":
			n := be.statusHits.Add(1)
			status := bridge.StatusPending
			if n >= 3 {
				status = bridge.StatusCompleted
			}
			json.NewEncoder(w).Encode(bridge.Transfer{ID: "t-1", Status: status})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T) (*bridge.Client, *backend) {
	t.Helper()
	be := &backend{}
	server := httptest.NewServer(be.handler(t))
	t.Cleanup(server.Close)

	gw, err := gateway.New(server.URL)
	require.NoError(t, err)
	client, err := bridge.New(gw)
	require.NoError(t, err)
	return client, be
}

func TestListingsAreMemoized(t *testing.T) {
	client, be := newTestClient(t)
	ctx := context.Background()

	chains, err := client.Chains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	_, err = client.Chains(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), be.listHits.Load())

	_, err = client.Tokens(ctx, "ethereum")
	require.NoError(t, err)
	_, err = client.Tokens(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, int32(2), be.listHits.Load())

	_, err = client.Tokens(ctx, "  ")
	require.Error(t, err)
}

func TestQuoteValidation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	valid := bridge.QuoteRequest{FromChain: "meridian", ToChain: "ethereum", Token: "USDC", Amount: "100"}
	quote, err := client.RequestQuote(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "q-1", quote.ID)

	for name, req := range map[string]bridge.QuoteRequest{
		"missing chain": {ToChain: "ethereum", Token: "USDC", Amount: "100"},
		"same chain":    {FromChain: "ethereum", ToChain: "ethereum", Token: "USDC", Amount: "100"},
		"missing token": {FromChain: "meridian", ToChain: "ethereum", Amount: "100"},
		"zero amount":   {FromChain: "meridian", ToChain: "ethereum", Token: "USDC", Amount: "0"},
	} {
		_, err := client.RequestQuote(ctx, req)
		require.Errorf(t, err, "case %s", name)
	}
}

func TestSubmitIdempotencyKey(t *testing.T) {
	client, be := newTestClient(t)
	ctx := context.Background()

	req := bridge.SubmitRequest{QuoteID: "q-1", FromAddress: "0xa", ToAddress: "0xb"}
	_, err := client.Submit(ctx, req)
	require.NoError(t, err)
	_, err = client.Submit(ctx, req, gateway.WithIdempotencyKey("retry-1"))
	require.NoError(t, err)

	require.Len(t, be.submitKeys, 2)
	assert.NotEmpty(t, be.submitKeys[0])
	assert.Equal(t, "retry-1", be.submitKeys[1])

	_, err = client.Submit(ctx, bridge.SubmitRequest{FromAddress: "0xa", ToAddress: "0xb"})
	require.Error(t, err)
}

func TestWaitForCompletionPolls(t *testing.T) {
	client, be := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transfer, err := client.WaitForCompletion(ctx, "t-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusCompleted, transfer.Status)
	assert.GreaterOrEqual(t, be.statusHits.Load(), int32(3), "status reads must not be cached")
}

func TestWaitForCompletionHonorsContext(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.WaitForCompletion(ctx, "t-1", time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
