package gateway_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/meridian-go/gateway"
)

func TestGetDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lending/pools", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"total": 3})
	}))
	defer server.Close()

	client, err := gateway.New(server.URL)
	require.NoError(t, err)

	var out struct {
		Total int `json:"total"`
	}
	query := url.Values{"limit": {"50"}}
	require.NoError(t, client.Get(context.Background(), "/lending/pools", query, &out))
	assert.Equal(t, 3, out.Total)
}

func TestPostSetsIdempotencyKey(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Idempotency-Key"))
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, err := gateway.New(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Post(ctx, "/bridge/transfers", map[string]string{"a": "b"}, nil))
	require.NoError(t, client.Post(ctx, "/bridge/transfers", map[string]string{"a": "b"}, nil,
		gateway.WithIdempotencyKey("fixed-key")))

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0], "POST without an explicit key gets a generated one")
	assert.Equal(t, "fixed-key", seen[1])
}

func TestSigningHeaders(t *testing.T) {
	const (
		apiKey    = "key-1"
		apiSecret = "secret-1"
	)
	frozen := time.Unix(1700000000, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiKey, r.Header.Get("X-Meridian-Key"))
		assert.Equal(t, "1700000000", r.Header.Get("X-Meridian-Timestamp"))

		mac := hmac.New(sha256.New, []byte(apiSecret))
		mac.Write([]byte("1700000000\nGET\n/oracle/prices\n"))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-Meridian-Signature"))

		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, err := gateway.New(server.URL,
		gateway.WithCredentials(apiKey, apiSecret),
		gateway.WithClock(func() time.Time { return frozen }),
	)
	require.NoError(t, err)
	require.NoError(t, client.Get(context.Background(), "/oracle/prices", nil, nil))
}

func TestUnsignedWithoutCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Meridian-Key"))
		assert.Empty(t, r.Header.Get("X-Meridian-Signature"))
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, err := gateway.New(server.URL)
	require.NoError(t, err)
	require.NoError(t, client.Get(context.Background(), "/lending/pools", nil, nil))
}

func TestAPIErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"code": "POOL_UNKNOWN", "message": "no such pool"})
	}))
	defer server.Close()

	client, err := gateway.New(server.URL)
	require.NoError(t, err)

	err = client.Get(context.Background(), "/lending/pools/xyz", nil, nil)
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "POOL_UNKNOWN", apiErr.Code)
	assert.Equal(t, "no such pool", apiErr.Message)
}

func TestNewValidation(t *testing.T) {
	_, err := gateway.New("   ")
	require.Error(t, err)
}
