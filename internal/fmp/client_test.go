package fmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]ClientOption{WithBaseURL(server.URL), WithLogger(arbor.NewLogger())}, opts...)
	return NewClient("test-key", opts...)
}

func TestClient_Search(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search-symbol", r.URL.Path)
		assert.Equal(t, "601899", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"601899.SS","name":"Zijin Mining Group","currency":"CNY","exchangeFullName":"Shanghai","exchange":"SHH"},
			{"symbol":"2899.HK","name":"Zijin Mining Group","currency":"HKD","exchangeFullName":"HKSE","exchange":"HKSE"}
		]`))
	})

	candidates, err := client.Search(context.Background(), "601899")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "601899.SS", candidates[0].Symbol)
	assert.Equal(t, "Zijin Mining Group", candidates[0].Name)
	assert.Equal(t, "SHH", candidates[0].Exchange)
}

func TestClient_Search_EmptyList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	candidates, err := client.Search(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestClient_Search_ObjectPayloadIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Invalid API KEY."}`))
	})

	_, err := client.Search(context.Background(), "NVDA")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "Invalid API KEY")
}

func TestClient_Search_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "NVDA")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "/search-symbol", apiErr.Endpoint)
}

func TestClient_Search_TooManyRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "NVDA")
	var rateErr *RateLimitError
	assert.True(t, errors.As(err, &rateErr))
}

func TestClient_Search_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	start := time.Now()
	_, err := client.Search(context.Background(), "NVDA")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Search_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol": `))
	})

	_, err := client.Search(context.Background(), "NVDA")
	assert.Error(t, err)
}
