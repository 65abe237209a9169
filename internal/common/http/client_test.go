package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "product-query-router/internal/common/errors"
)

func createTestConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Retry: RetryPolicy{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
		MaxConcurrent: 4,
	}
}

type itemsResponse struct {
	Items []map[string]interface{} `json:"items"`
}

func TestClient_GetJSON_StatusHandling(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []int
		body          string
		expectedCalls int32
		expectedCode  apperrors.ErrorCode
	}{
		{
			name:          "success first try",
			statuses:      []int{200},
			body:          `{"items":[{"part_number":"X7-2291"}]}`,
			expectedCalls: 1,
		},
		{
			name:          "recovers after two 5xx",
			statuses:      []int{503, 502, 200},
			body:          `{"items":[]}`,
			expectedCalls: 3,
		},
		{
			name:          "5xx exhausts retries",
			statuses:      []int{500, 500, 500},
			expectedCalls: 3,
			expectedCode:  apperrors.ErrCodeBackendServerError,
		},
		{
			name:          "4xx is not retried",
			statuses:      []int{400},
			expectedCalls: 1,
			expectedCode:  apperrors.ErrCodeBackendRejected,
		},
		{
			name:          "404 is not found",
			statuses:      []int{404},
			expectedCalls: 1,
			expectedCode:  apperrors.ErrCodeResourceNotFound,
		},
		{
			name:          "malformed body is not retried",
			statuses:      []int{200},
			body:          `{"items": [`,
			expectedCalls: 1,
			expectedCode:  apperrors.ErrCodeMalformedPayload,
		},
		{
			name:          "429 is retried",
			statuses:      []int{429, 200},
			body:          `{"items":[]}`,
			expectedCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer server.Close()

			client := NewClient("vector", createTestConfig(server.URL))
			var out itemsResponse
			err := client.GetJSON(context.Background(), "/api/products/search", url.Values{"query": {"pump"}}, &out)

			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
			if tt.expectedCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.expectedCode), "got %v", err)
		})
	}
}

func TestClient_GetJSON_SendsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "pool filter", r.URL.Query().Get("term"))
		assert.Equal(t, "5", r.URL.Query().Get("page_size"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"items":[{"id":"1"}]}`))
	}))
	defer server.Close()

	client := NewClient("keyword", createTestConfig(server.URL+"/"))
	var out itemsResponse
	err := client.GetJSON(context.Background(), "/api/search", url.Values{"term": {"pool filter"}, "page_size": {"5"}}, &out)
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestClient_PostJSON_BodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		items := body["items"].([]interface{})
		assert.Equal(t, "X7-2291", items[0].(map[string]interface{})["item_code"])

		_, _ = w.Write([]byte(`{"items":[{"price":12.5}]}`))
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Headers = map[string]string{"Authorization": "Bearer token-123"}
	client := NewClient("pricing", cfg)

	var out itemsResponse
	err := client.PostJSON(context.Background(), "/api/pricing", map[string]interface{}{
		"items": []map[string]string{{"item_code": "X7-2291", "unit": "EA"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Items[0]["price"])
}

func TestClient_TimeoutIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond
	client := NewClient("vector", cfg)

	err := client.GetJSON(context.Background(), "/slow", nil, &itemsResponse{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBackendTimeout), "got %v", err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_CancellationStopsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Retry.BaseDelay = time.Second
	cfg.Retry.MaxDelay = time.Second
	client := NewClient("vector", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := client.GetJSON(ctx, "/down", nil, &itemsResponse{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	var inFlight, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.MaxConcurrent = 1
	client := NewClient("stores", cfg)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- client.GetJSON(context.Background(), "/api/stores/search", nil, nil) }()
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inFlight))
	close(release)

	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestClient_ConcurrencyLimitHonoursCancellation(t *testing.T) {
	cfg := createTestConfig("http://127.0.0.1:1")
	cfg.MaxConcurrent = 1
	client := NewClient("stores", cfg)
	require.True(t, client.limiter.TryAcquire(1))
	defer client.limiter.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.GetJSON(ctx, "/api/stores/search", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConcurrencyLimit), "got %v", err)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3))
}

func TestRetry_NonStandardErrorIsFinal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 3}, "es", func(ctx context.Context) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
