package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-query-router/internal/common/config"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/models"
)

var fastPolicy = ConnectPolicy{Attempts: 1, InitialDelay: time.Millisecond}

func createTestConfig(baseURL string) *config.Config {
	return &config.Config{
		App: config.AppConfig{QueryTimeout: 5000},
		Backends: config.BackendsConfig{
			BaseURL:        baseURL,
			Timeout:        1000,
			MaxRetries:     0,
			RetryBaseDelay: 1,
			RetryMaxDelay:  5,
			MaxConcurrent:  4,
		},
		Search: config.SearchConfig{
			PrimaryEngine:   config.EngineVector,
			SecondaryEngine: config.EngineKeyword,
			PrimaryLimit:    3,
			SecondaryLimit:  5,
		},
		Stores: config.StoresConfig{
			Source:    config.StoreSourceHTTP,
			Latitude:  33.7490,
			Longitude: -84.3880,
			Radius:    50,
			PageSize:  5,
		},
		Formatter: config.FormatterConfig{MaxRecords: 5, MaxMedia: 3},
		Analytics: config.AnalyticsConfig{Stream: "query-outcomes", MaxLen: 100},
	}
}

func storesServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/api/stores/search", r.URL.Path) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"stores":[{
			"name":"Heritage Marietta",
			"address":{"street":"1 Main St","city":"Marietta","state":"GA","zip":"30060"},
			"hours":{"monday":{"open":"8:00","close":"17:00"}}
		}]}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuild_HTTPBackendsWithAnalytics(t *testing.T) {
	mr := miniredis.RunT(t)
	server := storesServer(t)

	cfg := createTestConfig(server.URL)
	cfg.Analytics.Enabled = true
	cfg.Database.Redis.Address = mr.Addr()

	a, err := Build(context.Background(), cfg, fastPolicy, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer a.Close()

	resp := a.Manager.Handle(context.Background(), models.NewQuery("store hours", "42", time.Time{}))

	assert.Equal(t, models.IntentStoreInfo, resp.Intent)
	assert.Contains(t, resp.Text, "Heritage Marietta")
	assert.Contains(t, resp.Text, "Monday: 8:00 - 17:00")

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	n, err := client.XLen(context.Background(), "query-outcomes").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.NoError(t, a.Ready(context.Background()))
}

func TestBuild_WithoutPlannerAnswersUnmatchedAsUnknown(t *testing.T) {
	server := storesServer(t)

	a, err := Build(context.Background(), createTestConfig(server.URL), fastPolicy, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	defer a.Close()

	resp := a.Manager.Handle(context.Background(), models.NewQuery("tell me a joke", "42", time.Time{}))
	assert.Equal(t, models.IntentUnknown, resp.Intent)
	assert.NoError(t, a.Ready(context.Background()))
}

func TestBuild_JobTimeoutFollowsQueryTimeout(t *testing.T) {
	server := storesServer(t)
	cfg := createTestConfig(server.URL)
	cfg.App.QueryTimeout = 60000

	a, err := Build(context.Background(), cfg, fastPolicy, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Jobs)
	assert.Equal(t, 70*time.Second, a.Jobs.Timeout())
}

func TestBuild_MissingProductIndexFailsReadiness(t *testing.T) {
	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.URL.Path == "/products" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer es.Close()

	cfg := createTestConfig(storesServer(t).URL)
	cfg.Search.PrimaryEngine = config.EngineElasticsearch
	cfg.Search.ElasticsearchIndex = "products"
	cfg.Database.Elasticsearch.Addresses = []string{es.URL}

	a, err := Build(context.Background(), cfg, fastPolicy, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	defer a.Close()

	err = a.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `product index "products" does not exist`)
}

func TestBuild_UnreachableStores(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		errMsg string
	}{
		{
			name: "redis",
			mutate: func(cfg *config.Config) {
				cfg.Analytics.Enabled = true
				cfg.Database.Redis.Address = "127.0.0.1:1"
			},
			errMsg: "Redis connection failed after 1 attempts",
		},
		{
			name: "postgres",
			mutate: func(cfg *config.Config) {
				cfg.Stores.Source = config.StoreSourcePostgres
				cfg.Database.Postgres = config.PostgresConfig{
					Host: "127.0.0.1", Port: 1, Database: "stores", User: "router", SSLMode: "disable",
				}
			},
			errMsg: "PostgreSQL connection failed after 1 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig("http://127.0.0.1:1")
			tt.mutate(cfg)

			a, err := Build(context.Background(), cfg, fastPolicy, nil, logger.NewNoOpLogger())

			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuild_InvalidEngine(t *testing.T) {
	cfg := createTestConfig("http://127.0.0.1:1")
	cfg.Search.SecondaryEngine = "bing"

	_, err := Build(context.Background(), cfg, fastPolicy, nil, logger.NewNoOpLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown engine "bing"`)
}

func TestConnectWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		ping := func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}

		err := connectWithRetry(context.Background(), ConnectPolicy{Attempts: 5, InitialDelay: time.Millisecond}, ping, logger.NewNoOpLogger(), "test")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		ping := func(context.Context) error {
			calls++
			return errors.New("connection refused")
		}

		err := connectWithRetry(context.Background(), ConnectPolicy{Attempts: 3, InitialDelay: time.Millisecond}, ping, logger.NewNoOpLogger(), "test")

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ping := func(context.Context) error {
			cancel()
			return errors.New("connection refused")
		}

		err := connectWithRetry(ctx, ConnectPolicy{Attempts: 5, InitialDelay: time.Hour}, ping, logger.NewNoOpLogger(), "test")

		assert.ErrorIs(t, err, context.Canceled)
	})
}
