package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backends:
  base_url: http://localhost:8000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backends.BaseURL)
	assert.Equal(t, 2, cfg.Backends.MaxRetries)
	assert.Equal(t, 8000, cfg.Backends.Timeout)
	assert.Equal(t, 8, cfg.Backends.MaxConcurrent)
	assert.Equal(t, 10*time.Second, GetDuration(cfg.LLM.Timeout))
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, EngineVector, cfg.Search.PrimaryEngine)
	assert.Equal(t, EngineKeyword, cfg.Search.SecondaryEngine)
	assert.Equal(t, 3, cfg.Formatter.MaxMedia)
	assert.Equal(t, 5, cfg.Formatter.MaxRecords)
	assert.Equal(t, StoreSourceHTTP, cfg.Stores.Source)
	assert.InDelta(t, 33.7490, cfg.Stores.Latitude, 0.0001)
	assert.Equal(t, 32, cfg.Transport.MaxConcurrentQueries)
	assert.Equal(t, "product-query-router", cfg.Observability.ServiceName)
}

func TestLoadFromFile_ExplicitZeroRetries(t *testing.T) {
	path := writeConfig(t, `
backends:
  base_url: http://localhost:8000
  max_retries: 0
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Backends.MaxRetries)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_QUERY_API", "http://api.internal:9000")
	t.Setenv("PRICING_TOKEN", "secret-token")

	path := writeConfig(t, `
backends:
  base_url: ${TEST_QUERY_API}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal:9000", cfg.Backends.BaseURL)
	assert.Equal(t, "secret-token", cfg.Backends.PricingToken)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing base url",
			body:    "logging:\n  level: debug\n",
			wantErr: "backends.base_url is required",
		},
		{
			name: "unknown engine",
			body: `
backends:
  base_url: http://x
search:
  primary_engine: bing
`,
			wantErr: "search.primary_engine",
		},
		{
			name: "same engine twice",
			body: `
backends:
  base_url: http://x
search:
  primary_engine: keyword
  secondary_engine: keyword
`,
			wantErr: "must differ",
		},
		{
			name: "elasticsearch without addresses",
			body: `
backends:
  base_url: http://x
search:
  secondary_engine: elasticsearch
`,
			wantErr: "database.elasticsearch.addresses",
		},
		{
			name: "postgres store source without db",
			body: `
backends:
  base_url: http://x
stores:
  source: postgres
`,
			wantErr: "stores.source=postgres",
		},
		{
			name: "negative retries",
			body: `
backends:
  base_url: http://x
  max_retries: -1
`,
			wantErr: "max_retries",
		},
		{
			name: "camunda enabled without broker",
			body: `
backends:
  base_url: http://x
camunda:
  enabled: true
`,
			wantErr: "camunda.broker_address",
		},
	}

	t.Setenv("QUERY_API_URL", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "stores", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=stores sslmode=disable", p.GetDSN())
}

func TestLoadFromFile_UnsetPlaceholderIsEmpty(t *testing.T) {
	t.Setenv("QUERY_API_URL", "")

	path := writeConfig(t, `
backends:
  base_url: ${SURELY_UNSET_QUERY_API}
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backends.base_url is required")
}
