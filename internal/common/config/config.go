// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Product engine names accepted by search.primary_engine / secondary_engine.
const (
	EngineVector        = "vector"
	EngineKeyword       = "keyword"
	EngineElasticsearch = "elasticsearch"
)

// Store record sources accepted by stores.source.
const (
	StoreSourceHTTP     = "http"
	StoreSourcePostgres = "postgres"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Backends      BackendsConfig      `mapstructure:"backends"`
	Search        SearchConfig        `mapstructure:"search"`
	Stores        StoresConfig        `mapstructure:"stores"`
	Formatter     FormatterConfig     `mapstructure:"formatter"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Camunda       CamundaConfig       `mapstructure:"camunda"`
	Transport     TransportConfig     `mapstructure:"transport"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	HTTPAddr     string `mapstructure:"http_addr"`
	QueryTimeout int    `mapstructure:"query_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LLMConfig configures the intent planning call.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	Temperature float64 `mapstructure:"temperature"`
}

// BackendsConfig covers the product, pricing and store HTTP APIs.
type BackendsConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PricingToken   string `mapstructure:"pricing_token"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryBaseDelay int    `mapstructure:"retry_base_delay"` // milliseconds
	RetryMaxDelay  int    `mapstructure:"retry_max_delay"`  // milliseconds
	MaxConcurrent  int    `mapstructure:"max_concurrent"`
}

type SearchConfig struct {
	PrimaryEngine      string `mapstructure:"primary_engine"`
	SecondaryEngine    string `mapstructure:"secondary_engine"`
	PrimaryLimit       int    `mapstructure:"primary_limit"`
	SecondaryLimit     int    `mapstructure:"secondary_limit"`
	ElasticsearchIndex string `mapstructure:"elasticsearch_index"`
}

type StoresConfig struct {
	Source    string  `mapstructure:"source"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Radius    int     `mapstructure:"radius"`
	PageSize  int     `mapstructure:"page_size"`
}

// FormatterConfig bounds response payloads.
type FormatterConfig struct {
	MaxRecords     int    `mapstructure:"max_records"`
	MaxMedia       int    `mapstructure:"max_media"`
	ProductBaseURL string `mapstructure:"product_base_url"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type TransportConfig struct {
	MaxConcurrentQueries int            `mapstructure:"max_concurrent_queries"`
	Telegram             TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Token       string `mapstructure:"token"`
	PollTimeout int    `mapstructure:"poll_timeout"` // seconds
	Debug       bool   `mapstructure:"debug"`
}

// AnalyticsConfig controls the per-query outcome stream in Redis.
type AnalyticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
	MaxLen  int64  `mapstructure:"max_len"`
}

type ObservabilityConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
