// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// over it and lets environment variables override both.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory, then the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values. Unset
// variables expand to "" so overrideEmptyConfig and validation see them.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// setDefaults registers values where zero is a legitimate setting, so they
// cannot be filled by applyDefaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backends.max_retries", 2)
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("analytics.enabled", false)
	v.SetDefault("camunda.enabled", false)
	v.SetDefault("transport.telegram.enabled", false)
}

func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.LLM.APIKey, "OPENAI_API_KEY"},
		{&cfg.LLM.BaseURL, "OPENAI_BASE_URL"},
		{&cfg.Backends.BaseURL, "QUERY_API_URL"},
		{&cfg.Backends.PricingToken, "PRICING_TOKEN"},
		{&cfg.Transport.Telegram.Token, "TELEGRAM_BOT_TOKEN"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "product-query-router"
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = ":8080"
	}
	if cfg.App.QueryTimeout == 0 {
		cfg.App.QueryTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 10000
	}

	if cfg.Backends.Timeout == 0 {
		cfg.Backends.Timeout = 8000
	}
	if cfg.Backends.RetryBaseDelay == 0 {
		cfg.Backends.RetryBaseDelay = 100
	}
	if cfg.Backends.RetryMaxDelay == 0 {
		cfg.Backends.RetryMaxDelay = 2000
	}
	if cfg.Backends.MaxConcurrent == 0 {
		cfg.Backends.MaxConcurrent = 8
	}

	if cfg.Search.PrimaryEngine == "" {
		cfg.Search.PrimaryEngine = EngineVector
	}
	if cfg.Search.SecondaryEngine == "" {
		cfg.Search.SecondaryEngine = EngineKeyword
	}
	if cfg.Search.PrimaryLimit == 0 {
		cfg.Search.PrimaryLimit = 3
	}
	if cfg.Search.SecondaryLimit == 0 {
		cfg.Search.SecondaryLimit = 5
	}
	if cfg.Search.ElasticsearchIndex == "" {
		cfg.Search.ElasticsearchIndex = "products"
	}

	if cfg.Stores.Source == "" {
		cfg.Stores.Source = StoreSourceHTTP
	}
	if cfg.Stores.Latitude == 0 && cfg.Stores.Longitude == 0 {
		cfg.Stores.Latitude = 33.7490
		cfg.Stores.Longitude = -84.3880
	}
	if cfg.Stores.Radius == 0 {
		cfg.Stores.Radius = 50
	}
	if cfg.Stores.PageSize == 0 {
		cfg.Stores.PageSize = 5
	}

	if cfg.Formatter.MaxRecords == 0 {
		cfg.Formatter.MaxRecords = 5
	}
	if cfg.Formatter.MaxMedia == 0 {
		cfg.Formatter.MaxMedia = 3
	}
	if cfg.Formatter.ProductBaseURL == "" {
		cfg.Formatter.ProductBaseURL = "https://www.heritagepoolplus.com"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}

	if cfg.Transport.MaxConcurrentQueries == 0 {
		cfg.Transport.MaxConcurrentQueries = 32
	}
	if cfg.Transport.Telegram.PollTimeout == 0 {
		cfg.Transport.Telegram.PollTimeout = 60
	}

	if cfg.Analytics.Stream == "" {
		cfg.Analytics.Stream = "query-outcomes"
	}
	if cfg.Analytics.MaxLen == 0 {
		cfg.Analytics.MaxLen = 100000
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.TraceSampleRatio == 0 {
		cfg.Observability.TraceSampleRatio = 1
	}
}

func validEngine(name string) bool {
	switch name {
	case EngineVector, EngineKeyword, EngineElasticsearch:
		return true
	}
	return false
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Backends.BaseURL == "" {
		return fmt.Errorf("backends.base_url is required")
	}
	if cfg.Backends.MaxRetries < 0 {
		return fmt.Errorf("backends.max_retries must not be negative")
	}
	if cfg.Backends.Timeout < 0 || cfg.LLM.Timeout < 0 || cfg.App.QueryTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if cfg.Backends.MaxConcurrent < 0 {
		return fmt.Errorf("backends.max_concurrent must not be negative")
	}

	if !validEngine(cfg.Search.PrimaryEngine) {
		return fmt.Errorf("search.primary_engine %q is not one of vector, keyword, elasticsearch", cfg.Search.PrimaryEngine)
	}
	if !validEngine(cfg.Search.SecondaryEngine) {
		return fmt.Errorf("search.secondary_engine %q is not one of vector, keyword, elasticsearch", cfg.Search.SecondaryEngine)
	}
	if cfg.Search.PrimaryEngine == cfg.Search.SecondaryEngine {
		return fmt.Errorf("search.primary_engine and search.secondary_engine must differ")
	}
	if cfg.Search.PrimaryLimit < 0 || cfg.Search.SecondaryLimit < 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if (cfg.Search.PrimaryEngine == EngineElasticsearch || cfg.Search.SecondaryEngine == EngineElasticsearch) &&
		len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch engine")
	}

	switch cfg.Stores.Source {
	case StoreSourceHTTP:
	case StoreSourcePostgres:
		pg := cfg.Database.Postgres
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return fmt.Errorf("database.postgres host, database and user are required for stores.source=postgres")
		}
	default:
		return fmt.Errorf("stores.source %q is not one of http, postgres", cfg.Stores.Source)
	}

	if cfg.Formatter.MaxRecords < 0 || cfg.Formatter.MaxMedia < 0 {
		return fmt.Errorf("formatter limits must be positive")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Transport.Telegram.Enabled && cfg.Transport.Telegram.Token == "" {
		return fmt.Errorf("transport.telegram.token is required when telegram is enabled")
	}
	if cfg.Analytics.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when analytics is enabled")
	}

	return nil
}
