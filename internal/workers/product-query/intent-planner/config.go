// internal/workers/product-query/intent-planner/config.go
package intentplanner

import "time"

type Config struct {
	// Timeout bounds the single planning call.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
