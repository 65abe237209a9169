// internal/workers/product-query/agent-manager/config.go
package agentmanager

import "time"

type Config struct {
	// QueryTimeout bounds one full pipeline turn, planner and backends included.
	QueryTimeout time.Duration
	// AnalyticsTimeout bounds the outcome write that follows each turn.
	AnalyticsTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		QueryTimeout:     30 * time.Second,
		AnalyticsTimeout: 2 * time.Second,
	}
}

// completionMargin is the time a job keeps after the pipeline turn to send
// its complete or fail command.
const completionMargin = 10 * time.Second

type JobConfig struct {
	// Timeout bounds a workflow job, completion command included.
	Timeout time.Duration
}

// NewJobConfig sizes the job timeout from the query timeout so the turn
// always ends before the job context does.
func NewJobConfig(queryTimeout time.Duration) *JobConfig {
	if queryTimeout <= 0 {
		queryTimeout = LoadConfig().QueryTimeout
	}
	return &JobConfig{Timeout: queryTimeout + completionMargin}
}
