// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"product-query-router/internal/common/config"
)

// OutcomeStream is the Redis connection the analytics recorder appends
// query outcomes to. Each query costs one XADD, so the pool stays small and
// a slow server fails the write instead of holding the query.
type OutcomeStream struct {
	Client *redis.Client
}

func NewOutcomeStream(cfg config.RedisConfig) *OutcomeStream {
	return &OutcomeStream{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     4,
		MaxRetries:   1,
	})}
}

func (s *OutcomeStream) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *OutcomeStream) Close() error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}
