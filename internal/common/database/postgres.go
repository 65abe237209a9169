// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"product-query-router/internal/common/config"
)

// StoreDirectory is the PostgreSQL pool behind the postgres store source.
// Store lookups are short reads, so idle connections are recycled quickly.
type StoreDirectory struct {
	DB *sql.DB
}

// OpenStoreDirectory prepares the pool without dialling; use Ping to
// connect.
func OpenStoreDirectory(cfg config.PostgresConfig) (*StoreDirectory, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open store directory: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxIdleTime(time.Minute)
	db.SetConnMaxLifetime(15 * time.Minute)

	return &StoreDirectory{DB: db}, nil
}

func (s *StoreDirectory) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("store directory ping failed: %w", err)
	}
	return nil
}

func (s *StoreDirectory) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
