// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"product-query-router/internal/common/config"
)

// pingTimeout bounds every connectivity and readiness probe in this package.
const pingTimeout = 5 * time.Second

// ProductIndex is the Elasticsearch cluster that backs the elasticsearch
// search engine, together with the index the engine queries.
type ProductIndex struct {
	Client *elasticsearch.Client
	index  string
}

// NewProductIndex builds the cluster client. The client's own retries are
// off because each engine call already runs under the backend retry policy.
func NewProductIndex(cfg config.ElasticsearchConfig, index string) (*ProductIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("product index client: %w", err)
	}
	return &ProductIndex{Client: client, index: index}, nil
}

// Ping reports whether the cluster answers.
func (p *ProductIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res, err := p.Client.Ping(p.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// Ready also requires the product index to exist. The engine reads a
// missing index as an empty result, so this is where a wrong index name
// shows up.
func (p *ProductIndex) Ready(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res, err := p.Client.Indices.Exists([]string{p.index}, p.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", p.index, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product index %q does not exist", p.index)
	case res.IsError():
		return fmt.Errorf("check index %s: %s", p.index, res.Status())
	}
	return nil
}
