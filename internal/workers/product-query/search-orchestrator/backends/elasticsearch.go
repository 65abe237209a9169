// internal/workers/product-query/search-orchestrator/backends/elasticsearch.go
package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

const ElasticsearchEngineName = "elasticsearch"

// ElasticsearchEngine runs a weighted multi_match over the product index.
// The client must be built with retries disabled; retries follow policy.
type ElasticsearchEngine struct {
	client *elasticsearch.Client
	index  string
	limit  int
	policy httpclient.RetryPolicy
}

func NewElasticsearchEngine(client *elasticsearch.Client, index string, limit int, policy httpclient.RetryPolicy) *ElasticsearchEngine {
	return &ElasticsearchEngine{client: client, index: index, limit: limit, policy: policy}
}

func (e *ElasticsearchEngine) Name() string { return ElasticsearchEngineName }

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string      `json:"_id"`
			Source productItem `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildProductQuery(term string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"product_name^3", "brand^2", "part_number^2", "description"},
				"type":   "best_fields",
			},
		},
	}
}

func (e *ElasticsearchEngine) Search(ctx context.Context, term string) models.EngineOutcome {
	body, err := json.Marshal(buildProductQuery(term, e.limit))
	if err != nil {
		return models.NewFailureOutcome(e.Name(), apperrors.NewInternalError(err))
	}

	var records []models.ProductRecord
	err = httpclient.Retry(ctx, e.policy, e.Name(), func(ctx context.Context) error {
		req := esapi.SearchRequest{
			Index: []string{e.index},
			Body:  bytes.NewReader(body),
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			return httpclient.ClassifyTransportError(e.Name(), err)
		}
		defer res.Body.Close()

		if res.IsError() {
			_, _ = io.Copy(io.Discard, res.Body)
			return httpclient.ClassifyStatus(e.Name(), res.StatusCode, e.index)
		}

		var r esSearchResponse
		if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
			return apperrors.NewMalformedPayloadError(e.Name(), fmt.Errorf("decode hits: %w", err))
		}

		records = records[:0]
		for _, hit := range r.Hits.Hits {
			item := hit.Source
			if item.ID == "" {
				item.ID = flexString(hit.ID)
			}
			records = append(records, item.toRecord())
		}
		return nil
	})
	if err != nil {
		return outcomeFromError(e.Name(), err)
	}
	return models.NewSuccessOutcome(e.Name(), records)
}
