// internal/workers/product-query/search-orchestrator/backends/engines.go
package backends

import (
	"context"
	"net/url"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

const (
	VectorEngineName  = "vector"
	KeywordEngineName = "keyword"
)

// VectorEngine queries the semantic product search endpoint.
type VectorEngine struct {
	client *httpclient.Client
	limit  int
}

func NewVectorEngine(client *httpclient.Client, limit int) *VectorEngine {
	return &VectorEngine{client: client, limit: limit}
}

func (e *VectorEngine) Name() string { return VectorEngineName }

func (e *VectorEngine) Search(ctx context.Context, term string) models.EngineOutcome {
	query := url.Values{}
	query.Set("query", term)
	query.Set("limit", itoa(e.limit))

	var resp itemsResponse
	if err := e.client.GetJSON(ctx, "/api/products/search", query, &resp); err != nil {
		return outcomeFromError(e.Name(), err)
	}
	return models.NewSuccessOutcome(e.Name(), toRecords(resp.Items))
}

// KeywordEngine queries the plain term search endpoint. Its items usually
// carry only an id and a part number.
type KeywordEngine struct {
	client   *httpclient.Client
	pageSize int
}

func NewKeywordEngine(client *httpclient.Client, pageSize int) *KeywordEngine {
	return &KeywordEngine{client: client, pageSize: pageSize}
}

func (e *KeywordEngine) Name() string { return KeywordEngineName }

func (e *KeywordEngine) Search(ctx context.Context, term string) models.EngineOutcome {
	query := url.Values{}
	query.Set("term", term)
	query.Set("page_size", itoa(e.pageSize))
	query.Set("page", "1")

	var resp itemsResponse
	if err := e.client.GetJSON(ctx, "/api/search", query, &resp); err != nil {
		return outcomeFromError(e.Name(), err)
	}
	return models.NewSuccessOutcome(e.Name(), toRecords(resp.Items))
}

// outcomeFromError treats a not-found answer as an empty result and
// everything else as a failed engine.
func outcomeFromError(engine string, err error) models.EngineOutcome {
	if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
		return models.NewEmptyOutcome(engine)
	}
	return models.NewFailureOutcome(engine, err)
}
