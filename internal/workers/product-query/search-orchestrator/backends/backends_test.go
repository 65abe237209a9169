// internal/workers/product-query/search-orchestrator/backends/backends_test.go
package backends

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

func testPolicy() httpclient.RetryPolicy {
	return httpclient.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func newTestClient(backend, baseURL string, headers map[string]string) *httpclient.Client {
	return httpclient.NewClient(backend, httpclient.Config{
		BaseURL:       baseURL,
		Timeout:       time.Second,
		Retry:         testPolicy(),
		MaxConcurrent: 4,
		Headers:       headers,
	})
}

func TestVectorEngine_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/search", r.URL.Path)
		assert.Equal(t, "pool filter cleaner", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[
			{"product_name":"Filter Cleaner","brand":"Natural Chemistry","part_number":"NC-0520","image_url":"https://img/1.png","heritage_link":"filter-cleaner"},
			{"product_name":"Cartridge Cleaner","brand":"Leslie's","part_number":12345678}
		]}`)
	}))
	defer server.Close()

	engine := NewVectorEngine(newTestClient("products", server.URL, nil), 3)
	outcome := engine.Search(context.Background(), "pool filter cleaner")

	require.True(t, outcome.Succeeded())
	assert.Equal(t, VectorEngineName, outcome.Engine)
	require.Len(t, outcome.Products, 2)
	assert.Equal(t, models.ProductRecord{
		ID:         "NC-0520",
		Name:       "Filter Cleaner",
		Brand:      "Natural Chemistry",
		PartNumber: "NC-0520",
		ImageURL:   "https://img/1.png",
		Link:       "filter-cleaner",
	}, outcome.Products[0])
	assert.Equal(t, "12345678", outcome.Products[1].PartNumber)
}

func TestVectorEngine_Outcomes(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		expectedStatus models.OutcomeStatus
		expectedCode   apperrors.ErrorCode
	}{
		{name: "empty items", status: http.StatusOK, body: `{"items":[]}`, expectedStatus: models.OutcomeEmpty},
		{name: "missing items", status: http.StatusOK, body: `{}`, expectedStatus: models.OutcomeEmpty},
		{name: "not found is empty", status: http.StatusNotFound, body: `{"detail":"none"}`, expectedStatus: models.OutcomeEmpty},
		{name: "malformed payload", status: http.StatusOK, body: `{"items": "nope"}`, expectedStatus: models.OutcomeFailure, expectedCode: apperrors.ErrCodeMalformedPayload},
		{name: "rejected", status: http.StatusBadRequest, body: `{}`, expectedStatus: models.OutcomeFailure, expectedCode: apperrors.ErrCodeBackendRejected},
		{name: "server error", status: http.StatusBadGateway, body: `{}`, expectedStatus: models.OutcomeFailure, expectedCode: apperrors.ErrCodeBackendServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			outcome := NewVectorEngine(newTestClient("products", server.URL, nil), 3).Search(context.Background(), "pump")

			assert.Equal(t, tt.expectedStatus, outcome.Status)
			if tt.expectedCode != "" {
				assert.True(t, apperrors.HasCode(outcome.Err, tt.expectedCode), "got %v", outcome.Err)
			}
		})
	}
}

func TestKeywordEngine_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "skimmer", r.URL.Query().Get("term"))
		assert.Equal(t, "5", r.URL.Query().Get("page_size"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = io.WriteString(w, `{"items":[{"id":991,"part_number":"SP1091LX"},{"id":"992","part_number":"SP1094"}]}`)
	}))
	defer server.Close()

	outcome := NewKeywordEngine(newTestClient("products", server.URL, nil), 5).Search(context.Background(), "skimmer")

	require.True(t, outcome.Succeeded())
	require.Len(t, outcome.Products, 2)
	assert.Equal(t, "991", outcome.Products[0].ID)
	assert.Equal(t, "SP1091LX", outcome.Products[0].Name)
	assert.Equal(t, "SP1091LX", outcome.Products[0].PartNumber)
}

func TestElasticsearchEngine_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/products/_search", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 4, body["size"])
		assert.Contains(t, body["query"], "multi_match")

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"unavailable"}`)
			return
		}
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_id":"doc-1","_source":{"product_name":"Variable Speed Pump","brand":"Hayward","part_number":"SP2303VSP"}}
		]}}`)
	}))
	defer server.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{server.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)

	engine := NewElasticsearchEngine(client, "products", 4, testPolicy())
	outcome := engine.Search(context.Background(), "hayward pump")

	require.True(t, outcome.Succeeded(), "outcome error: %v", outcome.Err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, outcome.Products, 1)
	assert.Equal(t, "doc-1", outcome.Products[0].ID)
	assert.Equal(t, "SP2303VSP", outcome.Products[0].PartNumber)
}

func TestElasticsearchEngine_MissingIndexIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
	}))
	defer server.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}, DisableRetry: true})
	require.NoError(t, err)

	outcome := NewElasticsearchEngine(client, "products", 3, testPolicy()).Search(context.Background(), "pump")
	assert.Equal(t, models.OutcomeEmpty, outcome.Status)
}

func TestPartLookup_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/X7-2291":
			_, _ = io.WriteString(w, `{"product_name":"Pump Lid","brand":"Pentair","part_number":"X7-2291","manufacturer_id":"357151","description":"Clear lid"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	lookup := NewPartLookup(newTestClient("parts", server.URL, nil))

	record, err := lookup.Lookup(context.Background(), "X7-2291")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Pump Lid", record.Name)
	assert.Equal(t, "357151", record.ManufacturerID)
	assert.Equal(t, "X7-2291", record.ID)

	missing, err := lookup.Lookup(context.Background(), "ZZ99999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	blank, err := lookup.Lookup(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestPricingLookup_Price(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/pricing", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req pricingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !assert.Len(t, req.Items, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, PricingUnit, req.Items[0].Unit)

		if req.Items[0].ItemCode == "X7-2291" {
			_, _ = io.WriteString(w, `{"items":[{"price":42.5,"in_stock":true,"available_quantity":7}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	defer server.Close()

	lookup := NewPricingLookup(newTestClient("pricing", server.URL, map[string]string{"Authorization": "Bearer secret"}))

	price, err := lookup.Price(context.Background(), "X7-2291")
	require.NoError(t, err)
	assert.Equal(t, &models.PriceRecord{PartNumber: "X7-2291", Price: 42.5, InStock: true, AvailableQuantity: 7}, price)

	none, err := lookup.Price(context.Background(), "NOPE123")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPricingLookup_RejectedIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewPricingLookup(newTestClient("pricing", server.URL, nil)).Price(context.Background(), "X7-2291")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBackendRejected))
}

func TestHTTPStoreLookup_FindStores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/stores/search", r.URL.Path)
		assert.Equal(t, "33.749", q.Get("latitude"))
		assert.Equal(t, "-84.388", q.Get("longitude"))
		assert.Equal(t, "50", q.Get("radius"))
		assert.Equal(t, "5", q.Get("page_size"))
		assert.Equal(t, "marietta", q.Get("region"))
		_, _ = io.WriteString(w, `{"stores":[{
			"name":"Heritage Marietta",
			"address":{"street":"1 Main St","city":"Marietta","state":"GA","zip":30060},
			"contact":{"phone":"555-0100","email":"marietta@example.com"},
			"location":{"distance":4.25},
			"hours":{"sunday":{"open":"","close":""},"tuesday":{"open":"8:00","close":"17:00"},"monday":{"open":"8:00","close":"17:00"}}
		}]}`)
	}))
	defer server.Close()

	lookup := NewHTTPStoreLookup(newTestClient("stores", server.URL, nil), StoreSearchArea{
		Latitude: 33.7490, Longitude: -84.3880, Radius: 50, PageSize: 5,
	})

	stores, err := lookup.FindStores(context.Background(), " marietta ")
	require.NoError(t, err)
	require.Len(t, stores, 1)

	store := stores[0]
	assert.Equal(t, "Heritage Marietta", store.ID)
	assert.Equal(t, "30060", store.Address.Zip)
	assert.Equal(t, 4.25, store.DistanceMiles)
	assert.Equal(t, []models.StoreHours{
		{Day: "Monday", Open: "8:00", Close: "17:00"},
		{Day: "Tuesday", Open: "8:00", Close: "17:00"},
	}, store.Hours)
}

func TestPostgresStoreLookup_FindStores(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "street", "city", "state", "zip", "phone", "email", "hours"}).
		AddRow("s-1", "Heritage Buckhead", "9 Peachtree Rd", "Atlanta", "GA", "30305", "555-0111", nil,
			[]byte(`{"saturday":{"open":"9:00","close":"13:00"},"friday":{"open":"8:00","close":"17:00"}}`))
	mock.ExpectQuery(`SELECT id, name, street, city, state, zip, phone, email, hours\s+FROM stores`).
		WithArgs("%atlanta%", 5).
		WillReturnRows(rows)

	lookup := NewPostgresStoreLookup(db, 5, testPolicy())
	stores, err := lookup.FindStores(context.Background(), "atlanta")

	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "Heritage Buckhead", stores[0].Name)
	assert.Equal(t, "", stores[0].Email)
	assert.Equal(t, []models.StoreHours{
		{Day: "Friday", Open: "8:00", Close: "17:00"},
		{Day: "Saturday", Open: "9:00", Close: "13:00"},
	}, stores[0].Hours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLookup_RetriesTransientError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM stores`).WithArgs("", 5).WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectQuery(`FROM stores`).WithArgs("", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "street", "city", "state", "zip", "phone", "email", "hours"}))

	stores, err := NewPostgresStoreLookup(db, 5, testPolicy()).FindStores(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, stores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLookup_PermanentErrorIsNotRetried(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM stores`).WithArgs("", 5).
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "stores" does not exist`})

	_, err = NewPostgresStoreLookup(db, 5, testPolicy()).FindStores(context.Background(), "")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBackendRejected))
	assert.False(t, apperrors.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLookup_RetriesAdminShutdown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM stores`).WithArgs("", 5).
		WillReturnError(&pq.Error{Code: "57P01", Message: "terminating connection due to administrator command"})
	mock.ExpectQuery(`FROM stores`).WithArgs("", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "street", "city", "state", "zip", "phone", "email", "hours"}))

	_, err = NewPostgresStoreLookup(db, 5, testPolicy()).FindStores(context.Background(), "")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":12.5,"c":null}`), &v))
	assert.Equal(t, flexString("x"), v.A)
	assert.Equal(t, flexString("12.5"), v.B)
	assert.Equal(t, flexString(""), v.C)
	assert.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &v))
}
