// internal/workers/product-query/search-orchestrator/backends/stores.go
package backends

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

const StoresDBName = "stores-db"

// StoreSearchArea is the default search circle used when the caller gives
// no better location.
type StoreSearchArea struct {
	Latitude  float64
	Longitude float64
	Radius    int
	PageSize  int
}

// HTTPStoreLookup searches the store-location API around a fixed point.
type HTTPStoreLookup struct {
	client *httpclient.Client
	area   StoreSearchArea
}

func NewHTTPStoreLookup(client *httpclient.Client, area StoreSearchArea) *HTTPStoreLookup {
	return &HTTPStoreLookup{client: client, area: area}
}

func (l *HTTPStoreLookup) Name() string { return l.client.Backend() }

type storeItem struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Address struct {
		Street string     `json:"street"`
		City   string     `json:"city"`
		State  string     `json:"state"`
		Zip    flexString `json:"zip"`
	} `json:"address"`
	Contact struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"contact"`
	Location struct {
		Distance float64 `json:"distance"`
	} `json:"location"`
	Hours map[string]openingHours `json:"hours"`
}

type storesResponse struct {
	Stores []storeItem `json:"stores"`
}

// FindStores returns stores in backend order. region is passed through as a
// hint; an empty region searches the default area only.
func (l *HTTPStoreLookup) FindStores(ctx context.Context, region string) ([]models.StoreRecord, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(l.area.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(l.area.Longitude, 'f', -1, 64))
	query.Set("radius", itoa(l.area.Radius))
	query.Set("page_size", itoa(l.area.PageSize))
	query.Set("page", "1")
	if region = strings.TrimSpace(region); region != "" {
		query.Set("region", region)
	}

	var resp storesResponse
	err := l.client.GetJSON(ctx, "/api/stores/search", query, &resp)
	if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stores := make([]models.StoreRecord, 0, len(resp.Stores))
	for _, s := range resp.Stores {
		id := strings.TrimSpace(string(s.ID))
		if id == "" {
			id = s.Name
		}
		stores = append(stores, models.StoreRecord{
			ID:   id,
			Name: strings.TrimSpace(s.Name),
			Address: models.Address{
				Street: strings.TrimSpace(s.Address.Street),
				City:   strings.TrimSpace(s.Address.City),
				State:  strings.TrimSpace(s.Address.State),
				Zip:    strings.TrimSpace(string(s.Address.Zip)),
			},
			Phone:         strings.TrimSpace(s.Contact.Phone),
			Email:         strings.TrimSpace(s.Contact.Email),
			DistanceMiles: s.Location.Distance,
			Hours:         orderedHours(s.Hours),
		})
	}
	return stores, nil
}

const storesByRegionQuery = `
	SELECT id, name, street, city, state, zip, phone, email, hours
	FROM stores
	WHERE ($1 = '' OR region ILIKE $1)
	ORDER BY name
	LIMIT $2`

// PostgresStoreLookup reads store records from the stores table. hours is a
// JSON object keyed by weekday.
type PostgresStoreLookup struct {
	db       *sql.DB
	pageSize int
	policy   httpclient.RetryPolicy
}

func NewPostgresStoreLookup(db *sql.DB, pageSize int, policy httpclient.RetryPolicy) *PostgresStoreLookup {
	return &PostgresStoreLookup{db: db, pageSize: pageSize, policy: policy}
}

func (l *PostgresStoreLookup) Name() string { return StoresDBName }

func (l *PostgresStoreLookup) FindStores(ctx context.Context, region string) ([]models.StoreRecord, error) {
	pattern := ""
	if region = strings.TrimSpace(region); region != "" {
		pattern = "%" + region + "%"
	}

	var stores []models.StoreRecord
	err := httpclient.Retry(ctx, l.policy, StoresDBName, func(ctx context.Context) error {
		found, err := l.query(ctx, pattern)
		if err != nil {
			return err
		}
		stores = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (l *PostgresStoreLookup) query(ctx context.Context, pattern string) ([]models.StoreRecord, error) {
	rows, err := l.db.QueryContext(ctx, storesByRegionQuery, pattern, l.pageSize)
	if err != nil {
		return nil, classifyDBError(err)
	}
	defer rows.Close()

	var stores []models.StoreRecord
	for rows.Next() {
		var (
			s     models.StoreRecord
			phone sql.NullString
			email sql.NullString
			hours []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Address.Street, &s.Address.City,
			&s.Address.State, &s.Address.Zip, &phone, &email, &hours); err != nil {
			return nil, apperrors.NewMalformedPayloadError(StoresDBName, fmt.Errorf("scan store: %w", err))
		}
		s.Phone = phone.String
		s.Email = email.String

		if len(hours) > 0 {
			var byDay map[string]openingHours
			if err := json.Unmarshal(hours, &byDay); err != nil {
				return nil, apperrors.NewMalformedPayloadError(StoresDBName, fmt.Errorf("decode hours for store %s: %w", s.ID, err))
			}
			s.Hours = orderedHours(byDay)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError(err)
	}
	return stores, nil
}

// classifyDBError retries connection, resource and operator-intervention
// failures (SQLSTATE classes 08, 53, 57) and transaction conflicts (40).
// Any other server error is final.
func classifyDBError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57":
			return apperrors.NewBackendServerError(StoresDBName, 0, err)
		default:
			return apperrors.NewBackendQueryRejectedError(StoresDBName, string(pqErr.Code), err)
		}
	}
	return httpclient.ClassifyTransportError(StoresDBName, err)
}
