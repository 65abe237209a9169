// internal/models/query.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query is one user turn as delivered by a transport adapter.
type Query struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	UserID     string    `json:"userId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// NewQuery stamps a fresh query with a request id. A zero receivedAt is
// replaced with the current UTC time.
func NewQuery(text, userID string, receivedAt time.Time) Query {
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	return Query{
		ID:         uuid.NewString(),
		Text:       strings.TrimSpace(text),
		UserID:     userID,
		ReceivedAt: receivedAt,
	}
}
