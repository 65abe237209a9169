// internal/models/records.go
package models

// ProductRecord is one catalog entry as returned by a product engine or the
// direct part lookup.
type ProductRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Brand          string `json:"brand,omitempty"`
	PartNumber     string `json:"partNumber,omitempty"`
	Description    string `json:"description,omitempty"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	// Link may be relative to the storefront base URL.
	Link string `json:"link,omitempty"`
}

// PriceRecord is a pricing answer for one part.
type PriceRecord struct {
	PartNumber        string  `json:"partNumber"`
	Name              string  `json:"name,omitempty"`
	Brand             string  `json:"brand,omitempty"`
	Price             float64 `json:"price"`
	InStock           bool    `json:"inStock"`
	AvailableQuantity int     `json:"availableQuantity"`
}

type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

type StoreHours struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// StoreRecord is one store location. Hours keep the order the backend used.
type StoreRecord struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Address       Address      `json:"address"`
	Phone         string       `json:"phone,omitempty"`
	Email         string       `json:"email,omitempty"`
	DistanceMiles float64      `json:"distanceMiles,omitempty"`
	Hours         []StoreHours `json:"hours,omitempty"`
}

// SearchResult carries the records for one query in backend order. Exactly
// one of the record slices is populated, matching Intent.
type SearchResult struct {
	Intent   Intent          `json:"intent"`
	Source   string          `json:"source"`
	Products []ProductRecord `json:"products,omitempty"`
	Prices   []PriceRecord   `json:"prices,omitempty"`
	Stores   []StoreRecord   `json:"stores,omitempty"`
}

// Len is the number of records regardless of kind.
func (r SearchResult) Len() int {
	return len(r.Products) + len(r.Prices) + len(r.Stores)
}

func (r SearchResult) Empty() bool {
	return r.Len() == 0
}
