// internal/workers/product-query/search-orchestrator/backends/wire.go
package backends

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"product-query-router/internal/models"
)

// flexString accepts a JSON string or number. Catalog ids and zip codes
// arrive as either depending on the backend.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// productItem is the catalog item shape shared by the vector search, the
// keyword search, the direct part lookup and the search index documents.
type productItem struct {
	ID             flexString `json:"id"`
	ProductName    string     `json:"product_name"`
	Brand          string     `json:"brand"`
	PartNumber     flexString `json:"part_number"`
	Description    string     `json:"description"`
	ManufacturerID flexString `json:"manufacturer_id"`
	ImageURL       string     `json:"image_url"`
	HeritageLink   string     `json:"heritage_link"`
}

func (p productItem) toRecord() models.ProductRecord {
	partNumber := strings.TrimSpace(string(p.PartNumber))
	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		id = partNumber
	}
	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		name = partNumber
	}
	return models.ProductRecord{
		ID:             id,
		Name:           name,
		Brand:          strings.TrimSpace(p.Brand),
		PartNumber:     partNumber,
		Description:    strings.TrimSpace(p.Description),
		ManufacturerID: strings.TrimSpace(string(p.ManufacturerID)),
		ImageURL:       strings.TrimSpace(p.ImageURL),
		Link:           strings.TrimSpace(p.HeritageLink),
	}
}

type itemsResponse struct {
	Items []productItem `json:"items"`
}

func toRecords(items []productItem) []models.ProductRecord {
	records := make([]models.ProductRecord, 0, len(items))
	for _, item := range items {
		record := item.toRecord()
		if record.ID == "" && record.Name == "" {
			continue
		}
		records = append(records, record)
	}
	return records
}

type openingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

var weekdayOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// orderedHours flattens a day-keyed hours object into a stable Monday-first
// list. Days without both times are closed and omitted.
func orderedHours(hours map[string]openingHours) []models.StoreHours {
	days := make([]string, 0, len(hours))
	for day, h := range hours {
		if strings.TrimSpace(h.Open) == "" || strings.TrimSpace(h.Close) == "" {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, iok := weekdayOrder[strings.ToLower(days[i])]
		oj, jok := weekdayOrder[strings.ToLower(days[j])]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return days[i] < days[j]
		}
	})

	out := make([]models.StoreHours, 0, len(days))
	for _, day := range days {
		out = append(out, models.StoreHours{
			Day:   capitalize(day),
			Open:  strings.TrimSpace(hours[day].Open),
			Close: strings.TrimSpace(hours[day].Close),
		})
	}
	return out
}

func capitalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
