// internal/workers/product-query/response-formatter/formatter.go
package responseformatter

import (
	"errors"
	"fmt"
	"strings"

	"product-query-router/internal/models"
)

// Formatter renders search outcomes into Markdown replies. It performs no
// I/O and the same input always yields the same Response.
type Formatter struct {
	config *Config
}

func New(config *Config) *Formatter {
	if config == nil {
		config = LoadConfig()
	}
	return &Formatter{config: config}
}

// Format renders result, or the failure carried by err. An err that is not
// a *models.SearchFailure yields the generic apology.
func (f *Formatter) Format(intent models.Intent, result models.SearchResult, err error) models.Response {
	if err != nil {
		var failure *models.SearchFailure
		if errors.As(err, &failure) {
			return f.FormatFailure(failure)
		}
		return f.Apology(intent)
	}

	switch intent {
	case models.IntentProductSearch:
		return f.products(intent, result.Products)
	case models.IntentProductInfo:
		return f.productInfo(result.Products)
	case models.IntentProductPrice:
		return f.prices(result.Prices)
	case models.IntentStoreInfo:
		return f.stores(result.Stores)
	default:
		return f.Unknown()
	}
}

// FormatFailure maps a failure kind onto its fixed guidance message.
func (f *Formatter) FormatFailure(failure *models.SearchFailure) models.Response {
	text := GenericApology
	switch failure.Kind {
	case models.FailureInsufficientParameters:
		switch failure.Intent {
		case models.IntentProductPrice:
			text = NeedPartNumberForPrice
		case models.IntentProductInfo:
			text = NeedProductForInfo
		default:
			text = NeedSearchTerm
		}
	case models.FailureNoResults:
		switch failure.Intent {
		case models.IntentStoreInfo:
			text = NoStoresMessage
		case models.IntentProductPrice:
			text = NoPriceMessage
		default:
			text = NoResultsMessage
		}
	case models.FailureBackendUnavailable:
		text = BackendUnavailableMessage
	}
	return newResponse(failure.Intent, text)
}

// Unknown is the reply when neither classifier produced a supported intent.
func (f *Formatter) Unknown() models.Response {
	return newResponse(models.IntentUnknown, UnknownMessage)
}

// Apology is the reply for unexpected faults.
func (f *Formatter) Apology(intent models.Intent) models.Response {
	if intent == "" {
		intent = models.IntentUnknown
	}
	return newResponse(intent, GenericApology)
}

func (f *Formatter) Welcome() models.Response {
	return newResponse(models.IntentUnknown, WelcomeMessage)
}

func newResponse(intent models.Intent, text string) models.Response {
	return models.Response{Text: text, Media: []models.MediaRef{}, Intent: intent}
}

func (f *Formatter) products(intent models.Intent, products []models.ProductRecord) models.Response {
	if len(products) == 0 {
		return f.FormatFailure(models.NewSearchFailure(models.FailureNoResults, intent, nil))
	}
	shown := f.limit(len(products))

	var b strings.Builder
	b.WriteString("Here's what I found:\n\n")
	for _, p := range products[:shown] {
		if p.Name == "" || p.Name == p.PartNumber {
			// keyword results carry only identifiers
			fmt.Fprintf(&b, "🔹 Part Number: %s\n", p.PartNumber)
			if p.ID != "" && p.ID != p.PartNumber {
				fmt.Fprintf(&b, "   ID: %s\n", p.ID)
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "🔹 %s\n", p.Name)
		if p.Brand != "" {
			fmt.Fprintf(&b, "   Brand: %s\n", p.Brand)
		}
		if p.PartNumber != "" {
			fmt.Fprintf(&b, "   Part Number: %s\n", p.PartNumber)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(&b, "   [View Image](%s)\n", p.ImageURL)
		}
		if link := f.productLink(p.Link); link != "" {
			fmt.Fprintf(&b, "   [More Details](%s)\n", link)
		}
		b.WriteString("\n")
	}
	f.writeRemainder(&b, len(products)-shown)

	return models.Response{
		Text:   strings.TrimRight(b.String(), "\n"),
		Media:  f.productMedia(products[:shown]),
		Intent: intent,
	}
}

func (f *Formatter) productInfo(products []models.ProductRecord) models.Response {
	if len(products) == 0 {
		return f.FormatFailure(models.NewSearchFailure(models.FailureNoResults, models.IntentProductInfo, nil))
	}
	shown := f.limit(len(products))

	var b strings.Builder
	b.WriteString("ℹ️ Product Information:\n")
	for i, p := range products[:shown] {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• Name: %s\n", p.Name)
		if p.Brand != "" {
			fmt.Fprintf(&b, "• Brand: %s\n", p.Brand)
		}
		if p.PartNumber != "" {
			fmt.Fprintf(&b, "• Part Number: %s\n", p.PartNumber)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "• Description: %s\n", p.Description)
		}
		if p.ManufacturerID != "" {
			fmt.Fprintf(&b, "• Manufacturer ID: %s\n", p.ManufacturerID)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(&b, "• [View Image](%s)\n", p.ImageURL)
		}
		if link := f.productLink(p.Link); link != "" {
			fmt.Fprintf(&b, "• [More Details](%s)\n", link)
		}
	}
	b.WriteString("\n")
	f.writeRemainder(&b, len(products)-shown)

	return models.Response{
		Text:   strings.TrimRight(b.String(), "\n"),
		Media:  f.productMedia(products[:shown]),
		Intent: models.IntentProductInfo,
	}
}

func (f *Formatter) prices(prices []models.PriceRecord) models.Response {
	if len(prices) == 0 {
		return f.FormatFailure(models.NewSearchFailure(models.FailureNoResults, models.IntentProductPrice, nil))
	}
	shown := f.limit(len(prices))

	var b strings.Builder
	for i, p := range prices[:shown] {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if p.Name != "" {
			fmt.Fprintf(&b, "📊 %s\n", p.Name)
		} else {
			fmt.Fprintf(&b, "📊 Part %s\n", p.PartNumber)
		}
		if p.Brand != "" {
			fmt.Fprintf(&b, "• Brand: %s\n", p.Brand)
		}
		fmt.Fprintf(&b, "• Part Number: %s\n", p.PartNumber)
		fmt.Fprintf(&b, "• Price: $%.2f\n", p.Price)
		fmt.Fprintf(&b, "• Stock Status: %s", stockStatus(p))
	}

	return models.Response{
		Text:   b.String(),
		Media:  []models.MediaRef{},
		Intent: models.IntentProductPrice,
	}
}

func stockStatus(p models.PriceRecord) string {
	status := "Out of Stock"
	if p.InStock {
		status = "In Stock"
	}
	if p.AvailableQuantity > 0 {
		status += fmt.Sprintf(" (%d available)", p.AvailableQuantity)
	}
	return status
}

func (f *Formatter) stores(stores []models.StoreRecord) models.Response {
	if len(stores) == 0 {
		return f.FormatFailure(models.NewSearchFailure(models.FailureNoResults, models.IntentStoreInfo, nil))
	}
	shown := f.limit(len(stores))

	var b strings.Builder
	b.WriteString("📍 Nearby Stores:\n\n")
	for _, s := range stores[:shown] {
		fmt.Fprintf(&b, "🏪 %s\n", s.Name)
		if addr := formatAddress(s.Address); addr != "" {
			fmt.Fprintf(&b, "📍 %s\n", addr)
		}
		if s.Phone != "" {
			fmt.Fprintf(&b, "📞 %s\n", s.Phone)
		}
		if s.Email != "" {
			fmt.Fprintf(&b, "📧 %s\n", s.Email)
		}
		if s.DistanceMiles > 0 {
			fmt.Fprintf(&b, "📏 %.1f miles away\n", s.DistanceMiles)
		}
		if len(s.Hours) > 0 {
			b.WriteString("⏰ Hours:\n")
			for _, h := range s.Hours {
				fmt.Fprintf(&b, "   %s: %s - %s\n", h.Day, h.Open, h.Close)
			}
		}
		b.WriteString("\n")
	}
	f.writeRemainder(&b, len(stores)-shown)

	return models.Response{
		Text:   strings.TrimRight(b.String(), "\n"),
		Media:  []models.MediaRef{},
		Intent: models.IntentStoreInfo,
	}
}

func formatAddress(a models.Address) string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.State, a.Zip), " "))
	return strings.Join(nonEmpty(a.Street, a.City, cityLine), ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// productMedia attaches each product's image, or its page when it has no
// image, up to MaxMedia references.
func (f *Formatter) productMedia(products []models.ProductRecord) []models.MediaRef {
	media := []models.MediaRef{}
	for _, p := range products {
		if len(media) >= f.config.MaxMedia {
			break
		}
		switch {
		case p.ImageURL != "":
			media = append(media, models.MediaRef{Kind: models.MediaImage, URL: p.ImageURL, Title: p.Name})
		case f.productLink(p.Link) != "":
			media = append(media, models.MediaRef{Kind: models.MediaLink, URL: f.productLink(p.Link), Title: p.Name})
		}
	}
	return media
}

func (f *Formatter) productLink(link string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case f.config.ProductBaseURL == "":
		return ""
	default:
		return strings.TrimRight(f.config.ProductBaseURL, "/") + "/" + strings.TrimLeft(link, "/")
	}
}

func (f *Formatter) limit(n int) int {
	if f.config.MaxRecords > 0 && n > f.config.MaxRecords {
		return f.config.MaxRecords
	}
	return n
}

func (f *Formatter) writeRemainder(b *strings.Builder, hidden int) {
	if hidden > 0 {
		fmt.Fprintf(b, "…and %d more.\n", hidden)
	}
}
