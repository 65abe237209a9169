// internal/workers/product-query/response-formatter/config.go
package responseformatter

type Config struct {
	// MaxRecords caps how many records are written into the text.
	MaxRecords int
	// MaxMedia caps the media references attached to one response.
	MaxMedia int
	// ProductBaseURL resolves relative product links.
	ProductBaseURL string
}

func LoadConfig() *Config {
	return &Config{
		MaxRecords:     5,
		MaxMedia:       3,
		ProductBaseURL: "https://www.heritagepoolplus.com",
	}
}
