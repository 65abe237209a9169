// internal/workers/product-query/pattern-matcher/config.go
package patternmatcher

type Config struct {
	PriceKeywords []string
	StoreKeywords []string
	SearchPhrases []string
	// UnitWords are letter suffixes that turn a number into a size or
	// feature ("3-inch", "50lbs") rather than a catalog identifier.
	UnitWords     []string
	// Part numbers are compared with hyphens removed.
	MinPartLength int
	MaxPartLength int
}

func LoadConfig() *Config {
	return &Config{
		PriceKeywords: []string{"price", "prices", "pricing", "cost", "costs", "how much"},
		StoreKeywords: []string{"hours", "location", "locations", "address", "addresses", "store", "stores"},
		SearchPhrases: []string{"do you have", "do you sell", "do you carry", "search for", "looking for", "show me", "find me"},
		UnitWords:     []string{
			"IN", "INCH", "INCHES", "FT", "FOOT", "FEET", "MM", "CM",
			"LB", "LBS", "POUND", "POUNDS", "OZ", "QT", "GAL", "GALLON", "GALLONS",
			"HP", "V", "VOLT", "W", "WATT", "AMP", "GPM", "PSI",
			"SPEED", "WAY", "PORT", "PACK", "PK", "PC", "PCS", "YR", "YEAR",
		},
		MinPartLength: 5,
		MaxPartLength: 20,
	}
}
