// internal/workers/product-query/pattern-matcher/matcher.go
package patternmatcher

import (
	"regexp"
	"strings"
	"unicode"

	"product-query-router/internal/models"
)

// partToken finds candidate catalog identifiers in upper-cased text:
// alphanumeric runs optionally joined by single hyphens.
var partToken = regexp.MustCompile(`[A-Z0-9]+(?:-[A-Z0-9]+)*`)

// measurement is a number followed by a word, with or without a hyphen.
var measurement = regexp.MustCompile(`^[0-9]+-?([A-Z]+)$`)

// leadingFiller is stripped from the product phrase after a search phrase.
var leadingFiller = regexp.MustCompile(`(?i)^(?:(?:a|an|any|some|the)\s+)+`)

// Matcher is the deterministic first classification tier. It holds only
// compiled patterns and is safe for concurrent use.
type Matcher struct {
	config  *Config
	units   map[string]struct{}
	price   *regexp.Regexp
	store   *regexp.Regexp
	phrases []*regexp.Regexp
}

func New(config *Config) *Matcher {
	if config == nil {
		config = LoadConfig()
	}
	m := &Matcher{
		config: config,
		units:  make(map[string]struct{}, len(config.UnitWords)),
		price:  keywordPattern(config.PriceKeywords),
		store:  keywordPattern(config.StoreKeywords),
	}
	for _, w := range config.UnitWords {
		m.units[strings.ToUpper(w)] = struct{}{}
	}
	for _, phrase := range config.SearchPhrases {
		m.phrases = append(m.phrases, regexp.MustCompile(`(?i)\b`+phrasePattern(phrase)+`\b`))
	}
	return m
}

func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	alts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		alts = append(alts, phrasePattern(k))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Match applies the rules in priority order; the first rule that fires wins.
func (m *Matcher) Match(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoMatch
	}

	if part := m.findPartNumber(text); part != "" {
		intent := models.IntentProductInfo
		if m.price != nil && m.price.MatchString(text) {
			intent = models.IntentProductPrice
		}
		return Result{
			Matched:    true,
			Rule:       RulePartNumber,
			Intent:     intent,
			Parameters: models.Parameters{models.ParamPartNumber: part},
		}
	}

	if m.store != nil && m.store.MatchString(text) {
		return Result{
			Matched:    true,
			Rule:       RuleStoreKeyword,
			Intent:     models.IntentStoreInfo,
			Parameters: models.Parameters{},
		}
	}

	for _, phrase := range m.phrases {
		loc := phrase.FindStringIndex(text)
		if loc == nil {
			continue
		}
		params := models.Parameters{}
		if name := productPhrase(text[loc[1]:]); name != "" {
			params[models.ParamProductName] = name
		} else {
			params[models.ParamQuery] = text
		}
		return Result{
			Matched:    true,
			Rule:       RuleProductSearch,
			Intent:     models.IntentProductSearch,
			Parameters: params,
		}
	}

	return NoMatch
}

// findPartNumber returns the first token that looks like a catalog
// identifier: within the length bounds, containing a digit, and mixing in
// letters unless it is a long unhyphenated all-digit code. Sizes, feature
// words and hyphenated digit groups such as phone numbers are skipped.
func (m *Matcher) findPartNumber(text string) string {
	for _, token := range partToken.FindAllString(strings.ToUpper(text), -1) {
		compact := strings.ReplaceAll(token, "-", "")
		if len(compact) < m.config.MinPartLength || len(compact) > m.config.MaxPartLength {
			continue
		}
		var hasDigit, hasLetter bool
		for _, r := range compact {
			switch {
			case unicode.IsDigit(r):
				hasDigit = true
			case unicode.IsLetter(r):
				hasLetter = true
			}
		}
		if !hasDigit {
			continue
		}
		if !hasLetter {
			if !strings.Contains(token, "-") && len(compact) >= 8 {
				return token
			}
			continue
		}
		if m.isMeasurement(token) {
			continue
		}
		return token
	}
	return ""
}

// isMeasurement reports tokens like 3-INCH, 50LBS or 2-SPEED: a number
// followed by a unit word, or by any word of four or more letters.
func (m *Matcher) isMeasurement(token string) bool {
	sub := measurement.FindStringSubmatch(token)
	if sub == nil {
		return false
	}
	if _, ok := m.units[sub[1]]; ok {
		return true
	}
	return len(sub[1]) >= 4
}

func productPhrase(rest string) string {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimRight(rest, "?!. ")
	rest = leadingFiller.ReplaceAllString(rest, "")
	return strings.TrimSpace(rest)
}
