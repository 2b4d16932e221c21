// Package classify maps raw geodata tags onto dining type, price tier,
// display image, and human-readable labels. Everything here is pure except
// ImagePicker, which is owned by a single discovery run.
package classify

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/spinplate/internal/model"
)

// Tags is the raw key/value tag dictionary attached to a geodata element.
type Tags map[string]string

// Get returns the tag value, or "" when the tag is absent or tags is nil.
func (t Tags) Get(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Has reports whether the tag is present with a non-empty value.
func (t Tags) Has(key string) bool {
	return t.Get(key) != ""
}

// Name returns the normalized venue name used for keyword matching.
func (t Tags) Name() string {
	return normalize(t.Get("name"))
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// normalize lowercases and folds compatibility forms so that keyword
// tables written in plain ASCII match names using typographic punctuation.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = apostrophes.Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// Rule is one predicate in the dining-type decision list.
type Rule struct {
	Name  string
	Match func(Tags) bool
	Type  model.DiningType
}

// Classifier evaluates an ordered rule list built from a RuleSet.
type Classifier struct {
	rules    RuleSet
	ordered  []Rule
	budget   map[string]bool
	barAmens map[string]bool
}

// New builds a Classifier from the given vocabulary.
func New(rs RuleSet) *Classifier {
	c := &Classifier{
		rules:    rs,
		budget:   toSet(rs.BudgetAmenities),
		barAmens: toSet(rs.BarAmenities),
	}
	c.ordered = c.buildRules()
	return c
}

var defaultClassifier = New(DefaultRuleSet())

// Default returns the classifier built from DefaultRuleSet.
func Default() *Classifier { return defaultClassifier }

// Rules returns the ordered decision list. The first matching rule wins;
// the final rule always matches.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *Classifier) buildRules() []Rule {
	takeoutAmens := toSet(c.rules.TakeoutAmenities)
	return []Rule{
		{Name: "bar-amenity", Type: model.DiningBar, Match: func(t Tags) bool {
			return c.barAmens[t.Get("amenity")]
		}},
		{Name: "brewery-tag", Type: model.DiningBar, Match: func(t Tags) bool {
			return t.Get("microbrewery") == "yes" || t.Has("brewery") || t.Get("craft") == "brewery"
		}},
		{Name: "bar-name-word", Type: model.DiningBar, Match: func(t Tags) bool {
			return containsAnyWord(t.Name(), c.rules.BarWords)
		}},
		{Name: "bar-name-phrase", Type: model.DiningBar, Match: func(t Tags) bool {
			return containsAny(t.Name(), c.rules.BarPhrases)
		}},
		{Name: "takeout-chain", Type: model.DiningTakeout, Match: func(t Tags) bool {
			return containsAny(t.Name(), c.rules.TakeoutChains)
		}},
		{Name: "takeout-phrase", Type: model.DiningTakeout, Match: func(t Tags) bool {
			return containsAny(t.Name(), c.rules.TakeoutPhrases)
		}},
		{Name: "takeout-amenity", Type: model.DiningTakeout, Match: func(t Tags) bool {
			return takeoutAmens[t.Get("amenity")]
		}},
		{Name: "dine-in-phrase", Type: model.DiningDineIn, Match: func(t Tags) bool {
			return containsAny(t.Name(), c.rules.DineInPhrases)
		}},
		{Name: "restaurant-takeaway-only", Type: model.DiningTakeout, Match: func(t Tags) bool {
			return t.Get("amenity") == "restaurant" && t.Get("takeaway") == "only"
		}},
		{Name: "restaurant", Type: model.DiningDineIn, Match: func(t Tags) bool {
			return t.Get("amenity") == "restaurant"
		}},
		{Name: "fallback", Type: model.DiningBoth, Match: func(Tags) bool { return true }},
	}
}

// DiningType classifies tags. A nil tag set is "both".
func (c *Classifier) DiningType(tags Tags) model.DiningType {
	if tags == nil {
		return model.DiningBoth
	}
	for _, r := range c.ordered {
		if r.Match(tags) {
			return r.Type
		}
	}
	return model.DiningBoth
}

// PriceTier estimates a price tier. Tier 4 is never produced.
func (c *Classifier) PriceTier(tags Tags) model.PriceTier {
	if c.budget[tags.Get("amenity")] {
		return model.PriceBudget
	}
	cuisine := strings.ToLower(tags.Get("cuisine"))
	if containsAny(cuisine, c.rules.PremiumCuisines) {
		return model.PricePricey
	}
	return model.PriceModerate
}

// IsBarVenue reports whether tags describe a bar or brewery by tag alone.
// Such venues are kept even without a street address.
func (c *Classifier) IsBarVenue(tags Tags) bool {
	return c.barAmens[tags.Get("amenity")] ||
		tags.Get("microbrewery") == "yes" ||
		tags.Get("craft") == "brewery"
}

// ClassifyDiningType classifies tags with the default rules.
func ClassifyDiningType(tags Tags) model.DiningType {
	return defaultClassifier.DiningType(tags)
}

// ClassifyPriceTier estimates a price tier with the default rules.
func ClassifyPriceTier(tags Tags) model.PriceTier {
	return defaultClassifier.PriceTier(tags)
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// containsAnyWord reports whether any needle appears in s bounded by
// non-word characters on both sides.
func containsAnyWord(s string, needles []string) bool {
	for _, n := range needles {
		if containsWord(s, n) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(s[idx:], word)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

func toSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
