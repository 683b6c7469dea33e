// Package categorize suggests an expense category from a vendor name and
// description, using keyword rules first and a hosted LLM second.
package categorize

import (
	"strings"
	"unicode"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Rule maps a keyword to a category name. Match is a case-insensitive
// substring of the vendor or description.
type Rule struct {
	Match    string `yaml:"match"`
	Category string `yaml:"category"`
}

// DefaultRules returns keyword rules for common Trinidad & Tobago merchants.
func DefaultRules() []Rule {
	return []Rule{
		{Match: "t&tec", Category: "Utilities"},
		{Match: "wasa", Category: "Utilities"},
		{Match: "flow", Category: "Utilities"},
		{Match: "digicel", Category: "Utilities"},
		{Match: "bmobile", Category: "Utilities"},
		{Match: "massy stores", Category: "Groceries"},
		{Match: "pricesmart", Category: "Groceries"},
		{Match: "hi-lo", Category: "Groceries"},
		{Match: "unipet", Category: "Transport"},
		{Match: "np ", Category: "Transport"},
		{Match: "kfc", Category: "Dining Out"},
		{Match: "royal castle", Category: "Dining Out"},
		{Match: "netflix", Category: "Subscriptions"},
		{Match: "spotify", Category: "Subscriptions"},
		{Match: "pharmacy", Category: "Healthcare"},
	}
}

// Chart is the category lookup the categorizer resolves names against.
type Chart interface {
	ByName(name string) (model.Category, bool)
	Names() []string
}

// RuleCategorizer matches expenses against keyword rules in order.
type RuleCategorizer struct {
	rules []Rule
}

// NewRuleCategorizer creates a RuleCategorizer. Rules with a blank keyword
// are dropped.
func NewRuleCategorizer(rules []Rule) *RuleCategorizer {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Match) == "" {
			continue
		}
		kept = append(kept, Rule{Match: strings.ToLower(r.Match), Category: r.Category})
	}
	return &RuleCategorizer{rules: kept}
}

// Match returns the category name of the first rule that matches.
func (rc *RuleCategorizer) Match(vendor, description string) (string, bool) {
	text := strings.ToLower(vendor + " " + description + " ")
	for _, r := range rc.rules {
		if strings.Contains(text, r.Match) {
			return r.Category, true
		}
	}
	return "", false
}

var synonyms = map[string]string{
	"food":           "Groceries",
	"grocery":        "Groceries",
	"supermarket":    "Groceries",
	"restaurant":     "Dining Out",
	"restaurants":    "Dining Out",
	"fast food":      "Dining Out",
	"dining":         "Dining Out",
	"gas":            "Transport",
	"fuel":           "Transport",
	"transportation": "Transport",
	"rent":           "Housing",
	"mortgage":       "Housing",
	"electricity":    "Utilities",
	"internet":       "Utilities",
	"phone":          "Utilities",
	"medical":        "Healthcare",
	"health":         "Healthcare",
	"clothing":       "Shopping",
	"streaming":      "Subscriptions",
	"education":      "Childcare & Education",
	"charity":        "Gifts & Donations",
	"savings":        "Emergency Fund",
}

// Canonicalize resolves free text from a model to a chart category. It
// tries an exact name, then a known synonym, then the longest category
// name contained in the text.
func Canonicalize(answer string, chart Chart) (model.Category, bool) {
	cleaned := strings.ToLower(strings.TrimFunc(answer, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '&')
	}))
	if cleaned == "" {
		return model.Category{}, false
	}
	if c, ok := chart.ByName(cleaned); ok {
		return c, true
	}
	if name, ok := synonyms[cleaned]; ok {
		if c, ok := chart.ByName(name); ok {
			return c, true
		}
	}

	best := ""
	for _, name := range chart.Names() {
		if strings.Contains(cleaned, strings.ToLower(name)) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return model.Category{}, false
	}
	return chart.ByName(best)
}
