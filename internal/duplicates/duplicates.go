// Package duplicates finds expenses that were probably recorded twice.
package duplicates

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Options tunes how close two expenses must be to count as duplicates.
type Options struct {
	DateWindowDays  int             // max days between the two dates
	AmountTolerance decimal.Decimal // max absolute amount difference
	MinSimilarity   float64         // min token similarity of vendor/description, 0..1
}

// DefaultOptions returns a 3-day window, exact amounts and 0.5 similarity.
func DefaultOptions() Options {
	return Options{
		DateWindowDays:  3,
		AmountTolerance: decimal.Zero,
		MinSimilarity:   0.5,
	}
}

// Pair is two expenses that look like the same spend.
type Pair struct {
	A       model.Expense `json:"a"`
	B       model.Expense `json:"b"`
	Score   float64       `json:"score"` // 0..1, higher is more certain
	Reasons []string      `json:"reasons"`
}

// Find compares every pair of expenses whose dates fall within the window
// and returns the suspected duplicates, most certain first. Each pair is
// reported once.
func Find(expenses []model.Expense, opts Options) []Pair {
	sorted := make([]model.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var pairs []Pair
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if daysApart(sorted[i], sorted[j]) > opts.DateWindowDays {
				break
			}
			if p, ok := Compare(sorted[i], sorted[j], opts); ok {
				pairs = append(pairs, p)
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
	return pairs
}

// IsDuplicate reports whether candidate matches any existing expense and
// returns the best match.
func IsDuplicate(candidate model.Expense, existing []model.Expense, opts Options) (Pair, bool) {
	var best Pair
	found := false
	for _, e := range existing {
		p, ok := Compare(e, candidate, opts)
		if ok && (!found || p.Score > best.Score) {
			best = p
			found = true
		}
	}
	return best, found
}

// Compare decides whether a and b are duplicates of each other.
func Compare(a, b model.Expense, opts Options) (Pair, bool) {
	if a.ID != "" && a.ID == b.ID {
		return Pair{}, false
	}
	if a.FamilyID != b.FamilyID {
		return Pair{}, false
	}

	pair := Pair{A: a, B: b}

	// A shared reference alone is not enough: derived references can
	// collide across different purchases.
	if a.Reference != "" && a.Reference == b.Reference && a.Amount.Equal(b.Amount) {
		pair.Score = 1
		pair.Reasons = []string{"same bank reference"}
		return pair, true
	}
	if a.ReceiptID != "" && a.ReceiptID == b.ReceiptID {
		pair.Score = 1
		pair.Reasons = []string{"same receipt"}
		return pair, true
	}

	days := daysApart(a, b)
	if days > opts.DateWindowDays {
		return Pair{}, false
	}

	diff := a.Amount.Sub(b.Amount).Abs()
	if diff.GreaterThan(opts.AmountTolerance) {
		return Pair{}, false
	}

	sim := Similarity(a, b)
	bothBlank := a.Label() == "" && b.Label() == ""
	if sim < opts.MinSimilarity && !(bothBlank && days == 0) {
		return Pair{}, false
	}

	amountScore := 0.4
	if diff.IsZero() {
		pair.Reasons = append(pair.Reasons, "same amount")
	} else {
		amountScore = 0.3
		pair.Reasons = append(pair.Reasons, fmt.Sprintf("amounts differ by %s", diff.StringFixed(2)))
	}

	if days == 0 {
		pair.Reasons = append(pair.Reasons, "same day")
	} else {
		pair.Reasons = append(pair.Reasons, fmt.Sprintf("%d days apart", days))
	}
	dateScore := 0.3 * (1 - float64(days)/float64(opts.DateWindowDays+1))

	if sim >= opts.MinSimilarity {
		pair.Reasons = append(pair.Reasons, fmt.Sprintf("similar description (%.2f)", sim))
	}

	pair.Score = math.Round((amountScore+dateScore+0.3*sim)*100) / 100
	return pair, true
}

// Similarity is the Jaccard index of the vendor and description tokens of
// a and b. Identical vendors count as a full match.
func Similarity(a, b model.Expense) float64 {
	if a.Vendor != "" && strings.EqualFold(strings.TrimSpace(a.Vendor), strings.TrimSpace(b.Vendor)) {
		return 1
	}
	ta := tokens(a.Vendor + " " + a.Description)
	tb := tokens(b.Vendor + " " + b.Description)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// tokens lower-cases s and splits it into words, dropping single letters
// and bare numbers such as card or reference digits.
func tokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 2 || isDigits(f) {
			continue
		}
		set[f] = true
	}
	return set
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func daysApart(a, b model.Expense) int {
	d := int(civil(b.Date).Sub(civil(a.Date)).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

// civil drops the clock so that dates compare by calendar day.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
