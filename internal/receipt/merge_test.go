package receipt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amt(s string, conf float64) Field[decimal.Decimal] {
	return Known(dec(s), conf)
}

func item(desc, amount string) model.LineItem {
	return model.LineItem{Description: desc, Quantity: decimal.NewFromInt(1), Amount: dec(amount)}
}

var jan3 = time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

func TestMerge_SinglePage(t *testing.T) {
	m := MergeReceiptPages([]PageResult{{
		Vendor:    Known("Massy Stores", 0.9),
		Date:      Known(jan3, 0.8),
		Total:     amt("45.00", 0.7),
		Currency:  "ttd",
		LineItems: []model.LineItem{item("Bread", "15.00"), item("Milk", "30.00")},
	}})

	assert.Equal(t, "Massy Stores", m.Vendor)
	assert.True(t, m.Date.Equal(jan3))
	assert.True(t, m.HasTotal)
	assert.Equal(t, TotalRead, m.TotalSource)
	assert.Equal(t, "45.00", m.Total.StringFixed(2))
	assert.Equal(t, "TTD", m.Currency)
	assert.Len(t, m.LineItems, 2)
	assert.InDelta(t, 0.8, m.Confidence, 0.0001)
	assert.Equal(t, 1, m.Pages)
}

func TestMerge_ConfidenceCountsSubtotalAndTax(t *testing.T) {
	m := MergeReceiptPages([]PageResult{{
		Vendor:   Known("Hi-Lo", 0.9),
		Date:     Known(jan3, 0.9),
		Subtotal: amt("40.00", 0.1),
		Tax:      amt("5.00", 0.1),
		Total:    amt("45.00", 0.9),
	}})
	assert.InDelta(t, 0.58, m.Confidence, 0.0001)

	rep := DetectPartialReceipt(m, DefaultPartialOptions())
	assert.True(t, rep.NeedsReview)
	assert.Contains(t, rep.Reasons, "low confidence (0.58)")
}

func TestMerge_HighestConfidenceWins(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{Vendor: Known("MASSY ST0RES", 0.4), Total: amt("45.00", 0.9)},
		{Vendor: Known("Massy Stores", 0.95), Total: amt("46.00", 0.5)},
	})
	assert.Equal(t, "Massy Stores", m.Vendor)
	assert.Equal(t, "45.00", m.Total.StringFixed(2))
}

func TestMerge_TieBreaks(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{Vendor: Known("Top Of Receipt", 0.8), Date: Known(jan3, 0.7), Total: amt("10.00", 0.6)},
		{Vendor: Known("Bottom Footer", 0.8), Date: Known(jan3.AddDate(0, 0, 1), 0.7), Total: amt("12.00", 0.6)},
	})
	assert.Equal(t, "Top Of Receipt", m.Vendor, "vendor ties go to the earlier page")
	assert.True(t, m.Date.Equal(jan3), "date ties go to the earlier page")
	assert.Equal(t, "12.00", m.Total.StringFixed(2), "amount ties go to the later page")
}

func TestMerge_IgnoresBlankValues(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{Vendor: Known("  ", 0.99), Date: Known(time.Time{}, 0.99)},
		{Vendor: Known("Pennywise", 0.5), Date: Known(jan3, 0.5)},
	})
	assert.Equal(t, "Pennywise", m.Vendor)
	assert.True(t, m.Date.Equal(jan3))
}

func TestMerge_OverlappingLineItems(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{LineItems: []model.LineItem{item("Rice 2kg", "22.00"), item("Oil", "35.00"), item("Oil", "35.00")}},
		{LineItems: []model.LineItem{item("oil", "35.00"), item("Sugar", "12.00")}},
		{LineItems: []model.LineItem{item("Rice  2kg", "22.00")}},
	})

	var descs []string
	for _, it := range m.LineItems {
		descs = append(descs, it.Description)
	}
	// Same-page repeats are real purchases; the next page's repeat is overlap.
	// Page three only overlaps page two, so its rice is kept.
	assert.Equal(t, []string{"Rice 2kg", "Oil", "Oil", "Sugar", "Rice  2kg"}, descs)
}

func TestMerge_TotalDerivedFromSubtotal(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{Subtotal: amt("100.00", 0.8)},
		{Tax: amt("12.50", 0.8)},
	})
	require.True(t, m.HasTotal)
	assert.Equal(t, TotalFromSubtotal, m.TotalSource)
	assert.Equal(t, "112.50", m.Total.StringFixed(2))
	assert.Equal(t, 0.0, m.Confidence)
}

func TestMerge_TotalDerivedFromItems(t *testing.T) {
	m := MergeReceiptPages([]PageResult{
		{LineItems: []model.LineItem{item("A", "1.10"), item("B", "2.20")}},
	})
	require.True(t, m.HasTotal)
	assert.Equal(t, TotalFromItems, m.TotalSource)
	assert.Equal(t, "3.30", m.Total.StringFixed(2))
}

func TestMerge_NoPages(t *testing.T) {
	m := MergeReceiptPages(nil)
	assert.False(t, m.HasTotal)
	assert.Equal(t, 0, m.Pages)
	assert.Empty(t, m.LineItems)
}

func TestMerged_Apply(t *testing.T) {
	m := MergeReceiptPages([]PageResult{{
		Vendor: Known("Hi-Lo", 0.9),
		Date:   Known(jan3, 0.9),
		Tax:    amt("1.50", 0.9),
		Total:  amt("11.50", 0.9),
	}})
	r := model.Receipt{Currency: "TTD"}
	m.Apply(&r)
	assert.Equal(t, "Hi-Lo", r.Vendor)
	assert.Equal(t, "11.50", r.Total.StringFixed(2))
	assert.Equal(t, "1.50", r.Tax.StringFixed(2))
	assert.Equal(t, "TTD", r.Currency, "empty merged currency keeps the stored one")
}
