package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nuacha-app/nuacha/internal/model"
)

func completePage() PageResult {
	return PageResult{
		Vendor:    Known("Massy Stores", 0.9),
		Date:      Known(jan3, 0.9),
		Tax:       amt("5.00", 0.9),
		Total:     amt("50.00", 0.9),
		LineItems: []model.LineItem{item("Cheese", "20.00"), item("Ham", "25.00")},
	}
}

func TestDetectPartial_Complete(t *testing.T) {
	rep := DetectPartialReceipt(MergeReceiptPages([]PageResult{completePage()}), DefaultPartialOptions())
	assert.False(t, rep.Partial)
	assert.False(t, rep.NeedsReview)
	assert.Empty(t, rep.Reasons)
}

func TestDetectPartial_TaxInclusiveItems(t *testing.T) {
	p := completePage()
	p.LineItems = []model.LineItem{item("Cheese", "22.00"), item("Ham", "28.00")}
	rep := DetectPartialReceipt(MergeReceiptPages([]PageResult{p}), DefaultPartialOptions())
	assert.False(t, rep.NeedsReview, "reasons: %v", rep.Reasons)
}

func TestDetectPartial_Cases(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PageResult)
		partial bool
		reason  string
	}{
		{"missing vendor", func(p *PageResult) { p.Vendor = Field[string]{} }, true, "vendor missing"},
		{"missing date", func(p *PageResult) { p.Date.OK = false }, true, "date missing"},
		{"missing total", func(p *PageResult) { p.Total.OK = false; p.LineItems = nil }, true, "total missing"},
		{"derived total", func(p *PageResult) { p.Total.OK = false }, true, "total not printed, derived from line items"},
		{"items cut off", func(p *PageResult) { p.LineItems = p.LineItems[:1] }, true, "line items (20.00) short of total before tax (45.00)"},
		{"items exceed", func(p *PageResult) { p.LineItems = append(p.LineItems, item("Wine", "90.00")) }, false, "line items (135.00) exceed total (50.00)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := completePage()
			tt.mutate(&p)
			rep := DetectPartialReceipt(MergeReceiptPages([]PageResult{p}), DefaultPartialOptions())
			assert.Equal(t, tt.partial, rep.Partial)
			assert.True(t, rep.NeedsReview)
			assert.Contains(t, rep.Reasons, tt.reason)
		})
	}
}

func TestDetectPartial_WithinTolerance(t *testing.T) {
	p := completePage()
	p.LineItems = []model.LineItem{item("Cheese", "20.00"), item("Ham", "24.25")}
	rep := DetectPartialReceipt(MergeReceiptPages([]PageResult{p}), DefaultPartialOptions())
	assert.False(t, rep.Partial)
}

func TestDetectPartial_LowConfidence(t *testing.T) {
	p := completePage()
	p.Vendor.Confidence = 0.2
	p.Date.Confidence = 0.2
	p.Total.Confidence = 0.2
	p.Tax.Confidence = 0.2
	rep := DetectPartialReceipt(MergeReceiptPages([]PageResult{p}), DefaultPartialOptions())
	assert.False(t, rep.Partial)
	assert.True(t, rep.NeedsReview)
	assert.Equal(t, []string{"low confidence (0.20)"}, rep.Reasons)
}

func TestDetectPartial_NoPages(t *testing.T) {
	rep := DetectPartialReceipt(MergeReceiptPages(nil), DefaultPartialOptions())
	assert.True(t, rep.Partial)
	assert.Equal(t, []string{"no pages"}, rep.Reasons)
}
