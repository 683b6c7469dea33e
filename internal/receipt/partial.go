package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PartialOptions tunes DetectPartialReceipt.
type PartialOptions struct {
	Tolerance     decimal.Decimal // allowed gap between items and total
	MinConfidence float64         // below this the receipt needs review
}

// DefaultPartialOptions allows a one dollar gap and 0.6 confidence.
func DefaultPartialOptions() PartialOptions {
	return PartialOptions{
		Tolerance:     decimal.NewFromInt(1),
		MinConfidence: 0.6,
	}
}

// PartialReport explains whether a merged receipt looks incomplete.
type PartialReport struct {
	Partial     bool // part of the receipt is probably missing
	NeedsReview bool // a person should confirm the fields
	Reasons     []string
}

// DetectPartialReceipt flags receipts whose top (vendor, date) or bottom
// (total) was not captured, or whose line items fall short of the total, which
// happens when a long receipt is photographed in pieces and one is missing.
func DetectPartialReceipt(m Merged, opts PartialOptions) PartialReport {
	var rep PartialReport
	partial := func(reason string) {
		rep.Partial = true
		rep.Reasons = append(rep.Reasons, reason)
	}
	review := func(reason string) {
		rep.Reasons = append(rep.Reasons, reason)
	}

	if m.Pages == 0 {
		partial("no pages")
		rep.NeedsReview = true
		return rep
	}

	if m.Vendor == "" {
		partial("vendor missing")
	}
	if m.Date.IsZero() {
		partial("date missing")
	}

	switch {
	case !m.HasTotal:
		partial("total missing")
	case m.TotalSource != TotalRead:
		partial(fmt.Sprintf("total not printed, derived from %s", m.TotalSource))
	}

	// Item prices may or may not include tax, so anything between the
	// pre-tax total and the total is consistent.
	if m.HasTotal && len(m.LineItems) > 0 && m.TotalSource != TotalFromItems {
		items := m.ItemsTotal()
		preTax := m.Total.Sub(m.Tax)
		switch {
		case preTax.Sub(items).GreaterThan(opts.Tolerance):
			partial(fmt.Sprintf("line items (%s) short of total before tax (%s)", items.StringFixed(2), preTax.StringFixed(2)))
		case items.Sub(m.Total).GreaterThan(opts.Tolerance):
			review(fmt.Sprintf("line items (%s) exceed total (%s)", items.StringFixed(2), m.Total.StringFixed(2)))
		}
	}

	if m.Confidence < opts.MinConfidence {
		review(fmt.Sprintf("low confidence (%.2f)", m.Confidence))
	}

	rep.NeedsReview = len(rep.Reasons) > 0
	return rep
}
