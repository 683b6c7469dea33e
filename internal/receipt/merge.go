// Package receipt reconciles OCR results from multi-page or re-photographed
// receipts into a single set of fields.
package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Field is one value read by OCR together with the vendor's confidence.
type Field[T any] struct {
	Value      T
	Confidence float64 // 0..1
	OK         bool    // false when OCR found nothing
}

// Known returns a populated Field.
func Known[T any](v T, confidence float64) Field[T] {
	return Field[T]{Value: v, Confidence: confidence, OK: true}
}

// PageResult is the OCR output for one page or photo of a receipt.
type PageResult struct {
	Vendor    Field[string]
	Date      Field[time.Time]
	Subtotal  Field[decimal.Decimal]
	Tax       Field[decimal.Decimal]
	Total     Field[decimal.Decimal]
	Currency  string
	LineItems []model.LineItem
}

// How a merged total was obtained.
const (
	TotalRead         = ""
	TotalFromSubtotal = "subtotal+tax"
	TotalFromItems    = "line items"
)

// Merged is the reconciled view of all pages of one receipt.
type Merged struct {
	Vendor      string
	Date        time.Time
	Subtotal    decimal.Decimal
	HasSubtotal bool
	Tax         decimal.Decimal
	HasTax      bool
	Total       decimal.Decimal
	HasTotal    bool
	TotalSource string // TotalRead, TotalFromSubtotal or TotalFromItems
	Currency    string
	LineItems   []model.LineItem
	Confidence  float64 // mean confidence of the fields read by OCR
	Pages       int
}

// MergeReceiptPages combines the OCR results of every page of a receipt.
//
// Each scalar field takes the most confident value any page reported. Ties
// go to the earlier page for vendor and date, which print at the top, and
// to the later page for amounts, which print at the bottom. Line items are
// concatenated in page order; an item repeated on the next page (an
// overlapping photo) is kept once. A missing total is derived from
// subtotal plus tax, or failing that from the line items.
func MergeReceiptPages(pages []PageResult) Merged {
	m := Merged{Pages: len(pages)}

	var vendor Field[string]
	var date Field[time.Time]
	var subtotal, tax, total Field[decimal.Decimal]

	for i, p := range pages {
		if p.Vendor.OK && strings.TrimSpace(p.Vendor.Value) != "" {
			vendor = preferEarlier(vendor, p.Vendor)
		}
		if p.Date.OK && !p.Date.Value.IsZero() {
			date = preferEarlier(date, p.Date)
		}
		subtotal = preferLater(subtotal, p.Subtotal)
		tax = preferLater(tax, p.Tax)
		total = preferLater(total, p.Total)

		if m.Currency == "" {
			m.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
		}

		var prev []model.LineItem
		if i > 0 {
			prev = pages[i-1].LineItems
		}
		for _, item := range p.LineItems {
			if containsItem(prev, item) {
				continue
			}
			m.LineItems = append(m.LineItems, item)
		}
	}

	var confs []float64
	if vendor.OK {
		m.Vendor = strings.TrimSpace(vendor.Value)
		confs = append(confs, vendor.Confidence)
	}
	if date.OK {
		m.Date = date.Value
		confs = append(confs, date.Confidence)
	}
	if subtotal.OK {
		m.Subtotal, m.HasSubtotal = subtotal.Value, true
		confs = append(confs, subtotal.Confidence)
	}
	if tax.OK {
		m.Tax, m.HasTax = tax.Value, true
		confs = append(confs, tax.Confidence)
	}
	switch {
	case total.OK:
		m.Total, m.HasTotal = total.Value, true
		confs = append(confs, total.Confidence)
	case m.HasSubtotal:
		m.Total, m.HasTotal = m.Subtotal.Add(m.Tax), true
		m.TotalSource = TotalFromSubtotal
	case len(m.LineItems) > 0:
		m.Total, m.HasTotal = m.ItemsTotal(), true
		m.TotalSource = TotalFromItems
	}

	if len(confs) > 0 {
		sum := 0.0
		for _, c := range confs {
			sum += c
		}
		m.Confidence = sum / float64(len(confs))
	}
	return m
}

// ItemsTotal sums the line item amounts.
func (m Merged) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range m.LineItems {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// Apply copies the merged fields onto a stored receipt.
func (m Merged) Apply(r *model.Receipt) {
	r.Vendor = m.Vendor
	r.Date = m.Date
	r.Subtotal = m.Subtotal
	r.Tax = m.Tax
	r.Total = m.Total
	if m.Currency != "" {
		r.Currency = m.Currency
	}
	r.LineItems = m.LineItems
	r.Confidence = m.Confidence
}

func preferEarlier[T any](best, candidate Field[T]) Field[T] {
	if !candidate.OK {
		return best
	}
	if !best.OK || candidate.Confidence > best.Confidence {
		return candidate
	}
	return best
}

func preferLater[T any](best, candidate Field[T]) Field[T] {
	if !candidate.OK {
		return best
	}
	if !best.OK || candidate.Confidence >= best.Confidence {
		return candidate
	}
	return best
}

func containsItem(items []model.LineItem, item model.LineItem) bool {
	for _, it := range items {
		if sameItem(it, item) {
			return true
		}
	}
	return false
}

func sameItem(a, b model.LineItem) bool {
	return a.Amount.Equal(b.Amount) &&
		strings.EqualFold(strings.Join(strings.Fields(a.Description), " "), strings.Join(strings.Fields(b.Description), " "))
}
