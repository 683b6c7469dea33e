package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spend recorded against a family.
type Expense struct {
	ID            string          `json:"id"`
	FamilyID      string          `json:"family_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"` // always positive
	Description   string          `json:"description,omitempty"`
	Vendor        string          `json:"vendor,omitempty"`
	CategoryID    int             `json:"category_id"` // 0 = uncategorised
	PaymentMethod string          `json:"payment_method,omitempty"`
	ReceiptID     string          `json:"receipt_id,omitempty"`
	Reference     string          `json:"reference,omitempty"` // bank reference for imported rows
	Tags          string          `json:"tags,omitempty"`      // semicolon-separated
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Label returns the vendor when known, otherwise the description.
func (e Expense) Label() string {
	if v := strings.TrimSpace(e.Vendor); v != "" {
		return v
	}
	return strings.TrimSpace(e.Description)
}

// TagList splits Tags into trimmed, non-empty values.
func (e Expense) TagList() []string {
	var tags []string
	for _, t := range strings.Split(e.Tags, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
