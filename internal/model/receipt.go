package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus tracks a receipt through the OCR pipeline.
type ReceiptStatus string

const (
	ReceiptUploaded    ReceiptStatus = "uploaded"
	ReceiptProcessing  ReceiptStatus = "processing"
	ReceiptParsed      ReceiptStatus = "parsed"
	ReceiptNeedsReview ReceiptStatus = "needs_review"
	ReceiptConfirmed   ReceiptStatus = "confirmed"
	ReceiptFailed      ReceiptStatus = "failed"
)

// LineItem is one purchased item read off a receipt.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt is an uploaded receipt and, once processed, its extracted fields.
type Receipt struct {
	ID         string          `json:"id"`
	FamilyID   string          `json:"family_id"`
	UploadedBy string          `json:"uploaded_by"`
	Status     ReceiptStatus   `json:"status"`
	Vendor     string          `json:"vendor,omitempty"`
	Date       time.Time       `json:"date"` // zero when unknown
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	CategoryID int             `json:"category_id"`
	Confidence float64         `json:"confidence"`
	LineItems  []LineItem      `json:"line_items"`
	Reasons    []string        `json:"reasons,omitempty"` // why the receipt needs review
	Error      string          `json:"error,omitempty"`
	ExpenseID  string          `json:"expense_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ReceiptPage is one uploaded image or PDF belonging to a receipt.
type ReceiptPage struct {
	ReceiptID   string `json:"receipt_id,omitempty"`
	PageNo      int    `json:"page_no"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type,omitempty"`
}
