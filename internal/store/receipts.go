package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbReceipt struct {
	ID         string          `db:"id"`
	FamilyID   string          `db:"family_id"`
	UploadedBy string          `db:"uploaded_by"`
	Status     string          `db:"status"`
	Vendor     string          `db:"vendor"`
	Date       string          `db:"date"`
	Subtotal   decimal.Decimal `db:"subtotal"`
	Tax        decimal.Decimal `db:"tax"`
	Total      decimal.Decimal `db:"total"`
	Currency   string          `db:"currency"`
	CategoryID int             `db:"category_id"`
	Confidence float64         `db:"confidence"`
	LineItems  string          `db:"line_items"`
	Reasons    string          `db:"reasons"`
	Error      string          `db:"error"`
	ExpenseID  string          `db:"expense_id"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

const receiptColumns = `id, family_id, uploaded_by, status, vendor, date, subtotal, tax, total, currency,
	category_id, confidence, line_items, reasons, error, expense_id, created_at, updated_at`

func (r dbReceipt) toModel() (*model.Receipt, error) {
	d, err := parseDate(r.Date)
	if err != nil {
		return nil, err
	}
	out := &model.Receipt{
		ID:         r.ID,
		FamilyID:   r.FamilyID,
		UploadedBy: r.UploadedBy,
		Status:     model.ReceiptStatus(r.Status),
		Vendor:     r.Vendor,
		Date:       d,
		Subtotal:   r.Subtotal,
		Tax:        r.Tax,
		Total:      r.Total,
		Currency:   r.Currency,
		CategoryID: r.CategoryID,
		Confidence: r.Confidence,
		Error:      r.Error,
		ExpenseID:  r.ExpenseID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.LineItems), &out.LineItems); err != nil {
		return nil, fmt.Errorf("decoding line items of receipt %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Reasons), &out.Reasons); err != nil {
		return nil, fmt.Errorf("decoding reasons of receipt %s: %w", r.ID, err)
	}
	return out, nil
}

func encodeList(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

// CreateReceipt inserts an uploaded receipt and its pages.
func (s *Store) CreateReceipt(ctx context.Context, r *model.Receipt, pages []model.ReceiptPage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO receipts (id, family_id, uploaded_by, status, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.FamilyID, r.UploadedBy, string(r.Status), r.Currency, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}
	for _, p := range pages {
		_, err = tx.ExecContext(ctx, s.q(`INSERT INTO receipt_pages (receipt_id, page_no, storage_key, content_type)
			VALUES (?, ?, ?, ?)`), r.ID, p.PageNo, p.StorageKey, p.ContentType)
		if err != nil {
			return fmt.Errorf("inserting receipt page %d: %w", p.PageNo, err)
		}
	}
	return tx.Commit()
}

// GetReceipt returns a receipt by ID.
func (s *Store) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	var row dbReceipt
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+receiptColumns+` FROM receipts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return row.toModel()
}

// ReceiptPages returns a receipt's pages in page order.
func (s *Store) ReceiptPages(ctx context.Context, receiptID string) ([]model.ReceiptPage, error) {
	var rows []struct {
		ReceiptID   string `db:"receipt_id"`
		PageNo      int    `db:"page_no"`
		StorageKey  string `db:"storage_key"`
		ContentType string `db:"content_type"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT receipt_id, page_no, storage_key, content_type
		FROM receipt_pages WHERE receipt_id = ? ORDER BY page_no`), receiptID)
	if err != nil {
		return nil, fmt.Errorf("listing receipt pages: %w", err)
	}
	out := make([]model.ReceiptPage, len(rows))
	for i, r := range rows {
		out[i] = model.ReceiptPage{ReceiptID: r.ReceiptID, PageNo: r.PageNo, StorageKey: r.StorageKey, ContentType: r.ContentType}
	}
	return out, nil
}

// claimAttempts bounds how often ClaimNextReceipt retries after losing a
// race with another worker.
const claimAttempts = 3

// ProcessingLease is how long a receipt may stay in processing before
// another worker may claim it again. It covers workers that died mid-job.
const ProcessingLease = 10 * time.Minute

// ClaimNextReceipt moves the oldest uploaded receipt, or a processing
// receipt whose lease has expired, to processing and returns it. ok is
// false when no receipt is waiting.
func (s *Store) ClaimNextReceipt(ctx context.Context, now time.Time) (*model.Receipt, bool, error) {
	stale := now.Add(-ProcessingLease)
	for range claimAttempts {
		var id string
		err := s.db.GetContext(ctx, &id, s.q(`SELECT id FROM receipts
			WHERE status = ? OR (status = ? AND updated_at < ?)
			ORDER BY created_at, id LIMIT 1`),
			string(model.ReceiptUploaded), string(model.ReceiptProcessing), stale)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("finding uploaded receipt: %w", err)
		}

		res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, updated_at = ?
			WHERE id = ? AND (status = ? OR (status = ? AND updated_at < ?))`),
			string(model.ReceiptProcessing), now, id,
			string(model.ReceiptUploaded), string(model.ReceiptProcessing), stale)
		if err != nil {
			return nil, false, fmt.Errorf("claiming receipt %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, false, fmt.Errorf("fetching rows affected: %w", err)
		}
		if n == 0 {
			continue
		}

		r, err := s.GetReceipt(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}
	return nil, false, nil
}

// SaveReceiptResult stores the extracted fields of a processing receipt
// together with its new status.
func (s *Store) SaveReceiptResult(ctx context.Context, r *model.Receipt) error {
	items, err := encodeList(r.LineItems)
	if err != nil {
		return fmt.Errorf("encoding line items: %w", err)
	}
	reasons, err := encodeList(r.Reasons)
	if err != nil {
		return fmt.Errorf("encoding reasons: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, vendor = ?, date = ?, subtotal = ?,
		tax = ?, total = ?, currency = ?, category_id = ?, confidence = ?, line_items = ?, reasons = ?,
		error = '', updated_at = ?
		WHERE id = ? AND status = ?`),
		string(r.Status), r.Vendor, formatDate(r.Date), r.Subtotal, r.Tax, r.Total, r.Currency,
		r.CategoryID, r.Confidence, items, reasons, r.UpdatedAt, r.ID, string(model.ReceiptProcessing))
	if err != nil {
		return fmt.Errorf("saving receipt result: %w", err)
	}
	return checkAffected(res, "processing receipt", r.ID)
}

// FailReceipt marks a processing receipt as failed with a reason.
func (s *Store) FailReceipt(ctx context.Context, id, reason string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(model.ReceiptFailed), reason, now, id, string(model.ReceiptProcessing))
	if err != nil {
		return fmt.Errorf("failing receipt: %w", err)
	}
	return checkAffected(res, "processing receipt", id)
}

// ReleaseReceipt returns a processing receipt to the queue untouched.
func (s *Store) ReleaseReceipt(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(model.ReceiptUploaded), now, id, string(model.ReceiptProcessing))
	if err != nil {
		return fmt.Errorf("releasing receipt: %w", err)
	}
	return checkAffected(res, "processing receipt", id)
}

// RetryReceipt puts a failed or needs-review receipt back in the queue.
func (s *Store) RetryReceipt(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, error = '', updated_at = ?
		WHERE id = ? AND status IN (?, ?)`),
		string(model.ReceiptUploaded), now, id, string(model.ReceiptFailed), string(model.ReceiptNeedsReview))
	if err != nil {
		return fmt.Errorf("retrying receipt: %w", err)
	}
	return checkAffected(res, "failed receipt", id)
}

// ConfirmReceipt links a parsed receipt to the expense created from it.
func (s *Store) ConfirmReceipt(ctx context.Context, id, expenseID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE receipts SET status = ?, expense_id = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`),
		string(model.ReceiptConfirmed), expenseID, now, id, string(model.ReceiptParsed), string(model.ReceiptNeedsReview))
	if err != nil {
		return fmt.Errorf("confirming receipt: %w", err)
	}
	return checkAffected(res, "parsed receipt", id)
}

// CountReceiptsSince counts receipts a user uploaded at or after since.
func (s *Store) CountReceiptsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM receipts WHERE uploaded_by = ? AND created_at >= ?`),
		userID, since.UTC())
	if err != nil {
		return 0, fmt.Errorf("counting receipts: %w", err)
	}
	return n, nil
}
