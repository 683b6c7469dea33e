package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbExpense struct {
	ID            string          `db:"id"`
	FamilyID      string          `db:"family_id"`
	Date          string          `db:"date"`
	Amount        decimal.Decimal `db:"amount"`
	Description   string          `db:"description"`
	Vendor        string          `db:"vendor"`
	CategoryID    int             `db:"category_id"`
	PaymentMethod string          `db:"payment_method"`
	ReceiptID     string          `db:"receipt_id"`
	Reference     string          `db:"reference"`
	Tags          string          `db:"tags"`
	Notes         string          `db:"notes"`
	CreatedBy     string          `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

const expenseColumns = `id, family_id, date, amount, description, vendor, category_id, payment_method,
	receipt_id, reference, tags, notes, created_by, created_at`

func (e dbExpense) toModel() (model.Expense, error) {
	d, err := parseDate(e.Date)
	if err != nil {
		return model.Expense{}, err
	}
	return model.Expense{
		ID:            e.ID,
		FamilyID:      e.FamilyID,
		Date:          d,
		Amount:        e.Amount,
		Description:   e.Description,
		Vendor:        e.Vendor,
		CategoryID:    e.CategoryID,
		PaymentMethod: e.PaymentMethod,
		ReceiptID:     e.ReceiptID,
		Reference:     e.Reference,
		Tags:          e.Tags,
		Notes:         e.Notes,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
	}, nil
}

// InsertExpense stores a new expense.
func (s *Store) InsertExpense(ctx context.Context, e *model.Expense) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.FamilyID, formatDate(e.Date), e.Amount, e.Description, e.Vendor, e.CategoryID,
		e.PaymentMethod, e.ReceiptID, e.Reference, e.Tags, e.Notes, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

// UpdateExpense overwrites the editable fields of an expense.
func (s *Store) UpdateExpense(ctx context.Context, e *model.Expense) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE expenses SET date = ?, amount = ?, description = ?, vendor = ?,
		category_id = ?, payment_method = ?, receipt_id = ?, reference = ?, tags = ?, notes = ?
		WHERE id = ?`),
		formatDate(e.Date), e.Amount, e.Description, e.Vendor, e.CategoryID, e.PaymentMethod,
		e.ReceiptID, e.Reference, e.Tags, e.Notes, e.ID)
	if err != nil {
		return fmt.Errorf("updating expense: %w", err)
	}
	return checkAffected(res, "expense", e.ID)
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return checkAffected(res, "expense", id)
}

// GetExpense returns one expense.
func (s *Store) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	var row dbExpense
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	e, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpenses returns a family's expenses dated within [from, to], oldest
// first. A zero bound is open.
func (s *Store) ListExpenses(ctx context.Context, familyID string, from, to time.Time) ([]model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE family_id = ?`
	args := []any{familyID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatDate(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(to))
	}
	query += ` ORDER BY date, created_at, id`

	var rows []dbExpense
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	out := make([]model.Expense, 0, len(rows))
	for _, r := range rows {
		e, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
