package expenses

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Header is the CSV header for expense exports.
const Header = "expense_id,date,amount,category_id,description,vendor,payment_method,receipt_id,reference,tags,notes"

const (
	numFields   = 11
	dateFormat  = "2006-01-02"
	colID       = 0
	colDate     = 1
	colAmount   = 2
	colCategory = 3
	colDesc     = 4
	colVendor   = 5
	colPayment  = 6
	colReceipt  = 7
	colRef      = 8
	colTags     = 9
	colNotes    = 10
)

// ReadExpenses reads all expenses from an export.
func ReadExpenses(r io.Reader) ([]model.Expense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading expenses CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var expenses []model.Expense
	for i, rec := range records[1:] {
		e, err := UnmarshalExpense(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// WriteExpenses writes expenses with a header row.
func WriteExpenses(w io.Writer, expenses []model.Expense) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range expenses {
		if err := cw.Write(MarshalExpense(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalExpense converts an Expense to a CSV row.
func MarshalExpense(e model.Expense) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colDate] = e.Date.Format(dateFormat)
	row[colAmount] = e.Amount.StringFixed(2)
	if e.CategoryID != 0 {
		row[colCategory] = strconv.Itoa(e.CategoryID)
	}
	row[colDesc] = e.Description
	row[colVendor] = e.Vendor
	row[colPayment] = e.PaymentMethod
	row[colReceipt] = e.ReceiptID
	row[colRef] = e.Reference
	row[colTags] = e.Tags
	row[colNotes] = e.Notes
	return row
}

// UnmarshalExpense converts a CSV row to an Expense.
func UnmarshalExpense(record []string) (model.Expense, error) {
	if len(record) != numFields {
		return model.Expense{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Expense{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Expense{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var categoryID int
	if record[colCategory] != "" {
		categoryID, err = strconv.Atoi(record[colCategory])
		if err != nil {
			return model.Expense{}, fmt.Errorf("parsing category_id %q: %w", record[colCategory], err)
		}
	}

	return model.Expense{
		ID:            record[colID],
		Date:          date,
		Amount:        amount,
		CategoryID:    categoryID,
		Description:   record[colDesc],
		Vendor:        record[colVendor],
		PaymentMethod: record[colPayment],
		ReceiptID:     record[colReceipt],
		Reference:     record[colRef],
		Tags:          record[colTags],
		Notes:         record[colNotes],
	}, nil
}
