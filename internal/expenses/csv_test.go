package expenses

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundTrip(t *testing.T) {
	list := []model.Expense{
		{
			ID:            "e-1",
			Date:          date(2025, 1, 3),
			Amount:        dec("245.60"),
			CategoryID:    120,
			Description:   "weekly shop",
			Vendor:        "Massy Stores",
			PaymentMethod: "linx",
			ReceiptID:     "r-9",
			Tags:          "family;food",
			Notes:         "includes, a comma",
		},
		{
			ID:          "e-2",
			Date:        date(2025, 1, 4),
			Amount:      dec("4"),
			Description: "POS TSTT BILL",
			Reference:   "auto_20250104_POSTSTTBIL",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExpenses(&buf, list))
	assert.True(t, strings.HasPrefix(buf.String(), "expense_id,"))
	assert.Contains(t, buf.String(), ",4.00,")

	got, err := ReadExpenses(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range list {
		assert.Equal(t, list[i].ID, got[i].ID)
		assert.True(t, list[i].Date.Equal(got[i].Date))
		assert.True(t, list[i].Amount.Equal(got[i].Amount), "amount mismatch row %d", i)
		assert.Equal(t, list[i].CategoryID, got[i].CategoryID)
		assert.Equal(t, list[i].Description, got[i].Description)
		assert.Equal(t, list[i].Vendor, got[i].Vendor)
		assert.Equal(t, list[i].PaymentMethod, got[i].PaymentMethod)
		assert.Equal(t, list[i].ReceiptID, got[i].ReceiptID)
		assert.Equal(t, list[i].Reference, got[i].Reference)
		assert.Equal(t, list[i].Tags, got[i].Tags)
		assert.Equal(t, list[i].Notes, got[i].Notes)
	}
}

func TestUnmarshalExpense_Errors(t *testing.T) {
	good := []string{"e-1", "2025-01-03", "10.00", "120", "x", "", "", "", "", "", ""}

	_, err := UnmarshalExpense(good[:5])
	assert.ErrorContains(t, err, "expected 11 fields")

	bad := append([]string(nil), good...)
	bad[colDate] = "03/01/2025"
	_, err = UnmarshalExpense(bad)
	assert.ErrorContains(t, err, "parsing date")

	bad = append([]string(nil), good...)
	bad[colAmount] = "ten"
	_, err = UnmarshalExpense(bad)
	assert.ErrorContains(t, err, "parsing amount")

	bad = append([]string(nil), good...)
	bad[colCategory] = "groceries"
	_, err = UnmarshalExpense(bad)
	assert.ErrorContains(t, err, "parsing category_id")
}

func TestReadExpenses_Empty(t *testing.T) {
	got, err := ReadExpenses(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadExpenses(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
