package duplicates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func exp(id string, d int, amount, vendor, desc string) model.Expense {
	return model.Expense{
		ID:          id,
		FamilyID:    "fam-1",
		Date:        day(d),
		Amount:      decimal.RequireFromString(amount),
		Vendor:      vendor,
		Description: desc,
	}
}

func TestFind_SameVendorWithinWindow(t *testing.T) {
	expenses := []model.Expense{
		exp("e1", 3, "150.00", "Massy Stores", "groceries"),
		exp("e2", 4, "150.00", "MASSY STORES", ""),
		exp("e3", 10, "150.00", "Massy Stores", "groceries"),
	}

	pairs := Find(expenses, DefaultOptions())
	require.Len(t, pairs, 1)
	assert.Equal(t, "e1", pairs[0].A.ID)
	assert.Equal(t, "e2", pairs[0].B.ID)
	assert.InDelta(t, 0.92, pairs[0].Score, 0.011)
	assert.Contains(t, pairs[0].Reasons, "same amount")
	assert.Contains(t, pairs[0].Reasons, "1 days apart")
}

func TestFind_DifferentDescriptionNotDuplicate(t *testing.T) {
	expenses := []model.Expense{
		exp("e1", 3, "45.00", "KFC", "lunch"),
		exp("e2", 3, "45.00", "Pennywise", "toiletries"),
	}
	assert.Empty(t, Find(expenses, DefaultOptions()))
}

func TestFind_UnsortedInputAndOrdering(t *testing.T) {
	expenses := []model.Expense{
		exp("e4", 15, "99.00", "", "DIGICEL TOPUP 5551234"),
		exp("e1", 3, "150.00", "Massy Stores", ""),
		exp("e3", 14, "99.00", "", "digicel topup 5559999"),
		exp("e2", 3, "150.00", "Massy Stores", ""),
	}

	pairs := Find(expenses, DefaultOptions())
	require.Len(t, pairs, 2)
	// Same-day pair scores higher than the one-day-apart pair.
	assert.Equal(t, "e1", pairs[0].A.ID)
	assert.Equal(t, "e2", pairs[0].B.ID)
	assert.Equal(t, "e3", pairs[1].A.ID)
	assert.Equal(t, "e4", pairs[1].B.ID)
	assert.Greater(t, pairs[0].Score, pairs[1].Score)
}

func TestCompare_AmountTolerance(t *testing.T) {
	a := exp("a", 5, "150.00", "Hi-Lo", "")
	b := exp("b", 5, "150.50", "Hi-Lo", "")

	_, ok := Compare(a, b, DefaultOptions())
	assert.False(t, ok)

	opts := DefaultOptions()
	opts.AmountTolerance = decimal.NewFromInt(1)
	p, ok := Compare(a, b, opts)
	require.True(t, ok)
	assert.Contains(t, p.Reasons, "amounts differ by 0.50")
}

func TestCompare_SameReference(t *testing.T) {
	a := exp("a", 5, "12.00", "", "x")
	b := exp("b", 6, "12.00", "", "y")
	a.Reference = "FC-0042"
	b.Reference = "FC-0042"

	p, ok := Compare(a, b, DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Score)
	assert.Equal(t, []string{"same bank reference"}, p.Reasons)
}

func TestCompare_SameReferenceDifferentAmount(t *testing.T) {
	a := exp("a", 4, "45.00", "", "POS PURCHASE HI-LO")
	b := exp("b", 4, "312.60", "", "POS PURCHASE PRICESMART")
	a.Reference = "chase_20250104_POSPURCHAS"
	b.Reference = "chase_20250104_POSPURCHAS"

	_, ok := Compare(a, b, DefaultOptions())
	assert.False(t, ok)
}

func TestCompare_SameReceipt(t *testing.T) {
	a := exp("a", 5, "10.00", "", "")
	b := exp("b", 5, "10.00", "", "")
	a.ReceiptID = "r-1"
	b.ReceiptID = "r-1"

	p, ok := Compare(a, b, DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, []string{"same receipt"}, p.Reasons)
}

func TestCompare_DifferentFamilies(t *testing.T) {
	a := exp("a", 5, "10.00", "Massy", "")
	b := exp("b", 5, "10.00", "Massy", "")
	b.FamilyID = "fam-2"
	_, ok := Compare(a, b, DefaultOptions())
	assert.False(t, ok)
}

func TestCompare_SameID(t *testing.T) {
	a := exp("a", 5, "10.00", "Massy", "")
	_, ok := Compare(a, a, DefaultOptions())
	assert.False(t, ok)
}

func TestCompare_BlankSameDay(t *testing.T) {
	a := exp("a", 5, "10.00", "", "")
	b := exp("b", 5, "10.00", "", "")
	_, ok := Compare(a, b, DefaultOptions())
	assert.True(t, ok)

	c := exp("c", 6, "10.00", "", "")
	_, ok = Compare(a, c, DefaultOptions())
	assert.False(t, ok)
}

func TestIsDuplicate_BestMatch(t *testing.T) {
	existing := []model.Expense{
		exp("e1", 1, "75.00", "Digicel", ""),
		exp("e2", 3, "75.00", "Digicel", ""),
	}
	candidate := exp("", 3, "75.00", "DIGICEL", "")

	p, ok := IsDuplicate(candidate, existing, DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, "e2", p.A.ID)

	_, ok = IsDuplicate(exp("", 20, "75.00", "Digicel", ""), existing, DefaultOptions())
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	a := model.Expense{Description: "POS PURCHASE TRU VALU 0042"}
	b := model.Expense{Description: "pos purchase tru valu 7781"}
	assert.InDelta(t, 1.0, Similarity(a, b), 0.001)

	c := model.Expense{Description: "POS PURCHASE PRICESMART"}
	assert.InDelta(t, 2.0/5.0, Similarity(a, c), 0.001)

	assert.Equal(t, 0.0, Similarity(a, model.Expense{}))
}
