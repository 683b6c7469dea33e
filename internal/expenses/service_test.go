package expenses

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/duplicates"
	"github.com/nuacha-app/nuacha/internal/importer"
	"github.com/nuacha-app/nuacha/internal/model"
)

type memRepo struct {
	rows map[string]model.Expense
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]model.Expense)}
}

func (m *memRepo) InsertExpense(_ context.Context, e *model.Expense) error {
	m.rows[e.ID] = *e
	return nil
}

func (m *memRepo) UpdateExpense(_ context.Context, e *model.Expense) error {
	if _, ok := m.rows[e.ID]; !ok {
		return model.ErrNotFound
	}
	m.rows[e.ID] = *e
	return nil
}

func (m *memRepo) DeleteExpense(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) GetExpense(_ context.Context, id string) (*model.Expense, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (m *memRepo) ListExpenses(_ context.Context, familyID string, from, to time.Time) ([]model.Expense, error) {
	var out []model.Expense
	for _, e := range m.rows {
		if e.FamilyID == familyID && !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type keywordCategorizer map[string]int

func (k keywordCategorizer) CategoryFor(_ context.Context, _, desc string) (int, error) {
	for kw, id := range k {
		if strings.Contains(desc, kw) {
			return id, nil
		}
	}
	return 0, nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, defaultCategories, duplicates.DefaultOptions())
	svc.now = func() time.Time { return date(2025, 1, 31) }
	return svc
}

func TestAdd(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	got, err := svc.Add(context.Background(), model.Expense{
		FamilyID:    "fam",
		Date:        time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC),
		Amount:      dec("55.25"),
		CategoryID:  120,
		Description: "Hi-Lo",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.Date.Equal(date(2025, 1, 10)), "time of day is dropped")
	assert.Len(t, repo.rows, 1)
}

func TestAdd_ValidationFailure(t *testing.T) {
	svc := newTestService(newMemRepo())
	_, err := svc.Add(context.Background(), model.Expense{FamilyID: "fam", Date: date(2025, 1, 10), Amount: dec("-1")})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestUpdate_KeepsOwnership(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	orig, err := svc.Add(ctx, model.Expense{FamilyID: "fam", CreatedBy: "u1", Date: date(2025, 1, 10), Amount: dec("10"), Description: "bake sale"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, model.Expense{ID: orig.ID, FamilyID: "other", Date: date(2025, 1, 11), Amount: dec("12"), Description: "bake sale"})
	require.NoError(t, err)
	assert.Equal(t, "fam", updated.FamilyID)
	assert.Equal(t, "u1", updated.CreatedBy)
	assert.True(t, updated.Amount.Equal(dec("12")))

	_, err = svc.Update(ctx, model.Expense{ID: "missing", Date: date(2025, 1, 11), Amount: dec("1"), Description: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Add(ctx, model.Expense{FamilyID: "fam", Date: date(2025, 1, 10), Amount: dec("10"), Description: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, e.ID), model.ErrNotFound)
}

func TestMonthSummary(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	for _, e := range []model.Expense{
		{FamilyID: "fam", Date: date(2025, 1, 2), Amount: dec("100.10"), CategoryID: 120, Description: "a"},
		{FamilyID: "fam", Date: date(2025, 1, 20), Amount: dec("50.00"), CategoryID: 120, Description: "b"},
		{FamilyID: "fam", Date: date(2025, 1, 31), Amount: dec("20.00"), Description: "c"},
		{FamilyID: "fam", Date: date(2024, 12, 31), Amount: dec("999.00"), Description: "last year"},
		{FamilyID: "other", Date: date(2025, 1, 5), Amount: dec("5.00"), Description: "not ours"},
	} {
		_, err := svc.Add(ctx, e)
		require.NoError(t, err)
	}

	sum, err := svc.MonthSummary(ctx, "fam", 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, "170.10", sum.Total.StringFixed(2))
	assert.Equal(t, "150.10", sum.ByCategory[120].StringFixed(2))
	assert.Equal(t, "20.00", sum.ByCategory[0].StringFixed(2))
}

func TestExport(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	_, err := svc.Add(ctx, model.Expense{FamilyID: "fam", Date: date(2025, 1, 2), Amount: dec("9.5"), Vendor: "Rituals"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf, "fam", date(2025, 1, 1), date(2025, 1, 31)))

	got, err := ReadExpenses(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rituals", got[0].Vendor)
	assert.Equal(t, "9.50", got[0].Amount.StringFixed(2))
}

func TestImportTransactions(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo).WithCategorizer(keywordCategorizer{"T&TEC": 110})
	ctx := context.Background()

	_, err := svc.Add(ctx, model.Expense{FamilyID: "fam", Date: date(2025, 1, 5), Amount: dec("310.00"), Description: "T&TEC ELECTRICITY"})
	require.NoError(t, err)

	txns := []model.BankTransaction{
		{Date: date(2025, 1, 6), Description: "T&TEC ELECTRICITY", Amount: dec("-310.00"), Reference: "r1"},
		{Date: date(2025, 1, 7), Description: "SALARY", Amount: dec("8000.00"), Reference: "r2"},
		{Date: date(2025, 1, 8), Description: "T&TEC DEPOSIT", Amount: dec("-150.00"), Reference: "r3"},
		{Date: date(2025, 1, 8), Description: "T&TEC DEPOSIT", Amount: dec("-150.00"), Reference: "r3"},
	}

	res, err := svc.ImportTransactions(ctx, "fam", "u1", txns)
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "150.00", res.Added[0].Amount.StringFixed(2))
	assert.Equal(t, 110, res.Added[0].CategoryID)
	assert.Equal(t, "bank", res.Added[0].PaymentMethod)
	assert.Equal(t, "u1", res.Added[0].CreatedBy)

	require.Len(t, res.Skipped, 3)
	assert.Contains(t, res.Skipped[0].Reason, "duplicate")
	assert.Equal(t, "money in", res.Skipped[1].Reason)
	assert.Equal(t, "duplicate: same bank reference", res.Skipped[2].Reason)
	assert.Len(t, repo.rows, 2)
}

func TestImportTransactions_SameDayPurchases(t *testing.T) {
	export := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,01/04/2025,POS PURCHASE HI-LO ARIMA,-45.00,DEBIT_CARD,900.00,\n" +
		"DEBIT,01/04/2025,POS PURCHASE PRICESMART CHAGUANAS,-312.60,DEBIT_CARD,587.40,\n"
	txns, err := (&importer.LayoutParser{Layout: importer.ChaseLayout}).Parse(strings.NewReader(export))
	require.NoError(t, err)

	svc := newTestService(newMemRepo())
	ctx := context.Background()
	res, err := svc.ImportTransactions(ctx, "fam", "u1", txns)
	require.NoError(t, err)
	assert.Len(t, res.Added, 2)
	assert.Empty(t, res.Skipped)

	res, err = svc.ImportTransactions(ctx, "fam", "u1", txns)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "duplicate: same bank reference", res.Skipped[1].Reason)
}

func TestImportTransactions_Empty(t *testing.T) {
	res, err := newTestService(newMemRepo()).ImportTransactions(context.Background(), "fam", "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
}

func TestDuplicates(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	for _, d := range []int{3, 4} {
		_, err := svc.Add(ctx, model.Expense{FamilyID: "fam", Date: date(2025, 1, d), Amount: dec("40"), Vendor: "Digicel"})
		require.NoError(t, err)
	}

	pairs, err := svc.Duplicates(ctx, "fam", date(2025, 1, 1), date(2025, 1, 31))
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, 2)
	assert.Equal(t, date(2024, 2, 1), from)
	assert.Equal(t, date(2024, 2, 29), to)
}
