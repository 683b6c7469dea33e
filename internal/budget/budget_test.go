package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/categories"
	"github.com/nuacha-app/nuacha/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRule_Validate(t *testing.T) {
	require.NoError(t, DefaultRule().Validate())
	assert.ErrorContains(t, Rule{Needs: 50, Wants: 30, Savings: 30}.Validate(), "adds to 110")
	assert.ErrorContains(t, Rule{Needs: 120, Wants: -20, Savings: 0}.Validate(), "negative")
	assert.Equal(t, "50/30/20", DefaultRule().String())
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule(" 60 / 20 / 20 ")
	require.NoError(t, err)
	assert.Equal(t, Rule{Needs: 60, Wants: 20, Savings: 20}, r)
	assert.Equal(t, "60/20/20", r.String())

	_, err = ParseRule("50/30")
	assert.ErrorContains(t, err, "want needs/wants/savings")
	_, err = ParseRule("50/thirty/20")
	assert.Error(t, err)
	_, err = ParseRule("50/30/30")
	assert.ErrorContains(t, err, "adds to 110")
}

func TestNewPlan_Default(t *testing.T) {
	p, err := NewPlan(dec("10000"), DefaultRule())
	require.NoError(t, err)
	assert.Equal(t, "5000.00", p.Amount(model.GroupNeeds).StringFixed(2))
	assert.Equal(t, "3000.00", p.Amount(model.GroupWants).StringFixed(2))
	assert.Equal(t, "2000.00", p.Amount(model.GroupSavings).StringFixed(2))
}

func TestNewPlan_RemainderGoesToSavings(t *testing.T) {
	tests := []string{"100.01", "3333.33", "0.05", "12345.67"}
	for _, income := range tests {
		p, err := NewPlan(dec(income), Rule{Needs: 33, Wants: 33, Savings: 34})
		require.NoError(t, err)
		total := decimal.Zero
		for _, a := range p.Allocations {
			total = total.Add(a.Amount)
		}
		assert.True(t, total.Equal(dec(income)), "allocations for %s add to %s", income, total)
	}

	p, err := NewPlan(dec("100.01"), DefaultRule())
	require.NoError(t, err)
	assert.Equal(t, "50.00", p.Amount(model.GroupNeeds).StringFixed(2))
	assert.Equal(t, "30.00", p.Amount(model.GroupWants).StringFixed(2))
	assert.Equal(t, "20.01", p.Amount(model.GroupSavings).StringFixed(2))
}

func TestNewPlan_Errors(t *testing.T) {
	_, err := NewPlan(dec("-1"), DefaultRule())
	assert.ErrorContains(t, err, "negative")
	_, err = NewPlan(dec("100"), Rule{})
	assert.ErrorContains(t, err, "adds to 0")
}

func TestSummarize(t *testing.T) {
	cats := categories.NewService(categories.DefaultChart(model.KindHousehold))
	plan, err := NewPlan(dec("1000"), DefaultRule())
	require.NoError(t, err)

	expenses := []model.Expense{
		{Amount: dec("300"), CategoryID: 100},
		{Amount: dec("250"), CategoryID: 110},
		{Amount: dec("75.50"), CategoryID: 200},
		{Amount: dec("20"), CategoryID: 0},
		{Amount: dec("5"), CategoryID: 999},
	}
	s := Summarize(plan, expenses, cats)

	needs := s.Group(model.GroupNeeds)
	assert.Equal(t, "550.00", needs.Spent.StringFixed(2))
	assert.Equal(t, "-50.00", needs.Remaining.StringFixed(2))
	assert.True(t, needs.Over)
	assert.Equal(t, "110.0", needs.PercentUsed.StringFixed(1))

	wants := s.Group(model.GroupWants)
	assert.Equal(t, "224.50", wants.Remaining.StringFixed(2))
	assert.False(t, wants.Over)
	assert.Equal(t, "25.2", wants.PercentUsed.StringFixed(1))

	savings := s.Group(model.GroupSavings)
	assert.True(t, savings.Spent.IsZero())
	assert.Equal(t, "200.00", savings.Remaining.StringFixed(2))

	assert.Equal(t, "25.00", s.Uncategorised.StringFixed(2))
	assert.Equal(t, "650.50", s.Spent.StringFixed(2))
}

func TestSummarize_ZeroBudget(t *testing.T) {
	cats := categories.NewService(categories.DefaultChart(model.KindHousehold))
	plan, err := NewPlan(decimal.Zero, DefaultRule())
	require.NoError(t, err)
	s := Summarize(plan, []model.Expense{{Amount: dec("10"), CategoryID: 200}}, cats)
	wants := s.Group(model.GroupWants)
	assert.True(t, wants.Over)
	assert.True(t, wants.PercentUsed.IsZero())
}
