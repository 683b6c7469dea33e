package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExpenseLabel(t *testing.T) {
	tests := []struct {
		vendor string
		desc   string
		want   string
	}{
		{"Massy Stores", "groceries", "Massy Stores"},
		{"  ", "T&TEC bill", "T&TEC bill"},
		{"", "", ""},
		{" PriceSmart ", "", "PriceSmart"},
	}
	for _, tt := range tests {
		e := Expense{Vendor: tt.vendor, Description: tt.desc}
		assert.Equal(t, tt.want, e.Label(), "Label(%q, %q)", tt.vendor, tt.desc)
	}
}

func TestExpenseTagList(t *testing.T) {
	e := Expense{Tags: "school; ;uniforms;"}
	assert.Equal(t, []string{"school", "uniforms"}, e.TagList())
	assert.Nil(t, Expense{}.TagList())
}

func TestBudgetGroupValid(t *testing.T) {
	assert.True(t, GroupNeeds.Valid())
	assert.True(t, GroupWants.Valid())
	assert.True(t, GroupSavings.Valid())
	assert.False(t, BudgetGroup("luxuries").Valid())
}

func TestBankTransactionOutflow(t *testing.T) {
	debit := BankTransaction{Amount: decimal.RequireFromString("-245.60")}
	assert.True(t, debit.IsDebit())
	assert.Equal(t, "245.60", debit.Outflow().StringFixed(2))

	credit := BankTransaction{Amount: decimal.RequireFromString("8000")}
	assert.False(t, credit.IsDebit())
	assert.True(t, credit.Outflow().IsZero())
}
