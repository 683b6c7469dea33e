package budget

import (
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// GroupLookup maps a category to its budget group.
type GroupLookup interface {
	GroupOf(categoryID int) (model.BudgetGroup, bool)
}

// GroupSummary compares one group's spending with its allocation.
type GroupSummary struct {
	Group       model.BudgetGroup `json:"group"`
	Budgeted    decimal.Decimal   `json:"budgeted"`
	Spent       decimal.Decimal   `json:"spent"`
	Remaining   decimal.Decimal   `json:"remaining"`
	PercentUsed decimal.Decimal   `json:"percent_used"`
	Over        bool              `json:"over"`
}

// Summary is a plan measured against actual spending.
type Summary struct {
	Plan          Plan            `json:"plan"`
	Groups        []GroupSummary  `json:"groups"`
	Spent         decimal.Decimal `json:"spent"`
	Uncategorised decimal.Decimal `json:"uncategorised"`
}

// Group returns the summary line for g.
func (s Summary) Group(g model.BudgetGroup) GroupSummary {
	for _, gs := range s.Groups {
		if gs.Group == g {
			return gs
		}
	}
	return GroupSummary{Group: g}
}

// Summarize totals expenses per budget group. Expenses without a category,
// or whose category is not in the chart, count as uncategorised.
func Summarize(plan Plan, expenses []model.Expense, lookup GroupLookup) Summary {
	spent := make(map[model.BudgetGroup]decimal.Decimal, len(Groups))
	sum := Summary{Plan: plan, Spent: decimal.Zero, Uncategorised: decimal.Zero}

	for _, e := range expenses {
		sum.Spent = sum.Spent.Add(e.Amount)
		g, ok := lookup.GroupOf(e.CategoryID)
		if e.CategoryID == 0 || !ok {
			sum.Uncategorised = sum.Uncategorised.Add(e.Amount)
			continue
		}
		spent[g] = spent[g].Add(e.Amount)
	}

	hundred := decimal.NewFromInt(100)
	for _, g := range Groups {
		gs := GroupSummary{
			Group:       g,
			Budgeted:    plan.Amount(g),
			Spent:       spent[g],
			PercentUsed: decimal.Zero,
		}
		gs.Remaining = gs.Budgeted.Sub(gs.Spent)
		gs.Over = gs.Remaining.IsNegative()
		if gs.Budgeted.IsPositive() {
			gs.PercentUsed = gs.Spent.Div(gs.Budgeted).Mul(hundred).Round(1)
		}
		sum.Groups = append(sum.Groups, gs)
	}
	return sum
}
