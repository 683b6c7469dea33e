// Package budget splits income under the needs/wants/savings rule and
// tracks spending against it.
package budget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Groups lists the budget groups in display order.
var Groups = []model.BudgetGroup{model.GroupNeeds, model.GroupWants, model.GroupSavings}

// Rule holds whole-number percentages for each group.
type Rule struct {
	Needs   int `yaml:"needs" json:"needs"`
	Wants   int `yaml:"wants" json:"wants"`
	Savings int `yaml:"savings" json:"savings"`
}

// DefaultRule returns the 50/30/20 rule.
func DefaultRule() Rule {
	return Rule{Needs: 50, Wants: 30, Savings: 20}
}

// Validate checks that every share is non-negative and they add to 100.
func (r Rule) Validate() error {
	if r.Needs < 0 || r.Wants < 0 || r.Savings < 0 {
		return fmt.Errorf("budget rule %d/%d/%d has a negative share", r.Needs, r.Wants, r.Savings)
	}
	if sum := r.Needs + r.Wants + r.Savings; sum != 100 {
		return fmt.Errorf("budget rule %d/%d/%d adds to %d, want 100", r.Needs, r.Wants, r.Savings, sum)
	}
	return nil
}

// Percent returns the share for a group.
func (r Rule) Percent(g model.BudgetGroup) int {
	switch g {
	case model.GroupNeeds:
		return r.Needs
	case model.GroupWants:
		return r.Wants
	case model.GroupSavings:
		return r.Savings
	}
	return 0
}

func (r Rule) String() string {
	return fmt.Sprintf("%d/%d/%d", r.Needs, r.Wants, r.Savings)
}

// ParseRule reads a rule written as needs/wants/savings, e.g. "60/20/20".
func ParseRule(s string) (Rule, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Rule{}, fmt.Errorf("budget rule %q, want needs/wants/savings", s)
	}
	var pct [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rule{}, fmt.Errorf("budget rule %q: %w", s, err)
		}
		pct[i] = n
	}
	r := Rule{Needs: pct[0], Wants: pct[1], Savings: pct[2]}
	return r, r.Validate()
}

// Allocation is the amount set aside for one group.
type Allocation struct {
	Group   model.BudgetGroup `json:"group"`
	Percent int               `json:"percent"`
	Amount  decimal.Decimal   `json:"amount"`
}

// Plan is income split across the groups.
type Plan struct {
	Income      decimal.Decimal `json:"income"`
	Rule        Rule            `json:"rule"`
	Allocations []Allocation    `json:"allocations"`
}

// Amount returns the allocation for a group.
func (p Plan) Amount(g model.BudgetGroup) decimal.Decimal {
	for _, a := range p.Allocations {
		if a.Group == g {
			return a.Amount
		}
	}
	return decimal.Zero
}

// NewPlan splits income by rule. Needs and wants are truncated to cents
// and savings takes what is left, so the allocations always add up to
// income exactly.
func NewPlan(income decimal.Decimal, rule Rule) (Plan, error) {
	if err := rule.Validate(); err != nil {
		return Plan{}, err
	}
	if income.IsNegative() {
		return Plan{}, fmt.Errorf("income %s is negative", income.StringFixed(2))
	}
	income = income.Round(2)

	hundred := decimal.NewFromInt(100)
	share := func(pct int) decimal.Decimal {
		return income.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Truncate(2)
	}
	needs := share(rule.Needs)
	wants := share(rule.Wants)
	savings := income.Sub(needs).Sub(wants)

	return Plan{
		Income: income,
		Rule:   rule,
		Allocations: []Allocation{
			{Group: model.GroupNeeds, Percent: rule.Needs, Amount: needs},
			{Group: model.GroupWants, Percent: rule.Wants, Amount: wants},
			{Group: model.GroupSavings, Percent: rule.Savings, Amount: savings},
		},
	}, nil
}
