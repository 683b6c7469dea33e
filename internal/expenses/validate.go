package expenses

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Rules checked by ValidateExpenses.
const (
	RulePositiveAmount = 1
	RuleCents          = 2
	RuleKnownCategory  = 3
	RuleDate           = 4
	RuleLabel          = 5
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule        int
	ExpenseID   string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rule %d [%s]: %s", e.Rule, e.ExpenseID, e.Description)
}

// ValidationErrors is returned by Service methods that reject input.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, ve := range v {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// CategoryChecker tests whether a category ID exists in the chart.
type CategoryChecker interface {
	Exists(id int) bool
}

// ValidateExpenses checks each expense against the recording rules.
// Category 0 means uncategorised and is allowed.
func ValidateExpenses(expenses []model.Expense, cats CategoryChecker, now time.Time) []ValidationError {
	var errs []ValidationError
	hundred := decimal.NewFromInt(100)
	latest := now.AddDate(0, 0, 1)

	for _, e := range expenses {
		// Rule 1: Amount is positive.
		if !e.Amount.IsPositive() {
			errs = append(errs, ValidationError{
				Rule:        RulePositiveAmount,
				ExpenseID:   e.ID,
				Description: fmt.Sprintf("amount %s must be positive", e.Amount.StringFixed(2)),
			})
		}

		// Rule 2: No more than 2 decimal places.
		if !e.Amount.Mul(hundred).Equal(e.Amount.Mul(hundred).Floor()) {
			errs = append(errs, ValidationError{
				Rule:        RuleCents,
				ExpenseID:   e.ID,
				Description: fmt.Sprintf("amount %s has more than 2 decimal places", e.Amount),
			})
		}

		// Rule 3: Known category.
		if e.CategoryID != 0 && !cats.Exists(e.CategoryID) {
			errs = append(errs, ValidationError{
				Rule:        RuleKnownCategory,
				ExpenseID:   e.ID,
				Description: fmt.Sprintf("unknown category %d", e.CategoryID),
			})
		}

		// Rule 4: Dated, and not in the future.
		switch {
		case e.Date.IsZero():
			errs = append(errs, ValidationError{
				Rule:        RuleDate,
				ExpenseID:   e.ID,
				Description: "date is required",
			})
		case e.Date.After(latest):
			errs = append(errs, ValidationError{
				Rule:        RuleDate,
				ExpenseID:   e.ID,
				Description: fmt.Sprintf("date %s is in the future", e.Date.Format(dateFormat)),
			})
		}

		// Rule 5: Something to show in a list.
		if e.Label() == "" {
			errs = append(errs, ValidationError{
				Rule:        RuleLabel,
				ExpenseID:   e.ID,
				Description: "description or vendor is required",
			})
		}
	}

	return errs
}
