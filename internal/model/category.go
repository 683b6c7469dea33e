package model

// BudgetGroup classifies categories under the 50/30/20 rule.
type BudgetGroup string

const (
	GroupNeeds   BudgetGroup = "needs"
	GroupWants   BudgetGroup = "wants"
	GroupSavings BudgetGroup = "savings"
)

// Valid reports whether g is one of the known budget groups.
func (g BudgetGroup) Valid() bool {
	switch g {
	case GroupNeeds, GroupWants, GroupSavings:
		return true
	}
	return false
}

// Category represents a row in categories.csv.
type Category struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Group       BudgetGroup `json:"group"`
	ParentID    int         `json:"parent_id,omitempty"` // 0 = top-level
	Description string      `json:"description,omitempty"`
}
