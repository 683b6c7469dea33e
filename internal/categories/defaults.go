package categories

import "github.com/nuacha-app/nuacha/internal/model"

// DefaultChart returns the default categories for a family kind.
func DefaultChart(kind model.FamilyKind) []model.Category {
	switch kind {
	case model.KindBusiness:
		return businessChart()
	default:
		return householdChart()
	}
}

func householdChart() []model.Category {
	return []model.Category{
		{ID: 100, Name: "Housing", Group: model.GroupNeeds, Description: "Rent, mortgage, property tax"},
		{ID: 110, Name: "Utilities", Group: model.GroupNeeds, Description: "Electricity, water, internet, phone"},
		{ID: 120, Name: "Groceries", Group: model.GroupNeeds},
		{ID: 130, Name: "Transport", Group: model.GroupNeeds, Description: "Fuel, maxi taxi, car maintenance"},
		{ID: 140, Name: "Insurance", Group: model.GroupNeeds},
		{ID: 150, Name: "Healthcare", Group: model.GroupNeeds, Description: "Doctor, pharmacy, dental"},
		{ID: 160, Name: "Childcare & Education", Group: model.GroupNeeds, Description: "School fees, books, uniforms"},
		{ID: 161, Name: "School Supplies", Group: model.GroupNeeds, ParentID: 160},
		{ID: 170, Name: "Loan Repayments", Group: model.GroupNeeds, Description: "Minimum debt payments"},
		{ID: 180, Name: "Household Help", Group: model.GroupNeeds, Description: "Domestic workers, gardeners"},
		{ID: 200, Name: "Dining Out", Group: model.GroupWants},
		{ID: 210, Name: "Entertainment", Group: model.GroupWants},
		{ID: 220, Name: "Shopping", Group: model.GroupWants, Description: "Clothing, electronics, home goods"},
		{ID: 230, Name: "Travel", Group: model.GroupWants},
		{ID: 240, Name: "Subscriptions", Group: model.GroupWants, Description: "Streaming and app subscriptions"},
		{ID: 250, Name: "Personal Care", Group: model.GroupWants},
		{ID: 260, Name: "Gifts & Donations", Group: model.GroupWants},
		{ID: 300, Name: "Emergency Fund", Group: model.GroupSavings},
		{ID: 310, Name: "Investments", Group: model.GroupSavings, Description: "Unit trusts, shares, credit union"},
		{ID: 320, Name: "Retirement", Group: model.GroupSavings},
		{ID: 330, Name: "Debt Overpayment", Group: model.GroupSavings, Description: "Payments above the minimum"},
	}
}

func businessChart() []model.Category {
	return []model.Category{
		{ID: 400, Name: "Rent & Premises", Group: model.GroupNeeds},
		{ID: 410, Name: "Utilities", Group: model.GroupNeeds},
		{ID: 420, Name: "Payroll", Group: model.GroupNeeds, Description: "Wages and salaries"},
		{ID: 430, Name: "NIS Contributions", Group: model.GroupNeeds, ParentID: 420, Description: "Employer national insurance"},
		{ID: 440, Name: "Inventory & Supplies", Group: model.GroupNeeds},
		{ID: 450, Name: "Transport & Fuel", Group: model.GroupNeeds},
		{ID: 460, Name: "Professional Services", Group: model.GroupNeeds, Description: "Legal, accounting, consulting"},
		{ID: 470, Name: "Insurance", Group: model.GroupNeeds},
		{ID: 480, Name: "Taxes & Fees", Group: model.GroupNeeds, Description: "VAT, business levy, licences"},
		{ID: 500, Name: "Marketing", Group: model.GroupWants},
		{ID: 510, Name: "Software & Subscriptions", Group: model.GroupWants},
		{ID: 520, Name: "Meals & Entertainment", Group: model.GroupWants},
		{ID: 530, Name: "Equipment", Group: model.GroupWants},
		{ID: 600, Name: "Reserves", Group: model.GroupSavings},
		{ID: 610, Name: "Capital Investment", Group: model.GroupSavings},
	}
}
