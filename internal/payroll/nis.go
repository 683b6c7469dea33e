// Package payroll calculates Trinidad and Tobago pay runs: National
// Insurance (NIS), health surcharge and PAYE income tax.
package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/money"
)

// Class is one NIS earnings class. Contributions are charged on the
// class's assumed weekly earnings rather than on actual pay.
type Class struct {
	Name    string          `yaml:"name"`
	Min     decimal.Decimal `yaml:"min"`
	Max     decimal.Decimal `yaml:"max"` // zero = no upper bound
	Assumed decimal.Decimal `yaml:"assumed"`
}

// NISTable holds the weekly earnings classes and the contribution rate.
type NISTable struct {
	Rate          decimal.Decimal `yaml:"rate"`           // total contribution rate, e.g. 0.138
	EmployerShare decimal.Decimal `yaml:"employer_share"` // fraction paid by the employer
	Classes       []Class         `yaml:"classes"`
}

// NISResult is the weekly contribution for one employee.
type NISResult struct {
	Class    string // empty when the percentage fallback applied
	Fallback bool
	Insured  decimal.Decimal // earnings the rate was applied to
	Employee decimal.Decimal
	Employer decimal.Decimal
	Total    decimal.Decimal
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultNISTable returns the sixteen weekly classes at 13.8%, two thirds
// paid by the employer.
func DefaultNISTable() NISTable {
	return NISTable{
		Rate:          d("0.138"),
		EmployerShare: decimal.NewFromInt(2).Div(decimal.NewFromInt(3)),
		Classes: []Class{
			{Name: "I", Min: d("200.00"), Max: d("339.99"), Assumed: d("270.00")},
			{Name: "II", Min: d("340.00"), Max: d("449.99"), Assumed: d("395.00")},
			{Name: "III", Min: d("450.00"), Max: d("609.99"), Assumed: d("530.00")},
			{Name: "IV", Min: d("610.00"), Max: d("759.99"), Assumed: d("685.00")},
			{Name: "V", Min: d("760.00"), Max: d("929.99"), Assumed: d("845.00")},
			{Name: "VI", Min: d("930.00"), Max: d("1119.99"), Assumed: d("1025.00")},
			{Name: "VII", Min: d("1120.00"), Max: d("1299.99"), Assumed: d("1210.00")},
			{Name: "VIII", Min: d("1300.00"), Max: d("1489.99"), Assumed: d("1395.00")},
			{Name: "IX", Min: d("1490.00"), Max: d("1709.99"), Assumed: d("1600.00")},
			{Name: "X", Min: d("1710.00"), Max: d("1909.99"), Assumed: d("1810.00")},
			{Name: "XI", Min: d("1910.00"), Max: d("2139.99"), Assumed: d("2025.00")},
			{Name: "XII", Min: d("2140.00"), Max: d("2379.99"), Assumed: d("2260.00")},
			{Name: "XIII", Min: d("2380.00"), Max: d("2629.99"), Assumed: d("2505.00")},
			{Name: "XIV", Min: d("2630.00"), Max: d("2919.99"), Assumed: d("2775.00")},
			{Name: "XV", Min: d("2920.00"), Max: d("3137.99"), Assumed: d("3029.00")},
			{Name: "XVI", Min: d("3138.00"), Assumed: d("3138.00")},
		},
	}
}

// Lookup finds the class for weekly earnings. Earnings above the top
// class use the top class. It reports false when the earnings are below
// the lowest class or the table is empty.
func (t NISTable) Lookup(weekly decimal.Decimal) (Class, bool) {
	if len(t.Classes) == 0 {
		return Class{}, false
	}
	for _, c := range t.Classes {
		if weekly.LessThan(c.Min) {
			continue
		}
		// Earnings between two classes' bounds (e.g. 339.995) belong to
		// the lower class.
		if c.Max.IsZero() || weekly.LessThan(c.Max.Add(d("0.01"))) {
			return c, true
		}
	}
	top := t.Classes[len(t.Classes)-1]
	if weekly.GreaterThanOrEqual(top.Min) {
		return top, true
	}
	return Class{}, false
}

// Calculate returns the weekly NIS contribution for weekly earnings.
// Earnings that fall in no class are charged the rate on actual earnings.
func (t NISTable) Calculate(weekly decimal.Decimal) NISResult {
	if !weekly.IsPositive() {
		return NISResult{Insured: decimal.Zero, Employee: decimal.Zero, Employer: decimal.Zero, Total: decimal.Zero}
	}

	res := NISResult{Insured: weekly, Fallback: true}
	if c, ok := t.Lookup(weekly); ok {
		res = NISResult{Class: c.Name, Insured: c.Assumed}
	}

	res.Total = money.Round(res.Insured.Mul(t.Rate))
	res.Employer = money.Round(res.Total.Mul(t.EmployerShare))
	res.Employee = res.Total.Sub(res.Employer)
	return res
}

// CalculateNIS applies the default contribution table to weekly earnings.
func CalculateNIS(weekly decimal.Decimal) NISResult {
	return DefaultNISTable().Calculate(weekly)
}
