package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayPeriod is how often an employee is paid.
type PayPeriod string

const (
	PayWeekly      PayPeriod = "weekly"
	PayFortnightly PayPeriod = "fortnightly"
	PayMonthly     PayPeriod = "monthly"
)

// Employee is someone paid from a family's or business's books.
type Employee struct {
	ID        string          `json:"id"`
	FamilyID  string          `json:"family_id"`
	Name      string          `json:"name"`
	NISNumber string          `json:"nis_number,omitempty"`
	Period    PayPeriod       `json:"period"`
	Gross     decimal.Decimal `json:"gross"` // gross pay per period
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payslip records one pay run for an employee.
type Payslip struct {
	ID              string          `json:"id"` // "PS-2025-01-001"
	EmployeeID      string          `json:"employee_id"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	Gross           decimal.Decimal `json:"gross"`
	NISEmployee     decimal.Decimal `json:"nis_employee"`
	NISEmployer     decimal.Decimal `json:"nis_employer"`
	HealthSurcharge decimal.Decimal `json:"health_surcharge"`
	PAYE            decimal.Decimal `json:"paye"`
	Net             decimal.Decimal `json:"net"`
	CreatedAt       time.Time       `json:"created_at"`
}
