package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/money"
)

// Settings holds the statutory rates used for a pay run.
type Settings struct {
	NIS                      NISTable        `yaml:"nis"`
	HealthSurchargeHigh      decimal.Decimal `yaml:"health_surcharge_high"`      // weekly, at or above the threshold
	HealthSurchargeLow       decimal.Decimal `yaml:"health_surcharge_low"`       // weekly, below the threshold
	HealthSurchargeThreshold decimal.Decimal `yaml:"health_surcharge_threshold"` // weekly earnings
	PersonalAllowance        decimal.Decimal `yaml:"personal_allowance"`         // annual
	PAYERate                 decimal.Decimal `yaml:"paye_rate"`
	PAYEHigherRate           decimal.Decimal `yaml:"paye_higher_rate"`
	PAYEHigherBand           decimal.Decimal `yaml:"paye_higher_band"` // annual chargeable income
}

// DefaultSettings returns the current Trinidad and Tobago rates.
func DefaultSettings() Settings {
	return Settings{
		NIS:                      DefaultNISTable(),
		HealthSurchargeHigh:      d("8.25"),
		HealthSurchargeLow:       d("4.80"),
		HealthSurchargeThreshold: d("470.00"),
		PersonalAllowance:        d("90000"),
		PAYERate:                 d("0.25"),
		PAYEHigherRate:           d("0.30"),
		PAYEHigherBand:           d("1000000"),
	}
}

// Result is a computed pay run.
type Result struct {
	Period          model.PayPeriod
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Weeks           int
	Gross           decimal.Decimal
	WeeklyGross     decimal.Decimal
	NISWeekly       NISResult
	NISEmployee     decimal.Decimal
	NISEmployer     decimal.Decimal
	HealthSurcharge decimal.Decimal
	PAYE            decimal.Decimal
	Net             decimal.Decimal
}

// Deductions is everything withheld from the employee.
func (r Result) Deductions() decimal.Decimal {
	return r.NISEmployee.Add(r.HealthSurcharge).Add(r.PAYE)
}

// EmployerCost is gross pay plus the employer's NIS share.
func (r Result) EmployerCost() decimal.Decimal {
	return r.Gross.Add(r.NISEmployer)
}

// Payslip converts the result into a payslip record.
func (r Result) Payslip(payslipID, employeeID string) model.Payslip {
	return model.Payslip{
		ID:              payslipID,
		EmployeeID:      employeeID,
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		Gross:           r.Gross,
		NISEmployee:     r.NISEmployee,
		NISEmployer:     r.NISEmployer,
		HealthSurcharge: r.HealthSurcharge,
		PAYE:            r.PAYE,
		Net:             r.Net,
	}
}

// PeriodsPerYear returns how many pay periods of p fall in a year.
func PeriodsPerYear(p model.PayPeriod) (int, error) {
	switch p {
	case model.PayWeekly:
		return 52, nil
	case model.PayFortnightly:
		return 26, nil
	case model.PayMonthly:
		return 12, nil
	}
	return 0, fmt.Errorf("%w: unknown pay period %q", model.ErrInvalid, p)
}

// PeriodBounds returns the start, end and number of NIS weeks of the pay
// period beginning at start. Monthly periods run for the calendar month
// containing start and count its Mondays, since NIS is due for every
// Monday in the period.
func PeriodBounds(p model.PayPeriod, start time.Time) (time.Time, time.Time, int, error) {
	y, m, day := start.Date()
	start = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

	switch p {
	case model.PayWeekly:
		return start, start.AddDate(0, 0, 6), 1, nil
	case model.PayFortnightly:
		return start, start.AddDate(0, 0, 13), 2, nil
	case model.PayMonthly:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return first, last, countMondays(first, last), nil
	}
	return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: unknown pay period %q", model.ErrInvalid, p)
}

func countMondays(from, to time.Time) int {
	n := 0
	for t := from; !t.After(to); t = t.AddDate(0, 0, 1) {
		if t.Weekday() == time.Monday {
			n++
		}
	}
	return n
}

// Calculate computes one pay run of gross pay for the period starting at
// periodStart.
func (s Settings) Calculate(gross decimal.Decimal, period model.PayPeriod, periodStart time.Time) (Result, error) {
	if gross.IsNegative() {
		return Result{}, fmt.Errorf("%w: gross pay %s is negative", model.ErrInvalid, gross.StringFixed(2))
	}
	perYear, err := PeriodsPerYear(period)
	if err != nil {
		return Result{}, err
	}
	start, end, weeks, err := PeriodBounds(period, periodStart)
	if err != nil {
		return Result{}, err
	}

	weeksDec := decimal.NewFromInt(int64(weeks))
	res := Result{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Weeks:       weeks,
		Gross:       money.Round(gross),
		WeeklyGross: money.Round(gross.Div(weeksDec)),
	}

	res.NISWeekly = s.NIS.Calculate(res.WeeklyGross)
	res.NISEmployee = res.NISWeekly.Employee.Mul(weeksDec)
	res.NISEmployer = res.NISWeekly.Employer.Mul(weeksDec)

	surcharge := s.HealthSurchargeLow
	if res.WeeklyGross.GreaterThanOrEqual(s.HealthSurchargeThreshold) {
		surcharge = s.HealthSurchargeHigh
	}
	if res.Gross.IsZero() {
		surcharge = decimal.Zero
	}
	res.HealthSurcharge = surcharge.Mul(weeksDec)

	res.PAYE = s.PAYE(res.Gross, perYear)
	res.Net = res.Gross.Sub(res.Deductions())
	return res, nil
}

// PAYE returns the income tax withheld from one period's gross pay, found
// by annualising the pay, taxing what exceeds the personal allowance and
// spreading the annual tax evenly across the periods.
func (s Settings) PAYE(gross decimal.Decimal, periodsPerYear int) decimal.Decimal {
	perYear := decimal.NewFromInt(int64(periodsPerYear))
	chargeable := gross.Mul(perYear).Sub(s.PersonalAllowance)
	if !chargeable.IsPositive() {
		return decimal.Zero
	}

	var annual decimal.Decimal
	if !s.PAYEHigherBand.IsZero() && chargeable.GreaterThan(s.PAYEHigherBand) {
		annual = s.PAYEHigherBand.Mul(s.PAYERate).
			Add(chargeable.Sub(s.PAYEHigherBand).Mul(s.PAYEHigherRate))
	} else {
		annual = chargeable.Mul(s.PAYERate)
	}
	return money.Round(annual.Div(perYear))
}
