package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbEmployee struct {
	ID        string          `db:"id"`
	FamilyID  string          `db:"family_id"`
	Name      string          `db:"name"`
	NISNumber string          `db:"nis_number"`
	Period    string          `db:"period"`
	Gross     decimal.Decimal `db:"gross"`
	Active    bool            `db:"active"`
	CreatedAt time.Time       `db:"created_at"`
}

func (e dbEmployee) toModel() model.Employee {
	return model.Employee{
		ID:        e.ID,
		FamilyID:  e.FamilyID,
		Name:      e.Name,
		NISNumber: e.NISNumber,
		Period:    model.PayPeriod(e.Period),
		Gross:     e.Gross,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
	}
}

type dbPayslip struct {
	ID              string          `db:"id"`
	EmployeeID      string          `db:"employee_id"`
	PeriodStart     string          `db:"period_start"`
	PeriodEnd       string          `db:"period_end"`
	Gross           decimal.Decimal `db:"gross"`
	NISEmployee     decimal.Decimal `db:"nis_employee"`
	NISEmployer     decimal.Decimal `db:"nis_employer"`
	HealthSurcharge decimal.Decimal `db:"health_surcharge"`
	PAYE            decimal.Decimal `db:"paye"`
	Net             decimal.Decimal `db:"net"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (p dbPayslip) toModel() (model.Payslip, error) {
	start, err := parseDate(p.PeriodStart)
	if err != nil {
		return model.Payslip{}, err
	}
	end, err := parseDate(p.PeriodEnd)
	if err != nil {
		return model.Payslip{}, err
	}
	return model.Payslip{
		ID:              p.ID,
		EmployeeID:      p.EmployeeID,
		PeriodStart:     start,
		PeriodEnd:       end,
		Gross:           p.Gross,
		NISEmployee:     p.NISEmployee,
		NISEmployer:     p.NISEmployer,
		HealthSurcharge: p.HealthSurcharge,
		PAYE:            p.PAYE,
		Net:             p.Net,
		CreatedAt:       p.CreatedAt,
	}, nil
}

const employeeColumns = `id, family_id, name, nis_number, period, gross, active, created_at`

// InsertEmployee stores a new employee.
func (s *Store) InsertEmployee(ctx context.Context, e *model.Employee) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.FamilyID, e.Name, e.NISNumber, string(e.Period), e.Gross, e.Active, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting employee: %w", err)
	}
	return nil
}

// GetEmployee returns one employee.
func (s *Store) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	var row dbEmployee
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+employeeColumns+` FROM employees WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee: %w", err)
	}
	e := row.toModel()
	return &e, nil
}

// ListEmployees returns a family's employees by name.
func (s *Store) ListEmployees(ctx context.Context, familyID string) ([]model.Employee, error) {
	var rows []dbEmployee
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT `+employeeColumns+` FROM employees
		WHERE family_id = ? ORDER BY name, id`), familyID)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	out := make([]model.Employee, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

const payslipColumns = `id, employee_id, period_start, period_end, gross, nis_employee, nis_employer,
	health_surcharge, paye, net, created_at`

// InsertPayslip stores a payslip. A reused payslip number returns
// model.ErrConflict.
func (s *Store) InsertPayslip(ctx context.Context, p *model.Payslip) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO payslips (`+payslipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.EmployeeID, formatDate(p.PeriodStart), formatDate(p.PeriodEnd), p.Gross, p.NISEmployee,
		p.NISEmployer, p.HealthSurcharge, p.PAYE, p.Net, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payslip %s: %w", p.ID, model.ErrConflict)
		}
		return fmt.Errorf("inserting payslip: %w", err)
	}
	return nil
}

// ListPayslips returns an employee's payslips, oldest first.
func (s *Store) ListPayslips(ctx context.Context, employeeID string) ([]model.Payslip, error) {
	var rows []dbPayslip
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT `+payslipColumns+` FROM payslips
		WHERE employee_id = ? ORDER BY period_start, id`), employeeID)
	if err != nil {
		return nil, fmt.Errorf("listing payslips: %w", err)
	}
	out := make([]model.Payslip, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PayslipIDs returns every payslip number starting with prefix.
func (s *Store) PayslipIDs(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.q(`SELECT id FROM payslips WHERE id LIKE ?`), prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("listing payslip numbers: %w", err)
	}
	return ids, nil
}
