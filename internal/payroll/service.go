package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/id"
	"github.com/nuacha-app/nuacha/internal/model"
)

// Repository persists employees and payslips.
type Repository interface {
	InsertEmployee(ctx context.Context, e *model.Employee) error
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context, familyID string) ([]model.Employee, error)
	InsertPayslip(ctx context.Context, p *model.Payslip) error
	ListPayslips(ctx context.Context, employeeID string) ([]model.Payslip, error)
	PayslipIDs(ctx context.Context, prefix string) ([]string, error)
}

// Service manages employees and their pay runs.
type Service struct {
	repo     Repository
	settings Settings
	now      func() time.Time
}

// NewService creates a payroll Service.
func NewService(repo Repository, settings Settings) *Service {
	return &Service{repo: repo, settings: settings, now: time.Now}
}

// Settings returns the rates the service calculates with.
func (s *Service) Settings() Settings {
	return s.settings
}

// AddEmployee validates and stores an employee.
func (s *Service) AddEmployee(ctx context.Context, e model.Employee) (model.Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return model.Employee{}, fmt.Errorf("%w: employee name is required", model.ErrInvalid)
	}
	if _, err := PeriodsPerYear(e.Period); err != nil {
		return model.Employee{}, err
	}
	if e.Gross.IsNegative() {
		return model.Employee{}, fmt.Errorf("%w: gross pay %s is negative", model.ErrInvalid, e.Gross.StringFixed(2))
	}
	e.ID = id.New()
	e.Active = true
	e.CreatedAt = s.now().UTC()
	if err := s.repo.InsertEmployee(ctx, &e); err != nil {
		return model.Employee{}, fmt.Errorf("inserting employee: %w", err)
	}
	return e, nil
}

// Employees lists a family's employees.
func (s *Service) Employees(ctx context.Context, familyID string) ([]model.Employee, error) {
	return s.repo.ListEmployees(ctx, familyID)
}

// Employee returns one employee.
func (s *Service) Employee(ctx context.Context, employeeID string) (*model.Employee, error) {
	return s.repo.GetEmployee(ctx, employeeID)
}

// Payslips lists an employee's payslips.
func (s *Service) Payslips(ctx context.Context, employeeID string) ([]model.Payslip, error) {
	return s.repo.ListPayslips(ctx, employeeID)
}

// Run calculates and stores a payslip for the period starting at
// periodStart. A zero gross uses the employee's usual pay.
func (s *Service) Run(ctx context.Context, employeeID string, periodStart time.Time, gross decimal.Decimal) (model.Payslip, Result, error) {
	emp, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return model.Payslip{}, Result{}, fmt.Errorf("loading employee %s: %w", employeeID, err)
	}
	if !emp.Active {
		return model.Payslip{}, Result{}, fmt.Errorf("%w: employee %s is inactive", model.ErrInvalid, employeeID)
	}
	if gross.IsZero() {
		gross = emp.Gross
	}

	res, err := s.settings.Calculate(gross, emp.Period, periodStart)
	if err != nil {
		return model.Payslip{}, Result{}, err
	}

	year, month := res.PeriodStart.Year(), int(res.PeriodStart.Month())
	prefix := fmt.Sprintf("%s-%04d-%02d-", id.PayslipPrefix, year, month)
	existing, err := s.repo.PayslipIDs(ctx, prefix)
	if err != nil {
		return model.Payslip{}, Result{}, fmt.Errorf("listing payslip numbers: %w", err)
	}
	payslipID := id.FormatPayslipID(year, month, id.NextSeq(existing, id.PayslipPrefix, year, month))

	slip := res.Payslip(payslipID, emp.ID)
	slip.CreatedAt = s.now().UTC()
	if err := s.repo.InsertPayslip(ctx, &slip); err != nil {
		return model.Payslip{}, Result{}, fmt.Errorf("inserting payslip: %w", err)
	}
	return slip, res, nil
}
