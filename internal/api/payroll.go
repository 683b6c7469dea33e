package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/payroll"
)

// payResult is the JSON form of a payroll calculation.
type payResult struct {
	Period          model.PayPeriod `json:"period"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	Weeks           int             `json:"weeks"`
	Gross           decimal.Decimal `json:"gross"`
	NISClass        string          `json:"nis_class,omitempty"`
	NISFallback     bool            `json:"nis_fallback"`
	NISEmployee     decimal.Decimal `json:"nis_employee"`
	NISEmployer     decimal.Decimal `json:"nis_employer"`
	HealthSurcharge decimal.Decimal `json:"health_surcharge"`
	PAYE            decimal.Decimal `json:"paye"`
	Deductions      decimal.Decimal `json:"deductions"`
	Net             decimal.Decimal `json:"net"`
	EmployerCost    decimal.Decimal `json:"employer_cost"`
}

func newPayResult(r payroll.Result) payResult {
	return payResult{
		Period:          r.Period,
		PeriodStart:     r.PeriodStart.Format(dateLayout),
		PeriodEnd:       r.PeriodEnd.Format(dateLayout),
		Weeks:           r.Weeks,
		Gross:           r.Gross,
		NISClass:        r.NISWeekly.Class,
		NISFallback:     r.NISWeekly.Fallback,
		NISEmployee:     r.NISEmployee,
		NISEmployer:     r.NISEmployer,
		HealthSurcharge: r.HealthSurcharge,
		PAYE:            r.PAYE,
		Deductions:      r.Deductions(),
		Net:             r.Net,
		EmployerCost:    r.EmployerCost(),
	}
}

type calculateRequest struct {
	Gross       decimal.Decimal `json:"gross"`
	Period      model.PayPeriod `json:"period"`
	PeriodStart string          `json:"period_start"`
}

// calculatePay previews a pay run without storing anything.
func (s *Server) calculatePay(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		s.fail(c, err)
		return
	}
	if start.IsZero() {
		start = s.now().UTC().Truncate(24 * time.Hour)
	}
	if req.Period == "" {
		req.Period = model.PayMonthly
	}
	res, err := s.Payroll.Settings().Calculate(req.Gross, req.Period, start)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPayResult(res))
}

func (s *Server) listEmployees(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	list, err := s.Payroll.Employees(c.Request.Context(), familyID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Employee{}
	}
	c.JSON(http.StatusOK, list)
}

type employeeRequest struct {
	Name      string          `json:"name"`
	NISNumber string          `json:"nis_number"`
	Period    model.PayPeriod `json:"period"`
	Gross     decimal.Decimal `json:"gross"`
}

func (s *Server) addEmployee(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, true) {
		return
	}
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	e, err := s.Payroll.AddEmployee(c.Request.Context(), model.Employee{
		FamilyID:  familyID,
		Name:      req.Name,
		NISNumber: strings.TrimSpace(req.NISNumber),
		Period:    req.Period,
		Gross:     req.Gross,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// loadEmployee fetches an employee and checks the caller's access to its
// family.
func (s *Server) loadEmployee(c *gin.Context, write bool) (*model.Employee, bool) {
	e, err := s.Payroll.Employee(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if !s.member(c, e.FamilyID, write) {
		return nil, false
	}
	return e, true
}

func (s *Server) listPayslips(c *gin.Context) {
	e, ok := s.loadEmployee(c, false)
	if !ok {
		return
	}
	list, err := s.Payroll.Payslips(c.Request.Context(), e.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Payslip{}
	}
	c.JSON(http.StatusOK, list)
}

type payslipRequest struct {
	PeriodStart string          `json:"period_start"`
	Gross       decimal.Decimal `json:"gross"` // zero uses the employee's usual pay
}

func (s *Server) runPayroll(c *gin.Context) {
	e, ok := s.loadEmployee(c, true)
	if !ok {
		return
	}
	var req payslipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		s.fail(c, err)
		return
	}
	if start.IsZero() {
		badRequest(c, "period_start is required")
		return
	}
	slip, res, err := s.Payroll.Run(c.Request.Context(), e.ID, start, req.Gross)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payslip": slip, "calculation": newPayResult(res)})
}
