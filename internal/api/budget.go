package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/budget"
	"github.com/nuacha-app/nuacha/internal/model"
)

type planRequest struct {
	Income decimal.Decimal `json:"income"`
	Rule   *budget.Rule    `json:"rule"`
}

func (s *Server) budgetPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	rule := s.BudgetRule
	if req.Rule != nil {
		rule = *req.Rule
	}
	plan, err := budget.NewPlan(req.Income, rule)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", model.ErrInvalid, err))
		return
	}
	c.JSON(http.StatusOK, plan)
}

// familyBudget measures a month of a family's spending against a plan
// for the given income.
func (s *Server) familyBudget(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	year, month, err := parseMonth(c.Query("month"), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	income, err := decimal.NewFromString(c.Query("income"))
	if err != nil {
		badRequest(c, "income must be a number")
		return
	}
	plan, err := budget.NewPlan(income, s.BudgetRule)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", model.ErrInvalid, err))
		return
	}
	list, err := s.Expenses.Month(c.Request.Context(), familyID, year, month)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, budget.Summarize(plan, list, s.Categories))
}
