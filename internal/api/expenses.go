package api

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/duplicates"
	"github.com/nuacha-app/nuacha/internal/expenses"
	"github.com/nuacha-app/nuacha/internal/model"
)

// maxImportBytes limits an uploaded bank CSV.
const maxImportBytes = 5 << 20

type expenseRequest struct {
	Date          string          `json:"date"` // YYYY-MM-DD
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Vendor        string          `json:"vendor"`
	CategoryID    int             `json:"category_id"`
	PaymentMethod string          `json:"payment_method"`
	Tags          string          `json:"tags"`
	Notes         string          `json:"notes"`
}

func (r expenseRequest) expense() (model.Expense, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return model.Expense{}, err
	}
	return model.Expense{
		Date:          date,
		Amount:        r.Amount,
		Description:   strings.TrimSpace(r.Description),
		Vendor:        strings.TrimSpace(r.Vendor),
		CategoryID:    r.CategoryID,
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
		Tags:          r.Tags,
		Notes:         r.Notes,
	}, nil
}

func (s *Server) listExpenses(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		s.fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.Expenses.List(c.Request.Context(), familyID, from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Expense{}
	}
	c.JSON(http.StatusOK, list)
}

// addExpense stores an expense. Without a category one is suggested from
// the vendor and description.
func (s *Server) addExpense(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, true) {
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	e, err := req.expense()
	if err != nil {
		s.fail(c, err)
		return
	}
	e.FamilyID = familyID
	e.CreatedBy = currentUser(c)
	if e.CategoryID == 0 && s.Categorizer != nil {
		e.CategoryID = s.Categorizer.Suggest(c.Request.Context(), e.Vendor, e.Description).CategoryID
	}

	added, err := s.Expenses.Add(c.Request.Context(), e)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// loadExpense fetches an expense and checks the caller may change it.
func (s *Server) loadExpense(c *gin.Context) (*model.Expense, bool) {
	e, err := s.Expenses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if !s.member(c, e.FamilyID, true) {
		return nil, false
	}
	return e, true
}

func (s *Server) updateExpense(c *gin.Context) {
	current, ok := s.loadExpense(c)
	if !ok {
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	e, err := req.expense()
	if err != nil {
		s.fail(c, err)
		return
	}
	e.ID = current.ID
	e.ReceiptID = current.ReceiptID
	e.Reference = current.Reference

	updated, err := s.Expenses.Update(c.Request.Context(), e)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteExpense(c *gin.Context) {
	e, ok := s.loadExpense(c)
	if !ok {
		return
	}
	if err := s.Expenses.Delete(c.Request.Context(), e.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportExpenses(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		s.fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.Expenses.Export(c.Request.Context(), &buf, familyID, from, to); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="expenses.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type skippedRow struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason"`
}

// importExpenses records the debits of an uploaded bank CSV.
func (s *Server) importExpenses(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, true) {
		return
	}
	format := c.DefaultPostForm("format", "auto")
	parser := s.Importers.Get(format)
	if parser == nil {
		badRequest(c, fmt.Sprintf("unknown format %q (have %s)", format, strings.Join(s.Importers.Formats(), ", ")))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fh.Size > maxImportBytes {
		badRequest(c, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer f.Close()

	txns, err := parser.Parse(f)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", model.ErrInvalid, err))
		return
	}
	res, err := s.Expenses.ImportTransactions(c.Request.Context(), familyID, currentUser(c), txns)
	if err != nil {
		s.fail(c, err)
		return
	}

	skipped := make([]skippedRow, len(res.Skipped))
	for i, sk := range res.Skipped {
		skipped[i] = skippedRow{
			Date:        sk.Transaction.Date.Format(dateLayout),
			Description: sk.Transaction.Description,
			Amount:      sk.Transaction.Amount.StringFixed(2),
			Reason:      sk.Reason,
		}
	}
	added := res.Added
	if added == nil {
		added = []model.Expense{}
	}
	c.JSON(http.StatusOK, gin.H{"format": parser.Format(), "added": added, "skipped": skipped})
}

func (s *Server) findDuplicates(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		s.fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		s.fail(c, err)
		return
	}
	pairs, err := s.Expenses.Duplicates(c.Request.Context(), familyID, from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	if pairs == nil {
		pairs = []duplicates.Pair{}
	}
	c.JSON(http.StatusOK, pairs)
}

type categoryTotal struct {
	CategoryID int             `json:"category_id"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
}

func (s *Server) monthSummary(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	year, month, err := parseMonth(c.Query("month"), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	sum, err := s.Expenses.MonthSummary(c.Request.Context(), familyID, year, month)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month":       fmt.Sprintf("%04d-%02d", year, month),
		"count":       sum.Count,
		"total":       sum.Total.StringFixed(2),
		"by_category": s.categoryTotals(sum),
	})
}

func (s *Server) categoryTotals(sum expenses.Summary) []categoryTotal {
	ids := make([]int, 0, len(sum.ByCategory))
	for id := range sum.ByCategory {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]categoryTotal, 0, len(ids))
	for _, id := range ids {
		name := "Uncategorised"
		if cat, ok := s.Categories.Get(id); ok {
			name = cat.Name
		}
		out = append(out, categoryTotal{CategoryID: id, Category: name, Amount: sum.ByCategory[id]})
	}
	return out
}
