package expenses

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/duplicates"
	"github.com/nuacha-app/nuacha/internal/id"
	"github.com/nuacha-app/nuacha/internal/model"
)

// Repository persists expenses.
type Repository interface {
	InsertExpense(ctx context.Context, e *model.Expense) error
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	ListExpenses(ctx context.Context, familyID string, from, to time.Time) ([]model.Expense, error)
}

// Categorizer picks a category for an imported bank transaction.
type Categorizer interface {
	CategoryFor(ctx context.Context, vendor, description string) (int, error)
}

// Service provides business logic for expenses.
type Service struct {
	repo        Repository
	cats        CategoryChecker
	dupOpts     duplicates.Options
	categorizer Categorizer
	now         func() time.Time
}

// NewService creates an expense Service.
func NewService(repo Repository, cats CategoryChecker, dupOpts duplicates.Options) *Service {
	return &Service{repo: repo, cats: cats, dupOpts: dupOpts, now: time.Now}
}

// WithCategorizer sets the categorizer used by ImportTransactions.
func (s *Service) WithCategorizer(c Categorizer) *Service {
	s.categorizer = c
	return s
}

// Add validates and stores a new expense, returning it with its ID set.
func (s *Service) Add(ctx context.Context, e model.Expense) (model.Expense, error) {
	e.ID = id.New()
	e.Date = civil(e.Date)
	e.CreatedAt = s.now().UTC()
	if verrs := ValidateExpenses([]model.Expense{e}, s.cats, s.now()); len(verrs) > 0 {
		return model.Expense{}, ValidationErrors(verrs)
	}
	if err := s.repo.InsertExpense(ctx, &e); err != nil {
		return model.Expense{}, fmt.Errorf("inserting expense: %w", err)
	}
	return e, nil
}

// Update replaces an existing expense. FamilyID, CreatedBy and CreatedAt
// are kept from the stored row.
func (s *Service) Update(ctx context.Context, e model.Expense) (model.Expense, error) {
	current, err := s.repo.GetExpense(ctx, e.ID)
	if err != nil {
		return model.Expense{}, fmt.Errorf("loading expense %s: %w", e.ID, err)
	}
	e.FamilyID = current.FamilyID
	e.CreatedBy = current.CreatedBy
	e.CreatedAt = current.CreatedAt
	e.Date = civil(e.Date)

	if verrs := ValidateExpenses([]model.Expense{e}, s.cats, s.now()); len(verrs) > 0 {
		return model.Expense{}, ValidationErrors(verrs)
	}
	if err := s.repo.UpdateExpense(ctx, &e); err != nil {
		return model.Expense{}, fmt.Errorf("updating expense: %w", err)
	}
	return e, nil
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, expenseID string) (*model.Expense, error) {
	return s.repo.GetExpense(ctx, expenseID)
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, expenseID string) error {
	if err := s.repo.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("deleting expense %s: %w", expenseID, err)
	}
	return nil
}

// List returns a family's expenses dated within [from, to], oldest first.
func (s *Service) List(ctx context.Context, familyID string, from, to time.Time) ([]model.Expense, error) {
	list, err := s.repo.ListExpenses(ctx, familyID, civil(from), civil(to))
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return list, nil
}

// Month returns a family's expenses for a calendar month.
func (s *Service) Month(ctx context.Context, familyID string, year, month int) ([]model.Expense, error) {
	from, to := MonthRange(year, month)
	return s.List(ctx, familyID, from, to)
}

// Summary totals a set of expenses.
type Summary struct {
	Count      int
	Total      decimal.Decimal
	ByCategory map[int]decimal.Decimal // 0 = uncategorised
}

// Summarize totals expenses overall and per category.
func Summarize(list []model.Expense) Summary {
	sum := Summary{Total: decimal.Zero, ByCategory: make(map[int]decimal.Decimal)}
	for _, e := range list {
		sum.Count++
		sum.Total = sum.Total.Add(e.Amount)
		sum.ByCategory[e.CategoryID] = sum.ByCategory[e.CategoryID].Add(e.Amount)
	}
	return sum
}

// MonthSummary totals a family's spend for a calendar month.
func (s *Service) MonthSummary(ctx context.Context, familyID string, year, month int) (Summary, error) {
	list, err := s.Month(ctx, familyID, year, month)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(list), nil
}

// Export writes a family's expenses in [from, to] as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, familyID string, from, to time.Time) error {
	list, err := s.List(ctx, familyID, from, to)
	if err != nil {
		return err
	}
	if err := WriteExpenses(w, list); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Duplicates returns suspected duplicate pairs among a family's expenses
// dated within [from, to].
func (s *Service) Duplicates(ctx context.Context, familyID string, from, to time.Time) ([]duplicates.Pair, error) {
	list, err := s.List(ctx, familyID, from, to)
	if err != nil {
		return nil, err
	}
	return duplicates.Find(list, s.dupOpts), nil
}

// Skipped is a bank transaction that ImportTransactions did not record.
type Skipped struct {
	Transaction model.BankTransaction
	Reason      string
}

// ImportResult reports what ImportTransactions did.
type ImportResult struct {
	Added   []model.Expense
	Skipped []Skipped
}

// ImportTransactions records money-out bank transactions as expenses for a
// family. Credits and likely duplicates of existing expenses (or of rows
// earlier in the same batch) are skipped.
func (s *Service) ImportTransactions(ctx context.Context, familyID, userID string, txns []model.BankTransaction) (ImportResult, error) {
	var result ImportResult
	if len(txns) == 0 {
		return result, nil
	}

	from, to := txns[0].Date, txns[0].Date
	for _, t := range txns {
		if t.Date.Before(from) {
			from = t.Date
		}
		if t.Date.After(to) {
			to = t.Date
		}
	}
	window := s.dupOpts.DateWindowDays
	existing, err := s.List(ctx, familyID, from.AddDate(0, 0, -window), to.AddDate(0, 0, window))
	if err != nil {
		return result, err
	}

	for _, t := range txns {
		if !t.IsDebit() {
			result.Skipped = append(result.Skipped, Skipped{Transaction: t, Reason: "money in"})
			continue
		}

		e := model.Expense{
			FamilyID:      familyID,
			Date:          t.Date,
			Amount:        t.Outflow(),
			Description:   strings.TrimSpace(t.Description),
			PaymentMethod: "bank",
			Reference:     t.Reference,
			CreatedBy:     userID,
		}

		if p, dup := duplicates.IsDuplicate(e, existing, s.dupOpts); dup {
			result.Skipped = append(result.Skipped, Skipped{
				Transaction: t,
				Reason:      "duplicate: " + strings.Join(p.Reasons, ", "),
			})
			continue
		}

		if s.categorizer != nil {
			catID, err := s.categorizer.CategoryFor(ctx, "", e.Description)
			if err != nil {
				return result, fmt.Errorf("categorizing %q: %w", e.Description, err)
			}
			e.CategoryID = catID
		}

		added, err := s.Add(ctx, e)
		if err != nil {
			return result, fmt.Errorf("importing %q: %w", t.Description, err)
		}
		result.Added = append(result.Added, added)
		existing = append(existing, added)
	}
	return result, nil
}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
