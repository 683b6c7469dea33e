// Package api exposes Nuacha over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nuacha-app/nuacha/internal/auth"
	"github.com/nuacha-app/nuacha/internal/billing"
	"github.com/nuacha-app/nuacha/internal/budget"
	"github.com/nuacha-app/nuacha/internal/categories"
	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/expenses"
	"github.com/nuacha-app/nuacha/internal/importer"
	"github.com/nuacha-app/nuacha/internal/leads"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/payroll"
	"github.com/nuacha-app/nuacha/internal/storage"
)

// Context keys set by the auth middleware.
const (
	ctxUserID = "userID"
	ctxEmail  = "userEmail"
	ctxRole   = "userRole"
)

// DefaultMaxPages limits pages per uploaded receipt.
const DefaultMaxPages = 10

// maxPageBytes limits a single uploaded page.
const maxPageBytes = 10 << 20

// Families is the family membership store.
type Families interface {
	CreateFamily(ctx context.Context, f *model.Family) error
	GetFamily(ctx context.Context, id string) (*model.Family, error)
	ListFamilies(ctx context.Context, userID string) ([]model.Family, error)
	AddMember(ctx context.Context, m model.Member) error
	Members(ctx context.Context, familyID string) ([]model.Member, error)
	MemberRole(ctx context.Context, familyID, userID string) (model.MemberRole, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Receipts is the receipt store.
type Receipts interface {
	CreateReceipt(ctx context.Context, r *model.Receipt, pages []model.ReceiptPage) error
	GetReceipt(ctx context.Context, id string) (*model.Receipt, error)
	ReceiptPages(ctx context.Context, receiptID string) ([]model.ReceiptPage, error)
	RetryReceipt(ctx context.Context, id string, now time.Time) error
	ConfirmReceipt(ctx context.Context, id, expenseID string, now time.Time) error
}

// LeadLookup finds a captured lead for admins.
type LeadLookup interface {
	LeadByEmail(ctx context.Context, email string) (*model.Lead, error)
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API. Categorizer may be nil.
type Deps struct {
	DB          Pinger
	Auth        *auth.Service
	Families    Families
	Receipts    Receipts
	Leads       *leads.Service
	LeadLookup  LeadLookup
	Expenses    *expenses.Service
	Categories  *categories.Service
	Categorizer *categorize.Service
	Payroll     *payroll.Service
	Billing     *billing.Service
	Files       storage.Uploader
	Importers   *importer.Registry
	BudgetRule  budget.Rule
	MaxPages    int
	Origins     []string
	Logger      *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	Deps
	now func() time.Time
}

// New creates a Server.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxPages <= 0 {
		d.MaxPages = DefaultMaxPages
	}
	if d.Importers == nil {
		d.Importers = importer.DefaultRegistry()
	}
	if d.BudgetRule == (budget.Rule{}) {
		d.BudgetRule = budget.DefaultRule()
	}
	return &Server{Deps: d, now: time.Now}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.Logger))
	if len(s.Origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.Origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", s.health)
	r.POST("/auth/register", s.register)
	r.POST("/auth/login", s.login)
	r.POST("/leads", s.captureLead)
	r.POST("/webhooks/paypal", s.paypalWebhook)

	api := r.Group("/")
	api.Use(s.authRequired())
	{
		api.GET("/categories", s.listCategories)

		api.GET("/families", s.listFamilies)
		api.POST("/families", s.createFamily)
		api.GET("/families/:id/members", s.listMembers)
		api.POST("/families/:id/members", s.addMember)

		api.GET("/families/:id/expenses", s.listExpenses)
		api.POST("/families/:id/expenses", s.addExpense)
		api.GET("/families/:id/expenses/export", s.exportExpenses)
		api.POST("/families/:id/expenses/import", s.importExpenses)
		api.PUT("/expenses/:id", s.updateExpense)
		api.DELETE("/expenses/:id", s.deleteExpense)
		api.GET("/families/:id/duplicates", s.findDuplicates)
		api.GET("/families/:id/summary", s.monthSummary)

		api.POST("/budget/plan", s.budgetPlan)
		api.GET("/families/:id/budget", s.familyBudget)

		api.POST("/families/:id/receipts", s.uploadReceipt)
		api.GET("/receipts/:id", s.getReceipt)
		api.POST("/receipts/:id/confirm", s.confirmReceipt)
		api.POST("/receipts/:id/retry", s.retryReceipt)

		api.GET("/families/:id/employees", s.listEmployees)
		api.POST("/families/:id/employees", s.addEmployee)
		api.GET("/employees/:id/payslips", s.listPayslips)
		api.POST("/employees/:id/payslips", s.runPayroll)
		api.POST("/payroll/calculate", s.calculatePay)

		api.GET("/me/subscription", s.mySubscription)

		admin := api.Group("/admin")
		admin.Use(requireRole(auth.RoleAdmin))
		admin.GET("/leads", s.findLead)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	if s.DB != nil {
		if err := s.DB.Ping(c.Request.Context()); err != nil {
			s.Logger.Error("health check", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, zap.String("user", uid))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// authRequired validates the bearer token and stores its claims on the
// context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format, use 'Bearer <token>'"})
			return
		}
		claims, err := s.Auth.Tokens().Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func requireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// fail maps err to a status code and writes {"error": ...}.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	var verrs expenses.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		status = http.StatusUnprocessableEntity
		details := make([]string, len(verrs))
		for i, v := range verrs {
			details[i] = v.Error()
		}
		body = gin.H{"error": "validation failed", "details": details}
	case errors.Is(err, model.ErrInvalid), errors.Is(err, billing.ErrBadSignature):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, auth.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, billing.ErrLimitReached):
		status = http.StatusPaymentRequired
	case errors.Is(err, storage.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	}

	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body = gin.H{"error": "internal error"}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// member checks that the caller belongs to familyID and, when write is
// set, may change its records. It writes the error response itself.
func (s *Server) member(c *gin.Context, familyID string, write bool) bool {
	role, err := s.Families.MemberRole(c.Request.Context(), familyID, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return false
	}
	if write && !role.CanWrite() {
		s.fail(c, model.ErrForbidden)
		return false
	}
	return true
}

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD. Blank returns the zero time.
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", model.ErrInvalid, s)
	}
	return t, nil
}

// parseMonth accepts YYYY-MM, defaulting to the month of now.
func parseMonth(s string, now time.Time) (int, int, error) {
	if strings.TrimSpace(s) == "" {
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q, want YYYY-MM", model.ErrInvalid, s)
	}
	return t.Year(), int(t.Month()), nil
}
