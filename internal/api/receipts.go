package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/billing"
	"github.com/nuacha-app/nuacha/internal/id"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/storage"
)

// uploadReceipt stores the photos or PDF pages of one receipt and queues
// it for OCR.
func (s *Server) uploadReceipt(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, true) {
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)
	if err := s.Billing.Allows(ctx, userID, billing.FeatureReceiptUpload); err != nil {
		s.fail(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected multipart form with pages")
		return
	}
	files := form.File["pages"]
	if len(files) == 0 {
		badRequest(c, "at least one page is required")
		return
	}
	if len(files) > s.MaxPages {
		badRequest(c, fmt.Sprintf("at most %d pages per receipt", s.MaxPages))
		return
	}

	family, err := s.Families.GetFamily(ctx, familyID)
	if err != nil {
		s.fail(c, err)
		return
	}

	now := s.now().UTC()
	r := model.Receipt{
		ID:         id.New(),
		FamilyID:   familyID,
		UploadedBy: userID,
		Status:     model.ReceiptUploaded,
		Currency:   family.Currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	pages := make([]model.ReceiptPage, 0, len(files))
	for i, fh := range files {
		data, err := readPage(fh)
		if err != nil {
			s.fail(c, err)
			return
		}
		contentType, ext, err := storage.DetectContentType(data)
		if err != nil {
			s.fail(c, fmt.Errorf("page %d (%s): %w", i+1, fh.Filename, err))
			return
		}
		key := storage.PageKey(familyID, r.ID, i+1, ext)
		if err := s.Files.Put(ctx, key, data, contentType); err != nil {
			s.fail(c, fmt.Errorf("storing page %d: %w", i+1, err))
			return
		}
		pages = append(pages, model.ReceiptPage{PageNo: i + 1, StorageKey: key, ContentType: contentType})
	}

	if err := s.Receipts.CreateReceipt(ctx, &r, pages); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"receipt": r, "pages": pages})
}

func readPage(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxPageBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d MB", model.ErrInvalid, fh.Filename, maxPageBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return data, nil
}

// loadReceipt fetches a receipt and checks the caller's access to its
// family.
func (s *Server) loadReceipt(c *gin.Context, write bool) (*model.Receipt, bool) {
	r, err := s.Receipts.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if !s.member(c, r.FamilyID, write) {
		return nil, false
	}
	return r, true
}

func (s *Server) getReceipt(c *gin.Context) {
	r, ok := s.loadReceipt(c, false)
	if !ok {
		return
	}
	pages, err := s.Receipts.ReceiptPages(c.Request.Context(), r.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": r, "pages": pages})
}

type confirmRequest struct {
	Date        string           `json:"date"`
	Vendor      *string          `json:"vendor"`
	Amount      *decimal.Decimal `json:"amount"`
	CategoryID  *int             `json:"category_id"`
	Description string           `json:"description"`
}

// confirmReceipt turns a parsed receipt into an expense, applying any
// corrections the user made to the extracted fields.
func (s *Server) confirmReceipt(c *gin.Context) {
	r, ok := s.loadReceipt(c, true)
	if !ok {
		return
	}
	if r.Status != model.ReceiptParsed && r.Status != model.ReceiptNeedsReview {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("receipt is %s", r.Status)})
		return
	}

	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request")
			return
		}
	}

	e := model.Expense{
		FamilyID:      r.FamilyID,
		Date:          r.Date,
		Amount:        r.Total,
		Vendor:        r.Vendor,
		Description:   strings.TrimSpace(req.Description),
		CategoryID:    r.CategoryID,
		PaymentMethod: "receipt",
		ReceiptID:     r.ID,
		CreatedBy:     currentUser(c),
	}
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			s.fail(c, err)
			return
		}
		e.Date = d
	}
	if req.Vendor != nil {
		e.Vendor = strings.TrimSpace(*req.Vendor)
	}
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if req.CategoryID != nil {
		e.CategoryID = *req.CategoryID
	}

	ctx := c.Request.Context()
	added, err := s.Expenses.Add(ctx, e)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Receipts.ConfirmReceipt(ctx, r.ID, added.ID, s.now().UTC()); err != nil {
		if derr := s.Expenses.Delete(ctx, added.ID); derr != nil {
			err = fmt.Errorf("%w (and removing expense %s: %v)", err, added.ID, derr)
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (s *Server) retryReceipt(c *gin.Context) {
	r, ok := s.loadReceipt(c, true)
	if !ok {
		return
	}
	if r.Status != model.ReceiptFailed && r.Status != model.ReceiptNeedsReview {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("receipt is %s", r.Status)})
		return
	}
	if err := s.Receipts.RetryReceipt(c.Request.Context(), r.ID, s.now().UTC()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": r.ID, "status": model.ReceiptUploaded})
}

func (s *Server) mySubscription(c *gin.Context) {
	sub, plan, err := s.Billing.Current(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "plan": plan})
}
