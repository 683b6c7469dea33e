// Package worker runs the receipt OCR pipeline in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/ocr"
	"github.com/nuacha-app/nuacha/internal/receipt"
	"github.com/nuacha-app/nuacha/internal/storage"
)

// DefaultInterval is how often an idle worker polls for receipts.
const DefaultInterval = 2 * time.Second

// maxParallelPages bounds concurrent OCR calls for one receipt.
const maxParallelPages = 4

// settleTimeout bounds the status update that ends a claim, which runs
// even after the worker's context is cancelled.
const settleTimeout = 5 * time.Second

// Queue is the receipt job queue.
type Queue interface {
	ClaimNextReceipt(ctx context.Context, now time.Time) (*model.Receipt, bool, error)
	ReceiptPages(ctx context.Context, receiptID string) ([]model.ReceiptPage, error)
	SaveReceiptResult(ctx context.Context, r *model.Receipt) error
	FailReceipt(ctx context.Context, id, reason string, now time.Time) error
	ReleaseReceipt(ctx context.Context, id string, now time.Time) error
}

// Suggester proposes a category for extracted receipt fields.
type Suggester interface {
	Suggest(ctx context.Context, vendor, description string) categorize.Suggestion
}

// Worker claims uploaded receipts one at a time and extracts their fields.
type Worker struct {
	queue     Queue
	files     storage.Uploader
	ocr       ocr.Client
	suggester Suggester
	partial   receipt.PartialOptions
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the idle polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithPartialOptions overrides the partial receipt thresholds.
func WithPartialOptions(o receipt.PartialOptions) Option {
	return func(w *Worker) { w.partial = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// New creates a Worker. suggester may be nil.
func New(queue Queue, files storage.Uploader, client ocr.Client, suggester Suggester, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		files:     files,
		ocr:       client,
		suggester: suggester,
		partial:   receipt.DefaultPartialOptions(),
		interval:  DefaultInterval,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run processes receipts until ctx is cancelled. While the queue has work
// it drains it without waiting for the ticker.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("receipt worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		for {
			processed, err := w.ProcessOne(ctx)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				w.logger.Error("receipt worker", zap.Error(err))
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			w.logger.Info("receipt worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOne claims and processes a single receipt. processed is false
// when the queue was empty. An OCR or storage problem fails the receipt
// rather than returning an error; only queue errors are returned. A receipt
// interrupted by cancellation goes back to the queue.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	r, ok, err := w.queue.ClaimNextReceipt(ctx, w.now().UTC())
	if err != nil {
		return false, fmt.Errorf("claiming receipt: %w", err)
	}
	if !ok {
		return false, nil
	}

	log := w.logger.With(zap.String("receipt", r.ID), zap.String("family", r.FamilyID))
	log.Debug("processing receipt")

	if err := w.extract(ctx, r); err != nil {
		sctx, cancel := settleContext(ctx)
		defer cancel()
		if ctx.Err() != nil {
			log.Info("receipt interrupted, returning it to the queue")
			if rerr := w.queue.ReleaseReceipt(sctx, r.ID, w.now().UTC()); rerr != nil {
				return true, fmt.Errorf("releasing receipt %s: %w", r.ID, rerr)
			}
			return true, ctx.Err()
		}
		log.Warn("receipt failed", zap.Error(err))
		if ferr := w.queue.FailReceipt(sctx, r.ID, err.Error(), w.now().UTC()); ferr != nil {
			return true, fmt.Errorf("failing receipt %s: %w", r.ID, ferr)
		}
		return true, nil
	}

	sctx, cancel := settleContext(ctx)
	defer cancel()
	if err := w.queue.SaveReceiptResult(sctx, r); err != nil {
		if ferr := w.queue.FailReceipt(sctx, r.ID, "saving result: "+err.Error(), w.now().UTC()); ferr != nil {
			log.Error("failing receipt", zap.Error(ferr))
		}
		return true, fmt.Errorf("saving receipt %s: %w", r.ID, err)
	}
	log.Info("receipt processed",
		zap.String("status", string(r.Status)),
		zap.String("vendor", r.Vendor),
		zap.String("total", r.Total.StringFixed(2)),
		zap.Strings("reasons", r.Reasons))
	return true, nil
}

// settleContext detaches from ctx so a claimed receipt can always leave
// the processing state.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// extract fills r with the merged OCR fields of all its pages.
func (w *Worker) extract(ctx context.Context, r *model.Receipt) error {
	pages, err := w.queue.ReceiptPages(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return errors.New("receipt has no pages")
	}

	results := make([]receipt.PageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)
	for i, p := range pages {
		g.Go(func() error {
			data, _, err := w.files.Get(gctx, p.StorageKey)
			if err != nil {
				return fmt.Errorf("downloading page %d: %w", p.PageNo, err)
			}
			res, err := w.ocr.ReadPage(gctx, p.StorageKey, data)
			if err != nil {
				return fmt.Errorf("reading page %d: %w", p.PageNo, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := receipt.MergeReceiptPages(results)
	merged.Apply(r)

	report := receipt.DetectPartialReceipt(merged, w.partial)
	r.Reasons = report.Reasons
	r.Status = model.ReceiptParsed
	if report.NeedsReview {
		r.Status = model.ReceiptNeedsReview
	}

	if w.suggester != nil {
		s := w.suggester.Suggest(ctx, r.Vendor, describe(r.LineItems))
		r.CategoryID = s.CategoryID
	}
	r.UpdatedAt = w.now().UTC()
	return nil
}

// describe joins the first few line item descriptions for categorisation.
func describe(items []model.LineItem) string {
	const limit = 5
	var parts []string
	for _, item := range items {
		if len(parts) == limit {
			break
		}
		if d := strings.TrimSpace(item.Description); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ", ")
}
