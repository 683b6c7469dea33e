package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/receipt"
	"github.com/nuacha-app/nuacha/internal/storage"
	"github.com/nuacha-app/nuacha/internal/store"
)

var testNow = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

type fakeOCR struct {
	mu      sync.Mutex
	results map[string]receipt.PageResult
	fail    map[string]error
	calls   int
}

func (f *fakeOCR) ReadPage(_ context.Context, filename string, _ []byte) (receipt.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[filename]; err != nil {
		return receipt.PageResult{}, err
	}
	return f.results[filename], nil
}

type fixedSuggester struct{ id int }

func (s fixedSuggester) Suggest(context.Context, string, string) categorize.Suggestion {
	return categorize.Suggestion{CategoryID: s.id, Source: categorize.SourceRule}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	store *store.Store
	files *storage.MemoryStore
	ocr   *fakeOCR
	w     *Worker
}

func setup(t *testing.T) *env {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "nuacha.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	u := model.User{ID: "u1", Name: "Kavita", Email: "kavita@example.com", PasswordHash: "x", Role: "user", CreatedAt: testNow}
	require.NoError(t, s.CreateUser(ctx, &u))
	f := model.Family{ID: "f1", Name: "Ramdial", Kind: model.KindHousehold, Currency: "TTD", OwnerID: u.ID, CreatedAt: testNow}
	require.NoError(t, s.CreateFamily(ctx, &f))

	e := &env{
		store: s,
		files: storage.NewMemoryStore(),
		ocr:   &fakeOCR{results: map[string]receipt.PageResult{}, fail: map[string]error{}},
	}
	e.w = New(s, e.files, e.ocr, fixedSuggester{id: 3}, WithClock(func() time.Time { return testNow }))
	return e
}

// upload stores a receipt with one page per OCR result.
func (e *env) upload(t *testing.T, receiptID string, pages ...receipt.PageResult) {
	t.Helper()
	ctx := context.Background()
	var rows []model.ReceiptPage
	for i, p := range pages {
		key := storage.PageKey("f1", receiptID, i+1, ".jpg")
		require.NoError(t, e.files.Put(ctx, key, []byte("jpeg"), "image/jpeg"))
		e.ocr.results[key] = p
		rows = append(rows, model.ReceiptPage{PageNo: i + 1, StorageKey: key, ContentType: "image/jpeg"})
	}
	r := model.Receipt{ID: receiptID, FamilyID: "f1", UploadedBy: "u1", Status: model.ReceiptUploaded,
		Currency: "TTD", CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, e.store.CreateReceipt(ctx, &r, rows))
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	e := setup(t)
	processed, err := e.w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOne_MergesPages(t *testing.T) {
	e := setup(t)
	top := receipt.PageResult{
		Vendor:    receipt.Known("PriceSmart Chaguanas", 0.95),
		Date:      receipt.Known(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
		LineItems: []model.LineItem{{Description: "Rice 10kg", Amount: dec("89.99")}},
	}
	bottom := receipt.PageResult{
		Tax:       receipt.Known(dec("0.00"), 0.9),
		Total:     receipt.Known(dec("134.99"), 0.92),
		LineItems: []model.LineItem{{Description: "Cooking oil", Amount: dec("45.00")}},
	}
	e.upload(t, "r1", top, bottom)

	processed, err := e.w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := e.store.GetReceipt(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptParsed, got.Status)
	assert.Equal(t, "PriceSmart Chaguanas", got.Vendor)
	assert.True(t, got.Total.Equal(dec("134.99")))
	assert.Len(t, got.LineItems, 2)
	assert.Equal(t, 3, got.CategoryID)
	assert.Empty(t, got.Reasons)
}

func TestProcessOne_PartialNeedsReview(t *testing.T) {
	e := setup(t)
	e.upload(t, "r1", receipt.PageResult{
		Vendor:    receipt.Known("Hi-Lo", 0.9),
		Date:      receipt.Known(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
		LineItems: []model.LineItem{{Description: "Bread", Amount: dec("18.00")}},
	})

	_, err := e.w.ProcessOne(context.Background())
	require.NoError(t, err)

	got, err := e.store.GetReceipt(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptNeedsReview, got.Status)
	assert.NotEmpty(t, got.Reasons)
}

func TestProcessOne_OCRFailureMarksFailed(t *testing.T) {
	e := setup(t)
	e.upload(t, "r1", receipt.PageResult{Vendor: receipt.Known("Hi-Lo", 0.9)})
	e.ocr.fail[storage.PageKey("f1", "r1", 1, ".jpg")] = errors.New("mindee: 429 Too Many Requests")

	processed, err := e.w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := e.store.GetReceipt(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptFailed, got.Status)
	assert.Contains(t, got.Error, "429")
}

func TestProcessOne_MissingFileMarksFailed(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	r := model.Receipt{ID: "r1", FamilyID: "f1", UploadedBy: "u1", Status: model.ReceiptUploaded,
		Currency: "TTD", CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, e.store.CreateReceipt(ctx, &r, []model.ReceiptPage{{PageNo: 1, StorageKey: "gone.jpg"}}))

	_, err := e.w.ProcessOne(ctx)
	require.NoError(t, err)

	got, err := e.store.GetReceipt(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptFailed, got.Status)
	assert.Equal(t, 0, e.ocr.calls)
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	e := setup(t)
	good := receipt.PageResult{
		Vendor: receipt.Known("TSTT", 0.9),
		Date:   receipt.Known(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
		Total:  receipt.Known(dec("299.00"), 0.9),
	}
	e.upload(t, "r1", good)
	e.upload(t, "r2", good)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(e.store, e.files, e.ocr, nil, WithInterval(10*time.Millisecond), WithClock(func() time.Time { return testNow }))
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		r, err := e.store.GetReceipt(context.Background(), "r2")
		return err == nil && r.Status == model.ReceiptParsed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

// stallingOCR blocks every call until the caller's context ends.
type stallingOCR struct {
	started chan struct{}
	once    sync.Once
}

func (s *stallingOCR) ReadPage(ctx context.Context, _ string, _ []byte) (receipt.PageResult, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return receipt.PageResult{}, ctx.Err()
}

func TestRun_ShutdownMidOCRRequeuesReceipt(t *testing.T) {
	e := setup(t)
	e.upload(t, "r1", receipt.PageResult{
		Vendor: receipt.Known("TSTT", 0.9),
		Date:   receipt.Known(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
		Total:  receipt.Known(dec("299.00"), 0.9),
	})

	stall := &stallingOCR{started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(e.store, e.files, stall, nil, WithInterval(10*time.Millisecond), WithClock(func() time.Time { return testNow }))
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stall.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reached OCR")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	got, err := e.store.GetReceipt(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptUploaded, got.Status)

	processed, err := e.w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	got, err = e.store.GetReceipt(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptParsed, got.Status)
}

func TestDescribe(t *testing.T) {
	items := []model.LineItem{{Description: " Milk "}, {Description: ""}, {Description: "Eggs"}}
	assert.Equal(t, "Milk, Eggs", describe(items))
}
