package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDetectContentType(t *testing.T) {
	ct, ext, err := DetectContentType(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)

	ct, ext, err = DetectContentType([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, ".pdf", ext)

	_, _, err = DetectContentType([]byte("date,amount\n2025-01-01,10\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPageKey(t *testing.T) {
	assert.Equal(t, "receipts/fam/rec/page-02.jpg", PageKey("fam", "rec", 2, ".jpg"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	data := []byte("hello")
	require.NoError(t, m.Put(ctx, "k", data, "text/plain"))
	data[0] = 'j'

	got, ct, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, "text/plain", ct)
	assert.Equal(t, 1, m.Len())

	_, _, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// fakeS3 answers path-style PUT and GET requests.
func fakeS3(t *testing.T) *httptest.Server {
	var mu sync.Mutex
	objects := map[string][]byte{}
	contentTypes := map[string]string{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			objects[r.URL.Path] = body
			contentTypes[r.URL.Path] = r.Header.Get("Content-Type")
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
				return
			}
			w.Header().Set("Content-Type", contentTypes[r.URL.Path])
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func TestS3Store_PutGet(t *testing.T) {
	srv := fakeS3(t)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3Store(ctx, S3Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "receipts",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "receipts/f/r/page-01.png", pngHeader, "image/png"))

	got, ct, err := store.Get(ctx, "receipts/f/r/page-01.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)
	assert.Equal(t, "image/png", ct)

	_, _, err = store.Get(ctx, "receipts/f/r/page-09.png")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "page-09"))
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "bucket")
}
