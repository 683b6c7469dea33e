// Package storage keeps uploaded receipt images in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is returned for uploads that are not images or PDFs.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// Uploader stores and retrieves receipt pages.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
}

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
	"image/tiff",
	"application/pdf",
}

// DetectContentType sniffs data and returns its MIME type and extension,
// rejecting anything that is not a receipt image or PDF.
func DetectContentType(data []byte) (string, string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if mt.Is(allowed) {
			return allowed, mt.Extension(), nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// PageKey returns the object key for one receipt page.
func PageKey(familyID, receiptID string, pageNo int, ext string) string {
	return fmt.Sprintf("receipts/%s/%s/page-%02d%s", familyID, receiptID, pageNo, ext)
}

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

// Put stores a copy of data under key.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Get returns the object stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
