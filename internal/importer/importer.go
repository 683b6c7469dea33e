// Package importer turns bank CSV exports into BankTransactions and
// manages the import/ drop folder of a data directory.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Parser converts one bank's export into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

// Registry looks parsers up by format name, case-insensitively.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Registering a format twice panics.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("importer: format registered twice: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse reads in with the parser for format; blank means auto.
func (r *Registry) Parse(format string, in io.Reader) ([]model.BankTransaction, error) {
	if format == "" {
		format = AutoFormat
	}
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("%w: unknown import format %q (known: %s)", model.ErrInvalid, format, strings.Join(r.Formats(), ", "))
	}
	return p.Parse(in)
}

// ParseFile parses the file at path.
func (r *Registry) ParseFile(format, path string) ([]model.BankTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := r.Parse(format, f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return txns, nil
}

// DefaultRegistry has the auto parser and every built-in layout.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&AutoParser{})
	for _, l := range []Layout{ChaseLayout, RepublicBankLayout, FirstCitizensLayout} {
		r.Register(&LayoutParser{Layout: l})
	}
	return r
}

const (
	importDir    = "import"
	processedDir = "processed"
)

// File is a CSV waiting in the import folder.
type File struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Scan lists the CSVs in <dataDir>/import, oldest first. A missing folder
// yields nothing.
func Scan(dataDir string) ([]File, error) {
	dir := filepath.Join(dataDir, importDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import folder: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, File{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// MarkProcessed moves import/<name> into import/processed, returning the
// new path. A file already processed under the same name is kept and the
// new one gets a numbered suffix.
func MarkProcessed(dataDir, name string) (string, error) {
	src := filepath.Join(dataDir, importDir, name)
	dstDir := filepath.Join(dataDir, importDir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed folder: %w", err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	dst := filepath.Join(dstDir, name)
	for n := 2; ; n++ {
		if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
			break
		}
		dst = filepath.Join(dstDir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return dst, nil
}
