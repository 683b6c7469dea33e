package categories

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Service provides in-memory lookup over a category chart.
type Service struct {
	cats   []model.Category
	byID   map[int]model.Category
	byName map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(cats []model.Category) *Service {
	byID := make(map[int]model.Category, len(cats))
	byName := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
		byName[strings.ToLower(c.Name)] = c
	}
	return &Service{cats: cats, byID: byID, byName: byName}
}

// Load reads categories/categories.csv from a data directory.
func Load(dataDir string) (*Service, error) {
	path := filepath.Join(dataDir, "categories", "categories.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	return NewService(cats), nil
}

// All returns all categories.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by ID.
func (s *Service) Get(id int) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// ByName looks a category up by name, ignoring case and surrounding space.
func (s *Service) ByName(name string) (model.Category, bool) {
	c, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ByGroup returns all categories in a budget group.
func (s *Service) ByGroup(group model.BudgetGroup) []model.Category {
	var result []model.Category
	for _, c := range s.cats {
		if c.Group == group {
			result = append(result, c)
		}
	}
	return result
}

// GroupOf returns the budget group of a category ID.
func (s *Service) GroupOf(id int) (model.BudgetGroup, bool) {
	c, ok := s.byID[id]
	return c.Group, ok
}

// Names returns every category name in chart order.
func (s *Service) Names() []string {
	names := make([]string, len(s.cats))
	for i, c := range s.cats {
		names[i] = c.Name
	}
	return names
}

// Save writes the chart to categories/categories.csv.
func (s *Service) Save(dataDir string) error {
	dir := filepath.Join(dataDir, "categories")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	path := filepath.Join(dir, "categories.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating categories file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}
