package categories

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nuacha-app/nuacha/internal/model"
)

const (
	numFields = 5
	colID     = 0
	colName   = 1
	colGroup  = 2
	colParent = 3
	colDesc   = 4
)

// ReadCategories reads categories.csv.
func ReadCategories(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var cats []model.Category
	for i, rec := range records[1:] {
		cat, err := UnmarshalCategory(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// WriteCategories writes categories.csv.
func WriteCategories(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"category_id", "name", "budget_group", "parent_id", "description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, cat := range cats {
		if err := cw.Write(MarshalCategory(cat)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(cat model.Category) []string {
	row := make([]string, numFields)
	row[colID] = strconv.Itoa(cat.ID)
	row[colName] = cat.Name
	row[colGroup] = string(cat.Group)
	if cat.ParentID != 0 {
		row[colParent] = strconv.Itoa(cat.ParentID)
	}
	row[colDesc] = cat.Description
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (model.Category, error) {
	if len(record) != numFields {
		return model.Category{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.Atoi(record[colID])
	if err != nil {
		return model.Category{}, fmt.Errorf("parsing category_id %q: %w", record[colID], err)
	}

	group := model.BudgetGroup(record[colGroup])
	if !group.Valid() {
		return model.Category{}, fmt.Errorf("unknown budget group %q", record[colGroup])
	}

	var parentID int
	if record[colParent] != "" {
		parentID, err = strconv.Atoi(record[colParent])
		if err != nil {
			return model.Category{}, fmt.Errorf("parsing parent_id %q: %w", record[colParent], err)
		}
	}

	return model.Category{
		ID:          id,
		Name:        record[colName],
		Group:       group,
		ParentID:    parentID,
		Description: record[colDesc],
	}, nil
}
