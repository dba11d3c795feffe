// Package menu manages the menu catalogue: categories and the finished goods sold under them.
package menu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

var (
	// ErrCategoryNotFound indicates the menu category does not exist.
	ErrCategoryNotFound = errors.New("menu: category not found")
	// ErrFinishedGoodNotFound indicates the finished good does not exist.
	ErrFinishedGoodNotFound = errors.New("menu: finished good not found")
	// ErrDuplicateCategory indicates a category name already taken, ignoring case.
	ErrDuplicateCategory = fmt.Errorf("menu: category name exists: %w", httpx.ErrDuplicate)
)

var folder = cases.Fold()

// NameKey returns the case-folded key used for category uniqueness.
func NameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// Category groups finished goods on the menu board.
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	ColumnCount  int       `json:"columnCount"`
	SmallText    string    `json:"smallText"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Name         string `json:"name" validate:"required"`
	DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
	ColumnCount  int    `json:"columnCount" validate:"gte=0"`
	SmallText    string `json:"smallText"`
}

// Ingredient references a raw material consumed by a finished good.
type Ingredient struct {
	RawID    string  `json:"rawId" validate:"required"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit"`
}

// FinishedGood is a sellable menu item.
type FinishedGood struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	CategoryID     *int64       `json:"categoryId"`
	Category       *Category    `json:"category"`
	Price          float64      `json:"price"`
	Description    string       `json:"description"`
	RawIngredients []Ingredient `json:"rawIngredients"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// FinishedGoodInput is the create/update payload. CategoryName, when set,
// wins over CategoryID and is created on demand.
type FinishedGoodInput struct {
	Name           string       `json:"name" validate:"required"`
	CategoryID     *int64       `json:"categoryId" validate:"omitempty,gt=0"`
	CategoryName   string       `json:"categoryName"`
	Price          float64      `json:"price" validate:"gte=0"`
	Description    string       `json:"description"`
	RawIngredients []Ingredient `json:"rawIngredients" validate:"dive"`
}

// category sort keys accepted on the list endpoint mapped to columns.
var categorySortColumns = map[string]string{
	"name":         "name",
	"displayOrder": "display_order",
	"columnCount":  "column_count",
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
}

func sortColumn(sortBy string) string {
	if col, ok := categorySortColumns[sortBy]; ok {
		return col
	}
	return "display_order"
}
