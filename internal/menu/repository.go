package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Repository persists the menu catalogue in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const categoryColumns = `id, name, display_order, column_count, small_text, created_at, updated_at`

const finishedGoodSelect = `SELECT fg.id, fg.name, fg.category_id, fg.price, fg.description, fg.raw_ingredients,
	fg.created_at, fg.updated_at,
	c.id, c.name, c.display_order, c.column_count, c.small_text, c.created_at, c.updated_at
	FROM finished_goods fg
	LEFT JOIN menu_categories c ON c.id = fg.category_id`

// ListCategories returns one page plus the total row count. q.SortBy must be a column name.
func (r *Repository) ListCategories(ctx context.Context, q shared.PageQuery) ([]Category, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM menu_categories`).Scan(&total); err != nil {
		return nil, 0, err
	}
	dir := "ASC"
	if q.SortOrder == shared.SortDesc {
		dir = "DESC"
	}
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM menu_categories
		ORDER BY `+q.SortBy+` `+dir+`, id `+dir+`
		LIMIT $1 OFFSET $2`, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Category, 0, q.Limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// GetCategory returns a category by id.
func (r *Repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM menu_categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// InsertCategory stores a category.
func (r *Repository) InsertCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO menu_categories (name, name_key, display_order, column_count, small_text,
		created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.Name, NameKey(c.Name), c.DisplayOrder, c.ColumnCount, c.SmallText, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return Category{}, mapCategoryError("insert", err)
	}
	return c, nil
}

// UpdateCategory overwrites a category.
func (r *Repository) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE menu_categories SET name = $2, name_key = $3, display_order = $4,
		column_count = $5, small_text = $6, updated_at = $7 WHERE id = $1`,
		c.ID, c.Name, NameKey(c.Name), c.DisplayOrder, c.ColumnCount, c.SmallText, c.UpdatedAt)
	if err != nil {
		return Category{}, mapCategoryError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

// DeleteCategory removes a category.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// EnsureCategory finds or creates the category with the case-folded name in one statement.
// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
func (r *Repository) EnsureCategory(ctx context.Context, name string, at time.Time) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `INSERT INTO menu_categories (name, name_key, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		RETURNING `+categoryColumns, name, NameKey(name), at))
	if err != nil {
		return Category{}, fmt.Errorf("menu: ensure category: %w", err)
	}
	return c, nil
}

// ListFinishedGoods returns finished goods ordered by name.
func (r *Repository) ListFinishedGoods(ctx context.Context, categoryID *int64) ([]FinishedGood, error) {
	rows, err := r.pool.Query(ctx, finishedGoodSelect+`
		WHERE ($1::bigint IS NULL OR fg.category_id = $1)
		ORDER BY fg.name, fg.id`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]FinishedGood, 0)
	for rows.Next() {
		fg, err := scanFinishedGood(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fg)
	}
	return items, rows.Err()
}

// GetFinishedGood returns a finished good with its category.
func (r *Repository) GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error) {
	fg, err := scanFinishedGood(r.pool.QueryRow(ctx, finishedGoodSelect+` WHERE fg.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinishedGood{}, ErrFinishedGoodNotFound
		}
		return FinishedGood{}, err
	}
	return fg, nil
}

// InsertFinishedGood stores a finished good and returns its id.
func (r *Repository) InsertFinishedGood(ctx context.Context, fg FinishedGood) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO finished_goods (name, category_id, price, description, raw_ingredients,
		created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		fg.Name, fg.CategoryID, fg.Price, fg.Description, fg.RawIngredients, fg.CreatedAt, fg.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("menu: insert finished good: %w", err)
	}
	return id, nil
}

// UpdateFinishedGood overwrites a finished good.
func (r *Repository) UpdateFinishedGood(ctx context.Context, fg FinishedGood) error {
	tag, err := r.pool.Exec(ctx, `UPDATE finished_goods SET name = $2, category_id = $3, price = $4, description = $5,
		raw_ingredients = $6, updated_at = $7 WHERE id = $1`,
		fg.ID, fg.Name, fg.CategoryID, fg.Price, fg.Description, fg.RawIngredients, fg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("menu: update finished good: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFinishedGoodNotFound
	}
	return nil
}

// DeleteFinishedGood removes a finished good.
func (r *Repository) DeleteFinishedGood(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM finished_goods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFinishedGoodNotFound
	}
	return nil
}

func mapCategoryError(op string, err error) error {
	if db.IsUniqueViolation(err) && strings.Contains(db.ConstraintName(err), "name_key") {
		return ErrDuplicateCategory
	}
	return fmt.Errorf("menu: %s category: %w", op, err)
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.ColumnCount, &c.SmallText, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanFinishedGood(row pgx.Row) (FinishedGood, error) {
	var (
		fg           FinishedGood
		catID        *int64
		catName      *string
		catOrder     *int
		catColumns   *int
		catSmallText *string
		catCreated   *time.Time
		catUpdated   *time.Time
	)
	err := row.Scan(&fg.ID, &fg.Name, &fg.CategoryID, &fg.Price, &fg.Description, &fg.RawIngredients,
		&fg.CreatedAt, &fg.UpdatedAt,
		&catID, &catName, &catOrder, &catColumns, &catSmallText, &catCreated, &catUpdated)
	if err != nil {
		return FinishedGood{}, err
	}
	if fg.RawIngredients == nil {
		fg.RawIngredients = []Ingredient{}
	}
	if catID != nil {
		fg.Category = &Category{
			ID:           *catID,
			Name:         *catName,
			DisplayOrder: *catOrder,
			ColumnCount:  *catColumns,
			SmallText:    *catSmallText,
			CreatedAt:    *catCreated,
			UpdatedAt:    *catUpdated,
		}
	}
	return fg, nil
}
