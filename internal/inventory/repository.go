package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// Repository persists BOM records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const rawColumns = `id, raw_id, name, unit_measure, unit, quantity, category, location, shelf_life, batch_number,
	supplier_id, cost_per_unit, date_received, branch_id, shelf_id, expiry_date, quality_status, created_at, updated_at`

const insertRaw = `INSERT INTO raw_materials (raw_id, name, unit_measure, unit, quantity, category, location, shelf_life,
	batch_number, supplier_id, cost_per_unit, date_received, branch_id, shelf_id, expiry_date, quality_status,
	created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	RETURNING id`

// setQuantityByRawID touches the first record with the RawID, and only when the value differs,
// so RowsAffected counts modified records.
const setQuantityByRawID = `UPDATE raw_materials SET quantity = $1, updated_at = NOW()
	WHERE id = (SELECT id FROM raw_materials WHERE raw_id = $2 ORDER BY id LIMIT 1)
	AND quantity IS DISTINCT FROM $1`

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// List returns BOM records ordered by RawID.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]RawMaterial, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rawColumns+` FROM raw_materials
		WHERE ($1 = '' OR category = $1)
		AND ($2 = '' OR branch_id = $2)
		AND ($3::double precision IS NULL OR quantity < $3)
		ORDER BY raw_id, id`, filter.Category, filter.BranchID, filter.BelowQuantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]RawMaterial, 0)
	for rows.Next() {
		item, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get returns a record by id.
func (r *Repository) Get(ctx context.Context, id int64) (RawMaterial, error) {
	return getRaw(ctx, r.pool, `SELECT `+rawColumns+` FROM raw_materials WHERE id = $1`, id)
}

// InsertMany stores records in one transaction.
func (r *Repository) InsertMany(ctx context.Context, items []RawMaterial) ([]RawMaterial, error) {
	out := make([]RawMaterial, 0, len(items))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range items {
			created, err := insertRawMaterial(ctx, tx, item)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites a record.
func (r *Repository) Replace(ctx context.Context, item RawMaterial) (RawMaterial, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE raw_materials SET raw_id = $2, name = $3, unit_measure = $4, unit = $5,
		quantity = $6, category = $7, location = $8, shelf_life = $9, batch_number = $10, supplier_id = $11,
		cost_per_unit = $12, date_received = $13, branch_id = $14, shelf_id = $15, expiry_date = $16,
		quality_status = $17, updated_at = $18
		WHERE id = $1`,
		item.ID, item.RawID, item.Name, item.UnitMeasure, item.Unit, item.Quantity, item.Category, item.Location,
		item.ShelfLife, item.BatchNumber, item.SupplierID, item.CostPerUnit, item.DateReceived, item.BranchID,
		item.ShelfID, item.ExpiryDate, item.QualityStatus, item.UpdatedAt,
	)
	if err != nil {
		return RawMaterial{}, fmt.Errorf("inventory: replace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return RawMaterial{}, ErrNotFound
	}
	return item, nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM raw_materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuantities sends one conditional update per element in a single batch.
func (r *Repository) SetQuantities(ctx context.Context, updates []QuantityUpdate) (int64, error) {
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(setQuantityByRawID, *u.Quantity, u.RawID)
	}
	results := r.pool.SendBatch(ctx, batch)
	var modified int64
	for range updates {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("inventory: bulk quantity: %w", err)
		}
		modified += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("inventory: bulk quantity: %w", err)
	}
	return modified, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (RawMaterial, error) {
	return getRaw(ctx, t.tx, `SELECT `+rawColumns+` FROM raw_materials WHERE id = $1 FOR UPDATE`, id)
}

func (t *txRepo) FindAtLocationForUpdate(ctx context.Context, rawID, branchID, shelfID string) (RawMaterial, error) {
	return getRaw(ctx, t.tx, `SELECT `+rawColumns+` FROM raw_materials
		WHERE raw_id = $1 AND branch_id = $2 AND shelf_id = $3
		ORDER BY id LIMIT 1 FOR UPDATE`, rawID, branchID, shelfID)
}

func (t *txRepo) Insert(ctx context.Context, item RawMaterial) (RawMaterial, error) {
	return insertRawMaterial(ctx, t.tx, item)
}

func (t *txRepo) SetQuantity(ctx context.Context, id int64, quantity float64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE raw_materials SET quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertRawMaterial(ctx context.Context, q querier, item RawMaterial) (RawMaterial, error) {
	err := q.QueryRow(ctx, insertRaw,
		item.RawID, item.Name, item.UnitMeasure, item.Unit, item.Quantity, item.Category, item.Location,
		item.ShelfLife, item.BatchNumber, item.SupplierID, item.CostPerUnit, item.DateReceived, item.BranchID,
		item.ShelfID, item.ExpiryDate, item.QualityStatus, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		return RawMaterial{}, fmt.Errorf("inventory: insert: %w", err)
	}
	return item, nil
}

func getRaw(ctx context.Context, q querier, query string, args ...any) (RawMaterial, error) {
	item, err := scanRaw(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawMaterial{}, ErrNotFound
		}
		return RawMaterial{}, err
	}
	return item, nil
}

func scanRaw(row pgx.Row) (RawMaterial, error) {
	var item RawMaterial
	err := row.Scan(&item.ID, &item.RawID, &item.Name, &item.UnitMeasure, &item.Unit, &item.Quantity, &item.Category,
		&item.Location, &item.ShelfLife, &item.BatchNumber, &item.SupplierID, &item.CostPerUnit, &item.DateReceived,
		&item.BranchID, &item.ShelfID, &item.ExpiryDate, &item.QualityStatus, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}
