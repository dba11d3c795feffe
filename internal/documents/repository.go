package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists document metadata in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const docColumns = `id, file_name, storage_key, content_type, size, uploaded_by, created_at`

// List returns documents newest first.
func (r *Repository) List(ctx context.Context) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+docColumns+` FROM documents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns a document by id.
func (r *Repository) Get(ctx context.Context, id int64) (Document, error) {
	return oneDocument(r.pool.QueryRow(ctx, `SELECT `+docColumns+` FROM documents WHERE id = $1`, id))
}

// Insert stores document metadata.
func (r *Repository) Insert(ctx context.Context, d Document) (Document, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO documents (file_name, storage_key, content_type, size, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		d.FileName, d.StorageKey, d.ContentType, d.Size, d.UploadedBy, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return Document{}, fmt.Errorf("documents: insert: %w", err)
	}
	return d, nil
}

// Delete removes the metadata row and returns it.
func (r *Repository) Delete(ctx context.Context, id int64) (Document, error) {
	return oneDocument(r.pool.QueryRow(ctx, `DELETE FROM documents WHERE id = $1 RETURNING `+docColumns, id))
}

func oneDocument(row pgx.Row) (Document, error) {
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return d, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.FileName, &d.StorageKey, &d.ContentType, &d.Size, &d.UploadedBy, &d.CreatedAt)
	return d, err
}
