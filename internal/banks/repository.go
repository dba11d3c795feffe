package banks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// Repository persists bank accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bankColumns = `id, bank_name, account_name, account_number, branch, currency, balance, is_active, created_at, updated_at`

// List returns bank accounts.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Bank, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bankColumns+` FROM banks
		WHERE (NOT $1 OR is_active)
		ORDER BY bank_name, id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Bank, 0)
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get returns a bank account by id.
func (r *Repository) Get(ctx context.Context, id int64) (Bank, error) {
	b, err := scanBank(r.pool.QueryRow(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bank{}, ErrNotFound
		}
		return Bank{}, err
	}
	return b, nil
}

// Insert stores a bank account.
func (r *Repository) Insert(ctx context.Context, b Bank) (Bank, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO banks (bank_name, account_name, account_number, branch, currency,
		balance, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		b.BankName, b.AccountName, b.AccountNumber, b.Branch, b.Currency, b.Balance, b.IsActive, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return Bank{}, mapWriteError("insert", err)
	}
	return b, nil
}

// Update overwrites a bank account.
func (r *Repository) Update(ctx context.Context, b Bank) (Bank, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE banks SET bank_name = $2, account_name = $3, account_number = $4,
		branch = $5, currency = $6, balance = $7, is_active = $8, updated_at = $9 WHERE id = $1`,
		b.ID, b.BankName, b.AccountName, b.AccountNumber, b.Branch, b.Currency, b.Balance, b.IsActive, b.UpdatedAt)
	if err != nil {
		return Bank{}, mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return Bank{}, ErrNotFound
	}
	return b, nil
}

// Delete removes a bank account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM banks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return ErrDuplicateAccount
	}
	return fmt.Errorf("banks: %s: %w", op, err)
}

func scanBank(row pgx.Row) (Bank, error) {
	var b Bank
	err := row.Scan(&b.ID, &b.BankName, &b.AccountName, &b.AccountNumber, &b.Branch, &b.Currency, &b.Balance,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
