package sales

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads transactions from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns transactions ordered by date descending.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, items, total, payment_method, date
		FROM sales_transactions
		WHERE ($1::timestamptz IS NULL OR date >= $1)
		AND ($2::timestamptz IS NULL OR date < $2)
		AND ($3 = '' OR payment_method = $3)
		ORDER BY date DESC, id DESC`, optionalTime(filter.From), optionalTime(filter.To), filter.PaymentMethod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Items, &t.Total, &t.PaymentMethod, &t.Date); err != nil {
			return nil, err
		}
		if t.Items == nil {
			t.Items = []Item{}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
