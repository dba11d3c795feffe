package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs report aggregates against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TotalsByPaymentMethod sums transactions in [from, to) per payment method.
func (r *Repository) TotalsByPaymentMethod(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)::float8
		FROM sales_transactions
		WHERE date >= $1 AND date < $2
		GROUP BY payment_method
		ORDER BY payment_method`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MethodTotal, 0)
	for rows.Next() {
		var m MethodTotal
		if err := rows.Scan(&m.PaymentMethod, &m.Count, &m.Total); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TotalsByDay sums transactions in [from, to) per UTC calendar day.
func (r *Repository) TotalsByDay(ctx context.Context, from, to time.Time) ([]DayTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(date AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*),
		COALESCE(SUM(total), 0)::float8
		FROM sales_transactions
		WHERE date >= $1 AND date < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]DayTotal, 0)
	for rows.Next() {
		var d DayTotal
		if err := rows.Scan(&d.Date, &d.Count, &d.Total); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
