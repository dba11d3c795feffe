package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
// Line items are stored as a JSONB array on the order row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const poColumns = `id, order_number, vendor_id, vendor_name, vendor_contact, delivery_name, delivery_address,
	delivery_date, currency, currency_name, invoice_account, invoice_name, requested_date, status, confirmation,
	line_items, total_amount, total_receipt, mode_of_delivery, terms_of_payment, created_by, created_at, updated_at`

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// List returns orders newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC`, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// Get returns a purchase order by id.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return getOrder(ctx, r.pool, id, false)
}

// NextOrderSequence draws the next value from the order number sequence.
func (r *Repository) NextOrderSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `SELECT nextval('purchase_order_number_seq')`).Scan(&seq)
	return seq, err
}

// Insert stores a new order and returns it with its id.
func (r *Repository) Insert(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO purchase_orders (order_number, vendor_id, vendor_name, vendor_contact,
		delivery_name, delivery_address, delivery_date, currency, currency_name, invoice_account, invoice_name,
		requested_date, status, confirmation, line_items, total_amount, total_receipt, mode_of_delivery,
		terms_of_payment, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING id`,
		po.OrderNumber, po.VendorID, po.VendorName, po.VendorContact, po.DeliveryName, po.DeliveryAddress,
		po.DeliveryDate, po.Currency, po.CurrencyName, po.InvoiceAccount, po.InvoiceName, po.RequestedDate,
		string(po.Status), string(po.Confirmation), po.LineItems, po.TotalAmount, po.TotalReceipt,
		po.ModeOfDelivery, po.TermsOfPayment, po.CreatedBy, po.CreatedAt, po.UpdatedAt,
	).Scan(&po.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return PurchaseOrder{}, ErrDuplicateNumber
		}
		return PurchaseOrder{}, fmt.Errorf("procurement: insert order: %w", err)
	}
	return po, nil
}

// Delete removes an order.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *txRepo) Update(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET order_number = $2, vendor_id = $3, vendor_name = $4,
		vendor_contact = $5, delivery_name = $6, delivery_address = $7, delivery_date = $8, currency = $9,
		currency_name = $10, invoice_account = $11, invoice_name = $12, requested_date = $13, status = $14,
		confirmation = $15, line_items = $16, total_amount = $17, total_receipt = $18, mode_of_delivery = $19,
		terms_of_payment = $20, updated_at = $21
		WHERE id = $1`,
		po.ID, po.OrderNumber, po.VendorID, po.VendorName, po.VendorContact, po.DeliveryName, po.DeliveryAddress,
		po.DeliveryDate, po.Currency, po.CurrencyName, po.InvoiceAccount, po.InvoiceName, po.RequestedDate,
		string(po.Status), string(po.Confirmation), po.LineItems, po.TotalAmount, po.TotalReceipt,
		po.ModeOfDelivery, po.TermsOfPayment, po.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return PurchaseOrder{}, ErrDuplicateNumber
		}
		return PurchaseOrder{}, fmt.Errorf("procurement: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func getOrder(ctx context.Context, q querier, id int64, lock bool) (PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	po, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status, confirmation string
	err := row.Scan(
		&po.ID, &po.OrderNumber, &po.VendorID, &po.VendorName, &po.VendorContact, &po.DeliveryName,
		&po.DeliveryAddress, &po.DeliveryDate, &po.Currency, &po.CurrencyName, &po.InvoiceAccount,
		&po.InvoiceName, &po.RequestedDate, &status, &confirmation, &po.LineItems, &po.TotalAmount,
		&po.TotalReceipt, &po.ModeOfDelivery, &po.TermsOfPayment, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = Status(status)
	po.Confirmation = Confirmation(confirmation)
	if po.LineItems == nil {
		po.LineItems = []LineItem{}
	}
	return po, nil
}
