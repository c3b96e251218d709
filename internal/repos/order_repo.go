package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
)

type OrderRepo struct{ db DBTX }

func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{db: tx} }

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.OrderSummary{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT o.id, o.order_number, o.user_id, u.name AS user_name, u.email AS user_email,
		       o.total, o.status, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY datetime(o.created_at) DESC, o.order_number DESC
		LIMIT ?
	`, limit)
	return out, err
}

func (r *OrderRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`)
	return n, err
}

// Revenue sums totals of orders that were not canceled.
func (r *OrderRepo) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := r.db.GetContext(ctx, &d, `SELECT COALESCE(SUM(total),0) FROM orders WHERE status <> 'CANCELED'`)
	return d, err
}

// UpdateStatus reports false when the order does not exist.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
