package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type InventoryRepo struct{ db DBTX }

func NewInventoryRepo(db DBTX) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) WithTx(tx *sqlx.Tx) *InventoryRepo { return &InventoryRepo{db: tx} }

// StockRow is the minimal stock view of a product or variant.
type StockRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Inventory int    `db:"inventory"`
}

// ProductStock returns sql.ErrNoRows for an unknown product.
func (r *InventoryRepo) ProductStock(ctx context.Context, productID string) (StockRow, error) {
	var s StockRow
	err := r.db.GetContext(ctx, &s, `SELECT id, name, inventory FROM products WHERE id = ?`, productID)
	return s, err
}

// VariantStock returns sql.ErrNoRows for an unknown variant or one that
// belongs to another product. An empty productID matches any product.
func (r *InventoryRepo) VariantStock(ctx context.Context, variantID, productID string) (StockRow, error) {
	var s StockRow
	err := r.db.GetContext(ctx, &s, `
		SELECT id, name || ': ' || value AS name, inventory
		FROM product_variants
		WHERE id = ? AND (? = '' OR product_id = ?)`, variantID, productID, productID)
	return s, err
}

// DecrementProduct subtracts by units only when enough stock exists.
// It reports false when the guard rejected the update.
func (r *InventoryRepo) DecrementProduct(ctx context.Context, productID string, by int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET inventory = inventory - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND inventory >= ?
	`, by, productID, by)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *InventoryRepo) DecrementVariant(ctx context.Context, variantID, productID string, by int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_variants
		SET inventory = inventory - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND product_id = ? AND inventory >= ?
	`, by, variantID, productID, by)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *InventoryRepo) IncrementProduct(ctx context.Context, productID string, by int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET inventory = inventory + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, by, productID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *InventoryRepo) IncrementVariant(ctx context.Context, variantID, productID string, by int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_variants SET inventory = inventory + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND product_id = ?
	`, by, variantID, productID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// LowStockRow is used by the admin dashboard.
type LowStockRow struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Inventory int    `db:"inventory" json:"inventory"`
}

// LowStock lists products below threshold, emptiest first.
func (r *InventoryRepo) LowStock(ctx context.Context, threshold, limit int) ([]LowStockRow, error) {
	out := []LowStockRow{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, name, inventory FROM products
		WHERE inventory < ?
		ORDER BY inventory ASC, name
		LIMIT ?
	`, threshold, limit)
	return out, err
}
