package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"techshop/internal/domain"
)

type VariantRepo struct{ db DBTX }

func NewVariantRepo(db DBTX) *VariantRepo { return &VariantRepo{db: db} }

func (r *VariantRepo) WithTx(tx *sqlx.Tx) *VariantRepo { return &VariantRepo{db: tx} }

const variantCols = `
    v.id, v.product_id, v.name, v.value, v.price, v.inventory,
    COALESCE(v.sku,'') AS sku, v.created_at, COALESCE(v.updated_at,'') AS updated_at`

func (r *VariantRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error) {
	out := []domain.Variant{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+variantCols+` FROM product_variants v
		WHERE v.product_id = ?
		ORDER BY v.name, v.value`, productID)
	return out, err
}

// FirstByProduct returns the first variant of each listed product.
func (r *VariantRepo) FirstByProduct(ctx context.Context, productIDs []string) (map[string]domain.Variant, error) {
	out := map[string]domain.Variant{}
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+variantCols+` FROM product_variants v
		WHERE v.product_id IN (?)
		ORDER BY v.product_id, v.name, v.value`, productIDs)
	if err != nil {
		return nil, err
	}
	var rows []domain.Variant
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, v := range rows {
		if _, seen := out[v.ProductID]; !seen {
			out[v.ProductID] = v
		}
	}
	return out, nil
}

func (r *VariantRepo) Get(ctx context.Context, id string) (domain.Variant, error) {
	var v domain.Variant
	err := r.db.GetContext(ctx, &v, `SELECT `+variantCols+` FROM product_variants v WHERE v.id = ?`, id)
	return v, err
}

func (r *VariantRepo) SKUTaken(ctx context.Context, sku, exceptID string) (bool, error) {
	if sku == "" {
		return false, nil
	}
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM product_variants WHERE sku = ? AND id <> ?`, sku, exceptID)
	return n > 0, err
}

func (r *VariantRepo) Create(ctx context.Context, v domain.Variant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_variants(id, product_id, name, value, price, inventory, sku, created_at)
		VALUES(?, ?, ?, ?, ?, ?, NULLIF(?,''), CURRENT_TIMESTAMP)
	`, v.ID, v.ProductID, v.Name, v.Value, v.Price, v.Inventory, v.SKU)
	return err
}

func (r *VariantRepo) Update(ctx context.Context, v domain.Variant) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE product_variants
		SET name = ?, value = ?, price = ?, inventory = ?, sku = NULLIF(?,''), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, v.Name, v.Value, v.Price, v.Inventory, v.SKU, v.ID)
	return err
}

func (r *VariantRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
