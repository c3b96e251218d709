package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"techshop/internal/domain"
)

type CartRepo struct{ db DBTX }

func NewCartRepo(db DBTX) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) WithTx(tx *sqlx.Tx) *CartRepo { return &CartRepo{db: tx} }

const lineSelect = `
  SELECT ci.id, ci.cart_id, ci.product_id,
         p.name AS product_name, p.slug AS product_slug,
         COALESCE(p.images_json,'[]') AS images_json,
         p.price AS product_price, COALESCE(p.brand,'') AS brand,
         COALESCE(ci.variant_id,'') AS variant_id,
         COALESCE(v.name,'') AS variant_name, COALESCE(v.value,'') AS variant_value,
         v.price AS variant_price, ci.quantity,
         COALESCE(v.inventory, p.inventory) AS inventory
  FROM cart_items ci
  JOIN products p ON p.id = ci.product_id
  LEFT JOIN product_variants v ON v.id = ci.variant_id`

// EnsureCart returns the user's cart id, creating the cart on first use.
func (r *CartRepo) EnsureCart(ctx context.Context, userID string) (string, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts(id,user_id,created_at,updated_at)
		VALUES(?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO NOTHING
	`, uuid.NewString(), userID); err != nil {
		return "", err
	}
	var cartID string
	err := r.db.GetContext(ctx, &cartID, `SELECT id FROM carts WHERE user_id = ?`, userID)
	return cartID, err
}

func (r *CartRepo) Lines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	rows := []domain.CartLine{}
	if err := r.db.SelectContext(ctx, &rows, lineSelect+`
	  WHERE ci.cart_id = ?
	  ORDER BY datetime(ci.created_at), ci.rowid
	`, cartID); err != nil {
		return nil, err
	}
	for i := range rows {
		finishLine(&rows[i])
	}
	return rows, nil
}

func (r *CartRepo) Line(ctx context.Context, itemID string) (domain.CartLine, error) {
	var l domain.CartLine
	if err := r.db.GetContext(ctx, &l, lineSelect+` WHERE ci.id = ?`, itemID); err != nil {
		return l, err
	}
	finishLine(&l)
	return l, nil
}

// LineForUser returns sql.ErrNoRows unless the item sits in userID's cart.
func (r *CartRepo) LineForUser(ctx context.Context, itemID, userID string) (domain.CartLine, error) {
	var l domain.CartLine
	if err := r.db.GetContext(ctx, &l, lineSelect+`
	  JOIN carts c ON c.id = ci.cart_id
	  WHERE ci.id = ? AND c.user_id = ?`, itemID, userID); err != nil {
		return l, err
	}
	finishLine(&l)
	return l, nil
}

// FindLine looks up the (cart, product, variant) line. found is false when absent.
func (r *CartRepo) FindLine(ctx context.Context, cartID, productID, variantID string) (id string, qty int, found bool, err error) {
	var row struct {
		ID       string `db:"id"`
		Quantity int    `db:"quantity"`
	}
	err = r.db.GetContext(ctx, &row, `
		SELECT id, quantity FROM cart_items
		WHERE cart_id = ? AND product_id = ? AND COALESCE(variant_id,'') = ?
	`, cartID, productID, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return row.ID, row.Quantity, true, nil
}

func (r *CartRepo) InsertLine(ctx context.Context, cartID, productID, variantID string, qty int) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(id,cart_id,product_id,variant_id,quantity,created_at,updated_at)
		VALUES(?,?,?,NULLIF(?,''),?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
	`, id, cartID, productID, variantID, qty)
	if err != nil {
		return "", err
	}
	return id, r.touch(ctx, cartID)
}

func (r *CartRepo) SetQuantity(ctx context.Context, itemID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, qty, itemID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE carts SET updated_at = CURRENT_TIMESTAMP
		WHERE id = (SELECT cart_id FROM cart_items WHERE id = ?)`, itemID)
	return err
}

func (r *CartRepo) DeleteLine(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID)
	return err
}

// MergeApplied reports whether mergeID was already applied to cartID.
func (r *CartRepo) MergeApplied(ctx context.Context, cartID, mergeID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM cart_merges WHERE cart_id = ? AND id = ?`, cartID, mergeID)
	return n > 0, err
}

func (r *CartRepo) RecordMerge(ctx context.Context, mergeID, cartID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO cart_merges(id,cart_id) VALUES(?,?)`, mergeID, cartID)
	return err
}

func (r *CartRepo) touch(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, cartID)
	return err
}

func finishLine(l *domain.CartLine) {
	if imgs := decodeList(l.ImagesJSON); len(imgs) > 0 {
		l.ProductImage = imgs[0]
	}
	l.Compute()
}
