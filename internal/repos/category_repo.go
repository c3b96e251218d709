package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"techshop/internal/domain"
)

type CategoryRepo struct{ db DBTX }

func NewCategoryRepo(db DBTX) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) WithTx(tx *sqlx.Tx) *CategoryRepo { return &CategoryRepo{db: tx} }

const categoryCols = `
    id, slug, name,
    COALESCE(description,'') AS description,
    COALESCE(image,'') AS image,
    COALESCE(icon,'') AS icon,
    COALESCE(parent_id,'') AS parent_id,
    created_at,
    COALESCE(updated_at,'') AS updated_at`

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+categoryCols+` FROM categories ORDER BY name`)
	return out, err
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	return c, err
}

func (r *CategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories WHERE id = ?`, id)
	return n > 0, err
}

// SlugTaken reports whether another category already uses slug.
func (r *CategoryRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories WHERE slug = ? AND id <> ?`, slug, exceptID)
	return n > 0, err
}

// ProductCounts maps category id to the number of products in it.
func (r *CategoryRepo) ProductCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CategoryID string `db:"category_id"`
		N          int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT category_id, COUNT(*) AS n FROM products GROUP BY category_id`); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, x := range rows {
		out[x.CategoryID] = x.N
	}
	return out, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(id, slug, name, description, image, icon, parent_id, created_at)
		VALUES(?, ?, ?, NULLIF(?,''), NULLIF(?,''), NULLIF(?,''), NULLIF(?,''), CURRENT_TIMESTAMP)
	`, c.ID, c.Slug, c.Name, c.Description, c.Image, c.Icon, c.ParentID)
	return err
}

func (r *CategoryRepo) Update(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET slug = ?, name = ?, description = NULLIF(?,''), image = NULLIF(?,''), icon = NULLIF(?,''),
		    parent_id = NULLIF(?,''), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Slug, c.Name, c.Description, c.Image, c.Icon, c.ParentID, c.ID)
	return err
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
