package repos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
)

type ProductRepo struct{ db DBTX }

func NewProductRepo(db DBTX) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) WithTx(tx *sqlx.Tx) *ProductRepo { return &ProductRepo{db: tx} }

const productCols = `
    p.id, p.slug, p.name,
    COALESCE(p.description,'') AS description,
    COALESCE(p.short_description,'') AS short_description,
    p.price, p.compare_price, p.inventory, p.category_id,
    COALESCE(p.images_json,'[]') AS images_json,
    COALESCE(p.tags_json,'[]') AS tags_json,
    COALESCE(p.brand,'') AS brand,
    COALESCE(p.processor,'') AS processor,
    COALESCE(p.ram,'') AS ram,
    COALESCE(p.storage,'') AS storage,
    COALESCE(p.graphics,'') AS graphics,
    p.featured, p.rating,
    p.created_at, COALESCE(p.updated_at,'') AS updated_at`

// ProductFilter narrows a catalog listing. Category matches the category slug.
type ProductFilter struct {
	Category string
	Search   string
	Featured bool
	Limit    int
	Offset   int
}

func (f ProductFilter) where() (string, []any) {
	where := `1 = 1`
	args := []any{}
	if f.Category != "" {
		where += ` AND p.category_id IN (SELECT id FROM categories WHERE slug = ?)`
		args = append(args, f.Category)
	}
	if f.Search != "" {
		q := "%" + f.Search + "%"
		where += ` AND (LOWER(p.name) LIKE LOWER(?) OR LOWER(COALESCE(p.description,'')) LIKE LOWER(?) OR LOWER(COALESCE(p.brand,'')) LIKE LOWER(?))`
		args = append(args, q, q, q)
	}
	if f.Featured {
		where += ` AND p.featured = 1`
	}
	return where, args
}

// List returns one page of products and the total matching count.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, int, error) {
	where, args := f.where()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products p WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
  SELECT `+productCols+`
  FROM products p
  WHERE `+where+`
  ORDER BY datetime(p.created_at) DESC, p.id
  LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		hydrate(&out[i])
	}
	return out, total, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products p WHERE p.id = ?`, id)
	hydrate(&p)
	return p, err
}

// GetByKey looks a product up by id or slug.
func (r *ProductRepo) GetByKey(ctx context.Context, key string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products p WHERE p.id = ? OR p.slug = ? LIMIT 1`, key, key)
	hydrate(&p)
	return p, err
}

func (r *ProductRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE slug = ? AND id <> ?`, slug, exceptID)
	return n > 0, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	images, tags := encodeList(p.Images), encodeList(p.Tags)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products(
			id, slug, name, description, short_description, price, compare_price, inventory, category_id,
			images_json, tags_json, brand, processor, ram, storage, graphics, featured, rating, created_at
		) VALUES (?, ?, ?, NULLIF(?,''), NULLIF(?,''), ?, ?, ?, ?, ?, ?, NULLIF(?,''), NULLIF(?,''), NULLIF(?,''), NULLIF(?,''), NULLIF(?,''), ?, ?, CURRENT_TIMESTAMP)
	`, p.ID, p.Slug, p.Name, p.Description, p.ShortDescription, p.Price, p.ComparePrice, p.Inventory, p.CategoryID,
		images, tags, p.Brand, p.Processor, p.RAM, p.Storage, p.Graphics, p.Featured, p.Rating)
	return err
}

func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	images, tags := encodeList(p.Images), encodeList(p.Tags)
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			slug = ?, name = ?, description = NULLIF(?,''), short_description = NULLIF(?,''),
			price = ?, compare_price = ?, inventory = ?, category_id = ?,
			images_json = ?, tags_json = ?, brand = NULLIF(?,''), processor = NULLIF(?,''),
			ram = NULLIF(?,''), storage = NULLIF(?,''), graphics = NULLIF(?,''),
			featured = ?, rating = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Slug, p.Name, p.Description, p.ShortDescription, p.Price, p.ComparePrice, p.Inventory, p.CategoryID,
		images, tags, p.Brand, p.Processor, p.RAM, p.Storage, p.Graphics, p.Featured, p.Rating, p.ID)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ProductRepo) CountInCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID)
	return n, err
}

// ProductTotals are the catalog-wide counters shown on the admin dashboards.
type ProductTotals struct {
	Products   int             `db:"products"`
	Featured   int             `db:"featured"`
	LowStock   int             `db:"low_stock"`
	OutOfStock int             `db:"out_of_stock"`
	StockValue decimal.Decimal `db:"stock_value"`
}

func (r *ProductRepo) Totals(ctx context.Context) (ProductTotals, error) {
	var t ProductTotals
	err := r.db.GetContext(ctx, &t, `
		SELECT
		  COUNT(*) AS products,
		  COALESCE(SUM(CASE WHEN featured = 1 THEN 1 ELSE 0 END),0) AS featured,
		  COALESCE(SUM(CASE WHEN inventory > 0 AND inventory < ? THEN 1 ELSE 0 END),0) AS low_stock,
		  COALESCE(SUM(CASE WHEN inventory = 0 THEN 1 ELSE 0 END),0) AS out_of_stock,
		  COALESCE(SUM(CASE WHEN inventory > 0 THEN price ELSE 0 END),0) AS stock_value
		FROM products`, domain.ProductLowStockAt)
	return t, err
}

type BrandCount struct {
	Brand string `db:"brand" json:"brand"`
	Count int    `db:"n" json:"count"`
}

func (r *ProductRepo) CountByBrand(ctx context.Context) ([]BrandCount, error) {
	out := []BrandCount{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT brand, COUNT(*) AS n FROM products
		WHERE brand IS NOT NULL AND brand <> ''
		GROUP BY brand ORDER BY n DESC, brand`)
	return out, err
}

func hydrate(p *domain.Product) {
	p.Images = decodeList(p.ImagesJSON)
	p.Tags = decodeList(p.TagsJSON)
}

func decodeList(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func encodeList(xs []string) string {
	if xs == nil {
		xs = []string{}
	}
	b, _ := json.Marshal(xs)
	return string(b)
}
