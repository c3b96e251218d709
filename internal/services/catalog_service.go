package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
	"techshop/internal/repos"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type CatalogService struct {
	db         *sqlx.DB
	Products   *repos.ProductRepo
	Variants   *repos.VariantRepo
	Categories *repos.CategoryRepo
}

func NewCatalogService(db *sqlx.DB) *CatalogService {
	return &CatalogService{
		db:         db,
		Products:   repos.NewProductRepo(db),
		Variants:   repos.NewVariantRepo(db),
		Categories: repos.NewCategoryRepo(db),
	}
}

type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Featured bool
}

// Normalize clamps page to >= 1 and limit to 1..MaxPageSize.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// ListProducts returns one page with category summaries and each product's first variant.
func (s *CatalogService) ListProducts(ctx context.Context, q ListQuery) ([]domain.ProductView, domain.Page, error) {
	q = q.Normalize()
	prods, total, err := s.Products.List(ctx, repos.ProductFilter{
		Category: q.Category,
		Search:   q.Search,
		Featured: q.Featured,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, domain.Page{}, err
	}
	cats, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, domain.Page{}, err
	}
	ids := make([]string, 0, len(prods))
	for _, p := range prods {
		ids = append(ids, p.ID)
	}
	first, err := s.Variants.FirstByProduct(ctx, ids)
	if err != nil {
		return nil, domain.Page{}, err
	}
	out := make([]domain.ProductView, 0, len(prods))
	for _, p := range prods {
		pv := domain.ProductView{Product: p, Category: cats[p.CategoryID], Variants: []domain.Variant{}}
		if v, ok := first[p.ID]; ok {
			pv.Variants = append(pv.Variants, v)
		}
		out = append(out, pv)
	}
	return out, domain.NewPage(q.Page, q.Limit, total), nil
}

// GetProduct accepts an id or a slug.
func (s *CatalogService) GetProduct(ctx context.Context, key string) (domain.ProductView, error) {
	p, err := s.Products.GetByKey(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductView{}, ErrProductNotFound
	}
	if err != nil {
		return domain.ProductView{}, err
	}
	return s.view(ctx, s.Variants, s.Categories, p)
}

func (s *CatalogService) view(ctx context.Context, variants *repos.VariantRepo, cats *repos.CategoryRepo, p domain.Product) (domain.ProductView, error) {
	vs, err := variants.ListByProduct(ctx, p.ID)
	if err != nil {
		return domain.ProductView{}, err
	}
	pv := domain.ProductView{Product: p, Variants: vs}
	if c, err := cats.Get(ctx, p.CategoryID); err == nil {
		pv.Category = &domain.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return domain.ProductView{}, err
	}
	return pv, nil
}

func (s *CatalogService) categoryIndex(ctx context.Context) (map[string]*domain.CategorySummary, error) {
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*domain.CategorySummary, len(cats))
	for _, c := range cats {
		idx[c.ID] = &domain.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	return idx, nil
}

// ProductInput carries create and partial update fields; nil means unchanged.
type ProductInput struct {
	Name             *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Slug             *string          `json:"slug" validate:"omitempty,max=200"`
	Description      *string          `json:"description"`
	ShortDescription *string          `json:"shortDescription" validate:"omitempty,max=300"`
	Price            *decimal.Decimal `json:"price"`
	ComparePrice     *decimal.Decimal `json:"comparePrice"`
	Inventory        *int             `json:"inventory" validate:"omitempty,min=0"`
	CategoryID       *string          `json:"categoryId"`
	Images           []string         `json:"images" validate:"omitempty,dive,max=500"`
	Tags             []string         `json:"tags" validate:"omitempty,dive,max=50"`
	Brand            *string          `json:"brand"`
	Processor        *string          `json:"processor"`
	RAM              *string          `json:"ram"`
	Storage          *string          `json:"storage"`
	Graphics         *string          `json:"graphics"`
	Featured         *bool            `json:"featured"`
	Rating           *float64         `json:"rating" validate:"omitempty,min=0,max=5"`
}

func (in ProductInput) apply(p *domain.Product) {
	setStr(&p.Name, in.Name)
	setStr(&p.Description, in.Description)
	setStr(&p.ShortDescription, in.ShortDescription)
	setStr(&p.Brand, in.Brand)
	setStr(&p.Processor, in.Processor)
	setStr(&p.RAM, in.RAM)
	setStr(&p.Storage, in.Storage)
	setStr(&p.Graphics, in.Graphics)
	setStr(&p.CategoryID, in.CategoryID)
	if in.Slug != nil {
		p.Slug = normalizeSlug(*in.Slug)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.ComparePrice != nil {
		// Zero clears the compare price.
		p.ComparePrice = decimal.NullDecimal{Decimal: *in.ComparePrice, Valid: in.ComparePrice.IsPositive()}
	}
	if in.Inventory != nil {
		p.Inventory = *in.Inventory
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.ProductView, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Price == nil || in.CategoryID == nil || *in.CategoryID == "" {
		return domain.ProductView{}, invalid("name, price and categoryId are required")
	}
	p := domain.Product{ID: uuid.NewString(), Images: []string{}, Tags: []string{}}
	in.apply(&p)
	p.Name = strings.TrimSpace(p.Name)
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	var out domain.ProductView
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		prods, vars, cats := s.Products.WithTx(tx), s.Variants.WithTx(tx), s.Categories.WithTx(tx)
		if err := checkProduct(ctx, prods, cats, p); err != nil {
			return err
		}
		if err := prods.Create(ctx, p); err != nil {
			return mapConstraint(err)
		}
		created, err := prods.Get(ctx, p.ID)
		if err != nil {
			return err
		}
		out, err = s.view(ctx, vars, cats, created)
		return err
	})
	return out, err
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.ProductView, error) {
	var out domain.ProductView
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		prods, vars, cats := s.Products.WithTx(tx), s.Variants.WithTx(tx), s.Categories.WithTx(tx)
		p, err := prods.Get(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		in.apply(&p)
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return invalid("name cannot be empty")
		}
		if p.Slug == "" {
			p.Slug = slug.Make(p.Name)
		}
		if err := checkProduct(ctx, prods, cats, p); err != nil {
			return err
		}
		if err := prods.Update(ctx, p); err != nil {
			return mapConstraint(err)
		}
		updated, err := prods.Get(ctx, id)
		if err != nil {
			return err
		}
		out, err = s.view(ctx, vars, cats, updated)
		return err
	})
	return out, err
}

func checkProduct(ctx context.Context, prods *repos.ProductRepo, cats *repos.CategoryRepo, p domain.Product) error {
	if p.Price.IsNegative() {
		return invalid("price must not be negative")
	}
	if p.Inventory < 0 {
		return invalid("inventory must not be negative")
	}
	taken, err := prods.SlugTaken(ctx, p.Slug, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}
	ok, err := cats.Exists(ctx, p.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryMissing
	}
	return nil
}

// DeleteProduct removes the product; variants and cart lines cascade.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	ok, err := s.Products.Delete(ctx, id)
	if err != nil {
		return mapConstraint(err)
	}
	if !ok {
		return ErrProductNotFound
	}
	return nil
}

func (s *CatalogService) ListVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, invalid("productId is required")
	}
	return s.Variants.ListByProduct(ctx, productID)
}

type VariantInput struct {
	ProductID *string          `json:"productId"`
	Name      *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Value     *string          `json:"value" validate:"omitempty,min=1,max=100"`
	Price     *decimal.Decimal `json:"price"`
	Inventory *int             `json:"inventory" validate:"omitempty,min=0"`
	SKU       *string          `json:"sku" validate:"omitempty,max=64"`
}

func (in VariantInput) apply(v *domain.Variant) {
	setStr(&v.Name, in.Name)
	setStr(&v.Value, in.Value)
	if in.SKU != nil {
		v.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Price != nil {
		// Zero clears the override so the product price applies.
		v.Price = decimal.NullDecimal{Decimal: *in.Price, Valid: in.Price.IsPositive()}
	}
	if in.Inventory != nil {
		v.Inventory = *in.Inventory
	}
}

func (s *CatalogService) CreateVariant(ctx context.Context, in VariantInput) (domain.Variant, error) {
	if in.ProductID == nil || *in.ProductID == "" || in.Name == nil || *in.Name == "" || in.Value == nil || *in.Value == "" {
		return domain.Variant{}, invalid("productId, name and value are required")
	}
	v := domain.Variant{ID: uuid.NewString(), ProductID: *in.ProductID}
	in.apply(&v)
	var out domain.Variant
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		prods, vars := s.Products.WithTx(tx), s.Variants.WithTx(tx)
		if _, err := prods.Get(ctx, v.ProductID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return err
		}
		if err := checkVariant(ctx, vars, v); err != nil {
			return err
		}
		if err := vars.Create(ctx, v); err != nil {
			return mapConstraint(err)
		}
		var err error
		out, err = vars.Get(ctx, v.ID)
		return err
	})
	return out, err
}

func (s *CatalogService) UpdateVariant(ctx context.Context, id string, in VariantInput) (domain.Variant, error) {
	var out domain.Variant
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		vars := s.Variants.WithTx(tx)
		v, err := vars.Get(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVariantNotFound
		}
		if err != nil {
			return err
		}
		in.apply(&v)
		if strings.TrimSpace(v.Name) == "" || strings.TrimSpace(v.Value) == "" {
			return invalid("name and value cannot be empty")
		}
		if err := checkVariant(ctx, vars, v); err != nil {
			return err
		}
		if err := vars.Update(ctx, v); err != nil {
			return mapConstraint(err)
		}
		out, err = vars.Get(ctx, id)
		return err
	})
	return out, err
}

func checkVariant(ctx context.Context, vars *repos.VariantRepo, v domain.Variant) error {
	if v.Inventory < 0 {
		return invalid("inventory must not be negative")
	}
	taken, err := vars.SKUTaken(ctx, v.SKU, v.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSKUTaken
	}
	return nil
}

func (s *CatalogService) DeleteVariant(ctx context.Context, id string) error {
	ok, err := s.Variants.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVariantNotFound
	}
	return nil
}

// ListCategories returns every category with its parent, children and product count.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.CategoryTree, error) {
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Categories.ProductCounts(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Category, len(cats))
	children := map[string][]domain.CategorySummary{}
	for _, c := range cats {
		byID[c.ID] = c
		if c.ParentID != "" {
			children[c.ParentID] = append(children[c.ParentID], domain.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug})
		}
	}
	out := make([]domain.CategoryTree, 0, len(cats))
	for _, c := range cats {
		t := domain.CategoryTree{Category: c, Children: children[c.ID], ProductCount: counts[c.ID]}
		if t.Children == nil {
			t.Children = []domain.CategorySummary{}
		}
		if p, ok := byID[c.ParentID]; ok {
			t.Parent = &domain.CategorySummary{ID: p.ID, Name: p.Name, Slug: p.Slug}
		}
		out = append(out, t)
	}
	return out, nil
}

type CategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,max=100"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Icon        *string `json:"icon"`
	ParentID    *string `json:"parentId"`
}

func (in CategoryInput) apply(c *domain.Category) {
	setStr(&c.Name, in.Name)
	setStr(&c.Description, in.Description)
	setStr(&c.Image, in.Image)
	setStr(&c.Icon, in.Icon)
	setStr(&c.ParentID, in.ParentID)
	if in.Slug != nil {
		c.Slug = normalizeSlug(*in.Slug)
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (domain.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return domain.Category{}, invalid("name is required")
	}
	c := domain.Category{ID: uuid.NewString()}
	in.apply(&c)
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	var out domain.Category
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		cats := s.Categories.WithTx(tx)
		if err := checkCategory(ctx, cats, c); err != nil {
			return err
		}
		if err := cats.Create(ctx, c); err != nil {
			return mapConstraint(err)
		}
		var err error
		out, err = cats.Get(ctx, c.ID)
		return err
	})
	return out, err
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (domain.Category, error) {
	var out domain.Category
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		cats := s.Categories.WithTx(tx)
		c, err := cats.Get(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return err
		}
		in.apply(&c)
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return invalid("name cannot be empty")
		}
		if c.Slug == "" {
			c.Slug = slug.Make(c.Name)
		}
		if err := checkCategory(ctx, cats, c); err != nil {
			return err
		}
		if err := cats.Update(ctx, c); err != nil {
			return mapConstraint(err)
		}
		out, err = cats.Get(ctx, id)
		return err
	})
	return out, err
}

func checkCategory(ctx context.Context, cats *repos.CategoryRepo, c domain.Category) error {
	taken, err := cats.SlugTaken(ctx, c.Slug, c.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}
	if c.ParentID == "" {
		return nil
	}
	if c.ParentID == c.ID {
		return invalid("a category cannot be its own parent")
	}
	ok, err := cats.Exists(ctx, c.ParentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrParentMissing
	}
	return nil
}

// DeleteCategory refuses while products still reference the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		n, err := s.Products.WithTx(tx).CountInCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCategoryInUse
		}
		ok, err := s.Categories.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return mapConstraint(err)
		}
		if !ok {
			return ErrCategoryNotFound
		}
		return nil
	})
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func normalizeSlug(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// mapConstraint turns constraint failures that slipped past the pre-checks
// into client errors.
func mapConstraint(err error) error {
	switch {
	case repos.IsUniqueViolation(err):
		return invalid("a record with the same unique value already exists")
	case repos.IsForeignKeyViolation(err):
		return invalid("referenced record does not exist or is still in use")
	}
	return err
}
