package domain

import (
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string `db:"id" json:"id"`
	Slug        string `db:"slug" json:"slug"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	Image       string `db:"image" json:"image,omitempty"`
	Icon        string `db:"icon" json:"icon,omitempty"`
	ParentID    string `db:"parent_id" json:"parentId,omitempty"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt,omitempty"`
}

type CategorySummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

type CategoryTree struct {
	Category
	Parent       *CategorySummary  `json:"parent"`
	Children     []CategorySummary `json:"children"`
	ProductCount int               `json:"productCount"`
}

type Product struct {
	ID               string              `db:"id" json:"id"`
	Slug             string              `db:"slug" json:"slug"`
	Name             string              `db:"name" json:"name"`
	Description      string              `db:"description" json:"description,omitempty"`
	ShortDescription string              `db:"short_description" json:"shortDescription,omitempty"`
	Price            decimal.Decimal     `db:"price" json:"price"`
	ComparePrice     decimal.NullDecimal `db:"compare_price" json:"comparePrice"`
	Inventory        int                 `db:"inventory" json:"inventory"`
	CategoryID       string              `db:"category_id" json:"categoryId"`
	ImagesJSON       string              `db:"images_json" json:"-"`
	TagsJSON         string              `db:"tags_json" json:"-"`
	Images           []string            `db:"-" json:"images"`
	Tags             []string            `db:"-" json:"tags"`
	Brand            string              `db:"brand" json:"brand,omitempty"`
	Processor        string              `db:"processor" json:"processor,omitempty"`
	RAM              string              `db:"ram" json:"ram,omitempty"`
	Storage          string              `db:"storage" json:"storage,omitempty"`
	Graphics         string              `db:"graphics" json:"graphics,omitempty"`
	Featured         bool                `db:"featured" json:"featured"`
	Rating           float64             `db:"rating" json:"rating"`
	CreatedAt        string              `db:"created_at" json:"createdAt"`
	UpdatedAt        string              `db:"updated_at" json:"updatedAt,omitempty"`
}

// MainImage is the first image or empty.
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductView is a product with its category and variants for API output.
type ProductView struct {
	Product
	Category *CategorySummary `json:"category,omitempty"`
	Variants []Variant        `json:"variants"`
}

type Variant struct {
	ID        string              `db:"id" json:"id"`
	ProductID string              `db:"product_id" json:"productId"`
	Name      string              `db:"name" json:"name"`
	Value     string              `db:"value" json:"value"`
	Price     decimal.NullDecimal `db:"price" json:"price"`
	Inventory int                 `db:"inventory" json:"inventory"`
	SKU       string              `db:"sku" json:"sku,omitempty"`
	CreatedAt string              `db:"created_at" json:"createdAt"`
	UpdatedAt string              `db:"updated_at" json:"updatedAt,omitempty"`
}

// EffectivePrice is the variant price when it is set and positive, else the base price.
func EffectivePrice(base decimal.Decimal, variant decimal.NullDecimal) decimal.Decimal {
	if variant.Valid && variant.Decimal.IsPositive() {
		return variant.Decimal
	}
	return base
}

// Page describes one slice of a paginated listing.
type Page struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func NewPage(page, limit, total int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
