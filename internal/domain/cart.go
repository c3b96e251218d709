package domain

import "github.com/shopspring/decimal"

// CartLine is a cart item joined with its product and variant.
type CartLine struct {
	ID           string              `db:"id" json:"id"`
	CartID       string              `db:"cart_id" json:"cartId,omitempty"`
	ProductID    string              `db:"product_id" json:"productId"`
	ProductName  string              `db:"product_name" json:"productName"`
	ProductSlug  string              `db:"product_slug" json:"productSlug"`
	ProductImage string              `db:"-" json:"productImage"`
	ImagesJSON   string              `db:"images_json" json:"-"`
	ProductPrice decimal.Decimal     `db:"product_price" json:"productPrice"`
	Brand        string              `db:"brand" json:"brand,omitempty"`
	VariantID    string              `db:"variant_id" json:"variantId,omitempty"`
	VariantName  string              `db:"variant_name" json:"variantName,omitempty"`
	VariantValue string              `db:"variant_value" json:"variantValue,omitempty"`
	VariantPrice decimal.NullDecimal `db:"variant_price" json:"variantPrice"`
	Quantity     int                 `db:"quantity" json:"quantity"`
	Inventory    int                 `db:"inventory" json:"inventory"`
	Price        decimal.Decimal     `db:"-" json:"price"`
	Total        decimal.Decimal     `db:"-" json:"total"`
}

type Cart struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Items          []CartLine      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	FormattedTotal string          `json:"formattedTotal"`
	ItemCount      int             `json:"itemCount"`
}

// MergeLine is one locally held line sent for merging into the server cart.
type MergeLine struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// SkippedLine is a merge line that failed validation and was not applied.
type SkippedLine struct {
	MergeLine
	Reason    string `json:"reason"`
	Available *int   `json:"available,omitempty"`
}

type MergeResult struct {
	Cart     Cart          `json:"cart"`
	Merged   []CartLine    `json:"merged"`
	Skipped  []SkippedLine `json:"skipped"`
	Replayed bool          `json:"replayed"`
}

// Compute sets the effective unit price and line total from the joined rows.
func (l *CartLine) Compute() {
	l.Price = EffectivePrice(l.ProductPrice, l.VariantPrice)
	l.Total = l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
