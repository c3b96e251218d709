package domain

const (
	ProductLowStockAt = 10
	VariantLowStockAt = 5
)

// StockCheck is the outcome of an availability query. Err carries an internal
// failure for logging only.
type StockCheck struct {
	Available         bool   `json:"available"`
	CurrentInventory  int    `json:"currentInventory"`
	RequestedQuantity int    `json:"requestedQuantity"`
	Message           string `json:"message"`
	Err               error  `json:"-"`
}

// StockChange is the outcome of a reserve or release.
type StockChange struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type VariantStock struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Value            string `json:"value"`
	SKU              string `json:"sku,omitempty"`
	Inventory        int    `json:"inventory"`
	ProductID        string `json:"productId,omitempty"`
	ProductName      string `json:"productName,omitempty"`
	ProductInventory int    `json:"productInventory,omitempty"`
	Available        bool   `json:"available"`
	LowStock         bool   `json:"lowStock"`
	OutOfStock       bool   `json:"outOfStock"`
}

type ProductStock struct {
	ProductID      string         `json:"productId"`
	ProductName    string         `json:"productName"`
	MainInventory  int            `json:"mainInventory"`
	Variants       []VariantStock `json:"variants"`
	TotalInventory int            `json:"totalInventory"`
	Available      bool           `json:"available"`
	LowStock       bool           `json:"lowStock"`
	OutOfStock     bool           `json:"outOfStock"`
}

func NewProductStock(id, name string, main int, variants []VariantStock) ProductStock {
	total := main
	for _, v := range variants {
		total += v.Inventory
	}
	return ProductStock{
		ProductID:      id,
		ProductName:    name,
		MainInventory:  main,
		Variants:       variants,
		TotalInventory: total,
		Available:      total > 0,
		LowStock:       total > 0 && total <= ProductLowStockAt,
		OutOfStock:     total == 0,
	}
}

func NewVariantStock(v Variant) VariantStock {
	return VariantStock{
		ID:         v.ID,
		Name:       v.Name,
		Value:      v.Value,
		SKU:        v.SKU,
		Inventory:  v.Inventory,
		Available:  v.Inventory > 0,
		LowStock:   v.Inventory > 0 && v.Inventory <= VariantLowStockAt,
		OutOfStock: v.Inventory == 0,
	}
}
