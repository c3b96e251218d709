package services

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
	"techshop/internal/repos"
)

type AdminService struct {
	Products   *repos.ProductRepo
	Categories *repos.CategoryRepo
	Users      *repos.UserRepo
	Orders     *repos.OrderRepo
	Inv        *repos.InventoryRepo
}

func NewAdminService(db *sqlx.DB) *AdminService {
	return &AdminService{
		Products:   repos.NewProductRepo(db),
		Categories: repos.NewCategoryRepo(db),
		Users:      repos.NewUserRepo(db),
		Orders:     repos.NewOrderRepo(db),
		Inv:        repos.NewInventoryRepo(db),
	}
}

type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ProductStats struct {
	Totals struct {
		Products   int `json:"products"`
		Categories int `json:"categories"`
		Featured   int `json:"featured"`
	} `json:"totals"`
	Inventory struct {
		LowStock            int             `json:"lowStock"`
		OutOfStock          int             `json:"outOfStock"`
		TotalValue          decimal.Decimal `json:"totalValue"`
		FormattedTotalValue string          `json:"formattedTotalValue"`
	} `json:"inventory"`
	Distribution struct {
		ByCategory []CategoryCount    `json:"byCategory"`
		ByBrand    []repos.BrandCount `json:"byBrand"`
	} `json:"distribution"`
}

func (s *AdminService) ProductStats(ctx context.Context) (ProductStats, error) {
	var out ProductStats
	t, err := s.Products.Totals(ctx)
	if err != nil {
		return out, err
	}
	byCat, err := s.categoryCounts(ctx)
	if err != nil {
		return out, err
	}
	byBrand, err := s.Products.CountByBrand(ctx)
	if err != nil {
		return out, err
	}
	out.Totals.Products = t.Products
	out.Totals.Categories = len(byCat)
	out.Totals.Featured = t.Featured
	out.Inventory.LowStock = t.LowStock
	out.Inventory.OutOfStock = t.OutOfStock
	out.Inventory.TotalValue = t.StockValue
	out.Inventory.FormattedTotalValue = FormatMoney(t.StockValue)
	out.Distribution.ByCategory = byCat
	out.Distribution.ByBrand = byBrand
	return out, nil
}

type DashboardStats struct {
	Users            int                   `json:"users"`
	Products         int                   `json:"products"`
	Orders           int                   `json:"orders"`
	Revenue          decimal.Decimal       `json:"revenue"`
	FormattedRevenue string                `json:"formattedRevenue"`
	NewUsers         int                   `json:"newUsers"`
	RecentOrders     []domain.OrderSummary `json:"recentOrders"`
	LowStock         []repos.LowStockRow   `json:"lowStock"`
	Categories       []CategoryCount       `json:"categories"`
}

func (s *AdminService) Dashboard(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	var err error
	if out.Users, err = s.Users.Count(ctx); err != nil {
		return out, err
	}
	t, err := s.Products.Totals(ctx)
	if err != nil {
		return out, err
	}
	out.Products = t.Products
	if out.Orders, err = s.Orders.Count(ctx); err != nil {
		return out, err
	}
	if out.Revenue, err = s.Orders.Revenue(ctx); err != nil {
		return out, err
	}
	out.FormattedRevenue = FormatMoney(out.Revenue)
	if out.NewUsers, err = s.Users.CountSince(ctx, 30); err != nil {
		return out, err
	}
	if out.RecentOrders, err = s.Orders.ListLatest(ctx, 5); err != nil {
		return out, err
	}
	if out.LowStock, err = s.Inv.LowStock(ctx, domain.ProductLowStockAt, 10); err != nil {
		return out, err
	}
	out.Categories, err = s.categoryCounts(ctx)
	return out, err
}

func (s *AdminService) categoryCounts(ctx context.Context) ([]CategoryCount, error) {
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Categories.ProductCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryCount{ID: c.ID, Name: c.Name, Count: counts[c.ID]})
	}
	return out, nil
}

// SetOrderStatus changes an order's status; no stock is moved.
func (s *AdminService) SetOrderStatus(ctx context.Context, id, status string) error {
	st := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return invalid("unknown order status")
	}
	ok, err := s.Orders.UpdateStatus(ctx, id, st)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}
