package handlers

import (
	"github.com/jmoiron/sqlx"

	"techshop/internal/config"
	"techshop/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler      *AuthHandler
	CartHandler      *CartHandler
	ProductHandler   *ProductHandler
	VariantHandler   *VariantHandler
	CategoryHandler  *CategoryHandler
	InventoryHandler *InventoryHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	b := base{Production: cfg.Production()}

	authSvc := services.NewAuthService(db, cfg.JWTSecret)
	catalogSvc := services.NewCatalogService(db)
	invSvc := services.NewInventoryService(db)
	cartSvc := services.NewCartService(db)
	adminSvc := services.NewAdminService(db)

	return &Deps{
		Auth:             authSvc,
		AuthHandler:      &AuthHandler{base: b, Auth: authSvc, OAuth: NewOAuth(cfg)},
		CartHandler:      &CartHandler{base: b, Cart: cartSvc},
		ProductHandler:   &ProductHandler{base: b, Catalog: catalogSvc},
		VariantHandler:   &VariantHandler{base: b, Catalog: catalogSvc},
		CategoryHandler:  &CategoryHandler{base: b, Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{base: b, Inv: invSvc},
		AdminHandler:     &AdminHandler{base: b, Admin: adminSvc},
	}
}
