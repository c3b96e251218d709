package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"techshop/internal/domain"
	"techshop/internal/repos"
)

type InventoryService struct {
	db       *sqlx.DB
	Inv      *repos.InventoryRepo
	Variants *repos.VariantRepo
}

func NewInventoryService(db *sqlx.DB) *InventoryService {
	return &InventoryService{db: db, Inv: repos.NewInventoryRepo(db), Variants: repos.NewVariantRepo(db)}
}

// Check compares quantity with the variant's stock when variantID is set,
// else with the product's. It never fails; Err is set for logging only.
func (s *InventoryService) Check(ctx context.Context, productID string, quantity int, variantID string) domain.StockCheck {
	res := domain.StockCheck{RequestedQuantity: quantity}
	if variantID != "" {
		v, err := s.Inv.VariantStock(ctx, variantID, productID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res.Message = "variant not found"
			return res
		case err != nil:
			res.Message, res.Err = "error checking inventory", err
			return res
		}
		res.CurrentInventory = v.Inventory
		if v.Inventory < quantity {
			res.Message = fmt.Sprintf("only %d units left of variant %q", v.Inventory, v.Name)
			return res
		}
		res.Available, res.Message = true, "inventory available"
		return res
	}

	p, err := s.Inv.ProductStock(ctx, productID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res.Message = "product not found"
		return res
	case err != nil:
		res.Message, res.Err = "error checking inventory", err
		return res
	}
	res.CurrentInventory = p.Inventory
	if p.Inventory < quantity {
		res.Message = fmt.Sprintf("only %d units left of %q", p.Inventory, p.Name)
		return res
	}
	res.Available, res.Message = true, "inventory available"
	return res
}

// Reserve decrements the variant and the product aggregate (or just the
// product) in one transaction. Nothing is written unless every guard passes.
func (s *InventoryService) Reserve(ctx context.Context, productID string, quantity int, variantID string) domain.StockChange {
	if quantity < 1 {
		return domain.StockChange{Message: "quantity must be at least 1"}
	}
	var res domain.StockChange
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		inv := s.Inv.WithTx(tx)
		if variantID != "" {
			ok, err := inv.DecrementVariant(ctx, variantID, productID, quantity)
			if err != nil {
				return err
			}
			if !ok {
				res.Message = "insufficient variant inventory"
				return errReject
			}
		}
		ok, err := inv.DecrementProduct(ctx, productID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			res.Message = "insufficient inventory"
			return errReject
		}
		return nil
	})
	switch {
	case errors.Is(err, errReject):
		return res
	case err != nil:
		return domain.StockChange{Message: "error reserving inventory", Err: err}
	}
	return domain.StockChange{Success: true, Message: "inventory reserved"}
}

// Release is the inverse of Reserve.
func (s *InventoryService) Release(ctx context.Context, productID string, quantity int, variantID string) domain.StockChange {
	if quantity < 1 {
		return domain.StockChange{Message: "quantity must be at least 1"}
	}
	var res domain.StockChange
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		inv := s.Inv.WithTx(tx)
		if variantID != "" {
			ok, err := inv.IncrementVariant(ctx, variantID, productID, quantity)
			if err != nil {
				return err
			}
			if !ok {
				res.Message = "variant not found"
				return errReject
			}
		}
		ok, err := inv.IncrementProduct(ctx, productID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			res.Message = "product not found"
			return errReject
		}
		return nil
	})
	switch {
	case errors.Is(err, errReject):
		return res
	case err != nil:
		return domain.StockChange{Message: "error releasing inventory", Err: err}
	}
	return domain.StockChange{Success: true, Message: "inventory released"}
}

func (s *InventoryService) ProductSnapshot(ctx context.Context, productID string) (domain.ProductStock, error) {
	p, err := s.Inv.ProductStock(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductStock{}, ErrProductNotFound
	}
	if err != nil {
		return domain.ProductStock{}, err
	}
	vs, err := s.Variants.ListByProduct(ctx, productID)
	if err != nil {
		return domain.ProductStock{}, err
	}
	stocks := make([]domain.VariantStock, 0, len(vs))
	for _, v := range vs {
		stocks = append(stocks, domain.NewVariantStock(v))
	}
	return domain.NewProductStock(p.ID, p.Name, p.Inventory, stocks), nil
}

func (s *InventoryService) VariantSnapshot(ctx context.Context, variantID string) (domain.VariantStock, error) {
	v, err := s.Variants.Get(ctx, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VariantStock{}, ErrVariantNotFound
	}
	if err != nil {
		return domain.VariantStock{}, err
	}
	p, err := s.Inv.ProductStock(ctx, v.ProductID)
	if err != nil {
		return domain.VariantStock{}, err
	}
	snap := domain.NewVariantStock(v)
	snap.ProductID, snap.ProductName, snap.ProductInventory = p.ID, p.Name, p.Inventory
	return snap, nil
}

// errReject aborts a transaction whose guard failed; the caller reports it as a result.
var errReject = errors.New("rejected")
