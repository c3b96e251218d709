package handlers

import (
	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

type InventoryHandler struct {
	base
	Inv *services.InventoryService
}

type stockReq struct {
	ProductID string `json:"productId" validate:"required,resid"`
	VariantID string `json:"variantId" validate:"omitempty,resid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type variantStockReq struct {
	VariantID string `json:"variantId" validate:"required,resid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// GET /api/products/inventory?id=
func (h *InventoryHandler) Product(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "product id is required", "")
	}
	snap, err := h.Inv.ProductSnapshot(c.UserContext(), id)
	if err != nil {
		return h.failErr(c, "inventory.product", err)
	}
	return h.ok(c, fiber.StatusOK, snap, "")
}

// POST /api/products/inventory
func (h *InventoryHandler) CheckProduct(c *fiber.Ctx) error {
	var req stockReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	return h.check(c, h.Inv.Check(c.UserContext(), req.ProductID, req.Quantity, req.VariantID))
}

// GET /api/products/variants/inventory?id=
func (h *InventoryHandler) Variant(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "variant id is required", "")
	}
	snap, err := h.Inv.VariantSnapshot(c.UserContext(), id)
	if err != nil {
		return h.failErr(c, "inventory.variant", err)
	}
	return h.ok(c, fiber.StatusOK, snap, "")
}

// POST /api/products/variants/inventory
func (h *InventoryHandler) CheckVariant(c *fiber.Ctx) error {
	var req variantStockReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	return h.check(c, h.Inv.Check(c.UserContext(), "", req.Quantity, req.VariantID))
}

func (h *InventoryHandler) check(c *fiber.Ctx, res domain.StockCheck) error {
	if res.Err != nil {
		return h.failErr(c, "inventory.check", res.Err)
	}
	return h.ok(c, fiber.StatusOK, res, res.Message)
}

// POST /api/admin/inventory/reserve
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var req stockReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	res := h.Inv.Reserve(c.UserContext(), req.ProductID, req.Quantity, req.VariantID)
	return h.change(c, "admin.inventory.reserve", req, res)
}

// POST /api/admin/inventory/release
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var req stockReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	res := h.Inv.Release(c.UserContext(), req.ProductID, req.Quantity, req.VariantID)
	return h.change(c, "admin.inventory.release", req, res)
}

func (h *InventoryHandler) change(c *fiber.Ctx, action string, req stockReq, res domain.StockChange) error {
	fields := map[string]any{"product_id": req.ProductID, "variant_id": req.VariantID, "qty": req.Quantity}
	if res.Err != nil {
		return h.failErr(c, action, res.Err)
	}
	if !res.Success {
		fields["reason"] = res.Message
		applog.Audit(c, action+".rejected", fields)
		return h.fail(c, fiber.StatusBadRequest, res.Message, "")
	}
	applog.Audit(c, action, fields)
	return h.ok(c, fiber.StatusOK, res, res.Message)
}
