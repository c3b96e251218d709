package handlers

import (
	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
	applog "techshop/internal/log"
	"techshop/internal/services"
)

type CartHandler struct {
	base
	Cart *services.CartService
}

type addItemReq struct {
	ProductID string `json:"productId" validate:"required,resid"`
	VariantID string `json:"variantId" validate:"omitempty,resid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateItemReq struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type mergeReq struct {
	MergeID string             `json:"mergeId" validate:"omitempty,max=64"`
	Items   []domain.MergeLine `json:"items"`
}

// GET /api/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cart, err := h.Cart.View(c.UserContext(), principal(c).UserID)
	if err != nil {
		return h.failErr(c, "cart.view", err)
	}
	return h.ok(c, fiber.StatusOK, cart, "")
}

// POST /api/cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req addItemReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	line, err := h.Cart.Add(c.UserContext(), principal(c).UserID, services.AddItem{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return h.failErr(c, "cart.add", err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": req.ProductID, "variant_id": req.VariantID, "qty": req.Quantity})
	return h.ok(c, fiber.StatusOK, line, "item added to cart")
}

// PUT /api/cart
func (h *CartHandler) Update(c *fiber.Ctx) error {
	var req updateItemReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	line, err := h.Cart.Update(c.UserContext(), principal(c).UserID, req.ItemID, req.Quantity)
	if err != nil {
		return h.failErr(c, "cart.update", err)
	}
	return h.ok(c, fiber.StatusOK, line, "cart item updated")
}

// DELETE /api/cart?itemId=
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	itemID := c.Query("itemId")
	if itemID == "" {
		return h.fail(c, fiber.StatusBadRequest, "itemId is required", "")
	}
	if err := h.Cart.Remove(c.UserContext(), principal(c).UserID, itemID); err != nil {
		return h.failErr(c, "cart.remove", err)
	}
	applog.Info(c, "cart.remove", map[string]any{"item_id": itemID})
	return h.ok(c, fiber.StatusOK, nil, "item removed from cart")
}

// POST /api/cart/merge
func (h *CartHandler) Merge(c *fiber.Ctx) error {
	var req mergeReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	res, err := h.Cart.Merge(c.UserContext(), principal(c).UserID, req.MergeID, req.Items)
	if err != nil {
		return h.failErr(c, "cart.merge", err)
	}
	applog.Info(c, "cart.merge", map[string]any{
		"merge_id": req.MergeID,
		"merged":   len(res.Merged),
		"skipped":  len(res.Skipped),
		"replayed": res.Replayed,
	})
	return h.ok(c, fiber.StatusOK, res, "")
}
