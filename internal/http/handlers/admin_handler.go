package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

type AdminHandler struct {
	base
	Admin *services.AdminService
}

type orderStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// GET /api/products/stats
func (h *AdminHandler) ProductStats(c *fiber.Ctx) error {
	st, err := h.Admin.ProductStats(c.UserContext())
	if err != nil {
		return h.failErr(c, "admin.stats.products", err)
	}
	return h.ok(c, fiber.StatusOK, st, "")
}

// GET /api/admin/stats
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	st, err := h.Admin.Dashboard(c.UserContext())
	if err != nil {
		return h.failErr(c, "admin.stats", err)
	}
	return h.ok(c, fiber.StatusOK, st, "")
}

// PATCH /api/admin/orders/:id
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "order id is required", "")
	}
	var req orderStatusReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	if err := h.Admin.SetOrderStatus(c.UserContext(), id, req.Status); err != nil {
		return h.failErr(c, "admin.orders.update", err)
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return h.ok(c, fiber.StatusOK, fiber.Map{"id": id, "status": status}, "order status updated")
}
