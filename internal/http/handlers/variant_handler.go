package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

type VariantHandler struct {
	base
	Catalog *services.CatalogService
}

// GET /api/products/variants?productId=
func (h *VariantHandler) List(c *fiber.Ctx) error {
	vs, err := h.Catalog.ListVariants(c.UserContext(), c.Query("productId"))
	if err != nil {
		return h.failErr(c, "variants.list", err)
	}
	return h.ok(c, fiber.StatusOK, vs, "")
}

// POST /api/products/variants
func (h *VariantHandler) Create(c *fiber.Ctx) error {
	var in services.VariantInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	v, err := h.Catalog.CreateVariant(c.UserContext(), in)
	if err != nil {
		return h.failErr(c, "admin.variants.create", err)
	}
	applog.Audit(c, "admin.variants.create", map[string]any{"variant_id": v.ID, "product_id": v.ProductID})
	return h.ok(c, fiber.StatusCreated, v, "variant created")
}

// PUT|PATCH /api/products/variants?id=
func (h *VariantHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "variant id is required", "")
	}
	var in services.VariantInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	v, err := h.Catalog.UpdateVariant(c.UserContext(), id, in)
	if err != nil {
		return h.failErr(c, "admin.variants.update", err)
	}
	applog.Audit(c, "admin.variants.update", map[string]any{"variant_id": id})
	return h.ok(c, fiber.StatusOK, v, "variant updated")
}

// DELETE /api/products/variants?id=
func (h *VariantHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "variant id is required", "")
	}
	if err := h.Catalog.DeleteVariant(c.UserContext(), id); err != nil {
		return h.failErr(c, "admin.variants.delete", err)
	}
	applog.Audit(c, "admin.variants.delete", map[string]any{"variant_id": id})
	return h.ok(c, fiber.StatusOK, nil, "variant deleted")
}
