package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

type ProductHandler struct {
	base
	Catalog *services.CatalogService
}

// GET /api/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := services.ListQuery{
		Page:     validate.Int(c.Query("page"), 1),
		Limit:    validate.Int(c.Query("limit"), services.DefaultPageSize),
		Category: c.Query("category"),
		Featured: c.QueryBool("featured", false),
	}
	if raw := c.Query("search"); raw != "" {
		s, ok := validate.Q(raw)
		if !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "search"})
			return h.fail(c, fiber.StatusBadRequest, "invalid search query", "")
		}
		q.Search = s
	}
	views, page, err := h.Catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return h.failErr(c, "products.list", err)
	}
	return c.JSON(envelope{Success: true, Data: views, Pagination: &page})
}

// GET /api/products/:key
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	view, err := h.Catalog.GetProduct(c.UserContext(), c.Params("key"))
	if err != nil {
		return h.failErr(c, "products.get", err)
	}
	return h.ok(c, fiber.StatusOK, view, "")
}

// POST /api/products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	view, err := h.Catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return h.failErr(c, "admin.products.create", err)
	}
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": view.ID, "slug": view.Slug})
	return h.ok(c, fiber.StatusCreated, view, "product created")
}

// PUT|PATCH /api/products?id=
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "product id is required", "")
	}
	var in services.ProductInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	view, err := h.Catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return h.failErr(c, "admin.products.update", err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product_id": id})
	return h.ok(c, fiber.StatusOK, view, "product updated")
}

// DELETE /api/products?id=
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "product id is required", "")
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return h.failErr(c, "admin.products.delete", err)
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return h.ok(c, fiber.StatusOK, nil, "product deleted")
}
