package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

type CategoryHandler struct {
	base
	Catalog *services.CatalogService
}

// GET /api/categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	tree, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return h.failErr(c, "categories.list", err)
	}
	return h.ok(c, fiber.StatusOK, tree, "")
}

// POST /api/categories
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var in services.CategoryInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), in)
	if err != nil {
		return h.failErr(c, "admin.categories.create", err)
	}
	applog.Audit(c, "admin.categories.create", map[string]any{"category_id": cat.ID, "slug": cat.Slug})
	return h.ok(c, fiber.StatusCreated, cat, "category created")
}

// PUT|PATCH /api/categories?id=
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "category id is required", "")
	}
	var in services.CategoryInput
	if ok, err := h.bind(c, &in); !ok {
		return err
	}
	cat, err := h.Catalog.UpdateCategory(c.UserContext(), id, in)
	if err != nil {
		return h.failErr(c, "admin.categories.update", err)
	}
	applog.Audit(c, "admin.categories.update", map[string]any{"category_id": id})
	return h.ok(c, fiber.StatusOK, cat, "category updated")
}

// DELETE /api/categories?id=
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return h.fail(c, fiber.StatusBadRequest, "category id is required", "")
	}
	if err := h.Catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return h.failErr(c, "admin.categories.delete", err)
	}
	applog.Audit(c, "admin.categories.delete", map[string]any{"category_id": id})
	return h.ok(c, fiber.StatusOK, nil, "category deleted")
}
