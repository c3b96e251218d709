package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
	applog "techshop/internal/log"
	"techshop/internal/services"
	"techshop/internal/validate"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool         `json:"success"`
	Data       any          `json:"data,omitempty"`
	Error      string       `json:"error,omitempty"`
	Message    string       `json:"message,omitempty"`
	Available  *int         `json:"available,omitempty"`
	Details    any          `json:"details,omitempty"`
	Pagination *domain.Page `json:"pagination,omitempty"`
}

// base is embedded by every handler.
type base struct {
	Production bool
}

func (base) ok(c *fiber.Ctx, status int, data any, msg string) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data, Message: msg})
}

func (base) fail(c *fiber.Ctx, status int, errMsg, msg string) error {
	return c.Status(status).JSON(envelope{Error: errMsg, Message: msg})
}

// bind decodes the JSON body into dst and runs struct validation.
func (b base) bind(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"reason": "bad_body"})
		return false, b.fail(c, fiber.StatusBadRequest, "invalid request body", "body must be a JSON object")
	}
	if fields := validate.Struct(dst); fields != nil {
		applog.Security(c, "validation.fail", map[string]any{"fields": fields})
		return false, c.Status(fiber.StatusBadRequest).JSON(envelope{
			Error:   "validation failed",
			Message: "one or more fields are invalid",
			Details: fields,
		})
	}
	return true, nil
}

// failErr maps a service error onto the envelope. Unknown errors are logged
// and reported as 500 with details only outside production.
func (b base) failErr(c *fiber.Ctx, action string, err error) error {
	var se *services.StockError
	switch {
	case errors.As(err, &se):
		avail := se.Available
		applog.Info(c, action+".insufficient", map[string]any{"available": avail})
		return c.Status(fiber.StatusBadRequest).JSON(envelope{
			Error:     se.Error(),
			Message:   "not enough units in stock",
			Available: &avail,
		})
	case errors.Is(err, services.ErrInvalid),
		errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrSKUTaken),
		errors.Is(err, services.ErrCategoryMissing),
		errors.Is(err, services.ErrParentMissing),
		errors.Is(err, services.ErrCategoryInUse):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "reason": err.Error()})
		return b.fail(c, fiber.StatusBadRequest, err.Error(), "")
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrVariantNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		return b.fail(c, fiber.StatusNotFound, err.Error(), "")
	}
	applog.Error(c, action+".fail", err, nil)
	env := envelope{Error: "internal server error", Message: "Something went wrong. Please try again."}
	if !b.Production {
		env.Details = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(env)
}
