package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"techshop/internal/config"
	applog "techshop/internal/log"
)

const bodyLimit = 1 << 20 // 1 MiB

// Limits are per-IP request budgets.
type Limits struct {
	Global int
	Login  int
	Check  int
	Window time.Duration
}

func DefaultLimits() Limits {
	return Limits{Global: 60, Login: 5, Check: 15, Window: time.Minute}
}

// NewApp builds the API with its middleware chain and routes.
func NewApp(cfg config.Config, db *sqlx.DB, lim Limits) (*fiber.App, *Deps) {
	deps := NewDeps(db, cfg)
	prod := cfg.Production()

	app := fiber.New(fiber.Config{
		AppName:      "techshop",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(prod),
	})

	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("started", time.Now())
		return c.Next()
	})
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(Authenticate(deps.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        lim.Global,
		Expiration: lim.Window,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
		LimitReached: rateLimited("rate.global.hit"),
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   prod,
		// Token clients are not exposed to cross-site cookie replay.
		Next: func(c *fiber.Ctx) bool {
			_, ok := bearer(c)
			return ok || c.Cookies("sid") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).JSON(envelope{
				Error:   "csrf check failed",
				Message: "Security check failed. Please refresh and try again.",
			})
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", limiter.New(limiter.Config{
		Max:          lim.Login,
		Expiration:   10 * lim.Window,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|login" },
		LimitReached: rateLimited("rate.login.hit"),
	}), deps.AuthHandler.Login)
	auth.Post("/logout", deps.AuthHandler.Logout)
	auth.Get("/session", deps.AuthHandler.Session)
	auth.Get("/oauth/google", deps.AuthHandler.OAuthBegin)
	auth.Get("/oauth/google/callback", deps.AuthHandler.OAuthCallback)

	cart := api.Group("/cart", RequireUser())
	cart.Get("/", deps.CartHandler.View)
	cart.Post("/", deps.CartHandler.Add)
	cart.Put("/", deps.CartHandler.Update)
	cart.Delete("/", deps.CartHandler.Remove)
	cart.Post("/merge", deps.CartHandler.Merge)

	checkLimiter := limiter.New(limiter.Config{
		Max:          lim.Check,
		Expiration:   lim.Window,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|avail" },
		LimitReached: rateLimited("rate.availability.hit"),
	})
	admin := RequireAdmin()

	// Fixed segments are registered ahead of /:key.
	products := api.Group("/products")
	products.Get("/stats", admin, deps.AdminHandler.ProductStats)
	products.Get("/inventory", deps.InventoryHandler.Product)
	products.Post("/inventory", checkLimiter, deps.InventoryHandler.CheckProduct)
	products.Get("/variants/inventory", deps.InventoryHandler.Variant)
	products.Post("/variants/inventory", checkLimiter, deps.InventoryHandler.CheckVariant)
	products.Get("/variants", deps.VariantHandler.List)
	products.Post("/variants", admin, deps.VariantHandler.Create)
	products.Put("/variants", admin, deps.VariantHandler.Update)
	products.Patch("/variants", admin, deps.VariantHandler.Update)
	products.Delete("/variants", admin, deps.VariantHandler.Delete)
	products.Get("/", deps.ProductHandler.List)
	products.Post("/", admin, deps.ProductHandler.Create)
	products.Put("/", admin, deps.ProductHandler.Update)
	products.Patch("/", admin, deps.ProductHandler.Update)
	products.Delete("/", admin, deps.ProductHandler.Delete)
	products.Get("/:key", deps.ProductHandler.Get)

	cats := api.Group("/categories")
	cats.Get("/", deps.CategoryHandler.List)
	cats.Post("/", admin, deps.CategoryHandler.Create)
	cats.Put("/", admin, deps.CategoryHandler.Update)
	cats.Patch("/", admin, deps.CategoryHandler.Update)
	cats.Delete("/", admin, deps.CategoryHandler.Delete)

	adm := api.Group("/admin", admin)
	adm.Get("/stats", deps.AdminHandler.Dashboard)
	adm.Post("/inventory/reserve", deps.InventoryHandler.Reserve)
	adm.Post("/inventory/release", deps.InventoryHandler.Release)
	adm.Patch("/orders/:id", deps.AdminHandler.UpdateOrderStatus)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(envelope{Error: "not found", Message: "no route for " + c.Method() + " " + c.Path()})
	})
	return app, deps
}

// ErrorHandler renders errors that escape handlers as the JSON envelope.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			applog.Error(c, "server.error", err, nil)
			env := envelope{Error: "internal server error", Message: "Something went wrong. Please try again."}
			if !production {
				env.Details = err.Error()
			}
			return c.Status(code).JSON(env)
		}
		return c.Status(code).JSON(envelope{Error: fe.Message})
	}
}

func rateLimited(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(envelope{Error: "rate limit exceeded, retry soon"})
	}
}
