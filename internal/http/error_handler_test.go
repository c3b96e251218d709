package handlers_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"techshop/internal/http/handlers"
)

func errorApp(production bool) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(production)})
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return errors.New("db timeout: secret trace")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	return app
}

func TestErrorHandlerHidesDetailsInProduction(t *testing.T) {
	app := errorApp(true)

	var resp *http.Response
	entries := captureLogs(t, func() {
		var err error
		resp, err = app.Test(httptest.NewRequest("GET", "/err", nil))
		if err != nil {
			t.Fatalf("test request failed: %v", err)
		}
	})
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	if !strings.Contains(s, "Something went wrong") || !strings.Contains(s, `"success":false`) {
		t.Fatalf("friendly envelope missing; body=%s", s)
	}
	if strings.Contains(s, "db timeout") || strings.Contains(s, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", s)
	}
	e, ok := findLog(entries, "server.error")
	if !ok || !strings.Contains(e.Err, "db timeout") {
		t.Fatalf("server.error not logged with cause: %+v", e)
	}
}

func TestErrorHandlerShowsDetailsOutsideProduction(t *testing.T) {
	app := errorApp(false)

	resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "db timeout") {
		t.Fatalf("expected details in development; body=%s", body)
	}
}

func TestErrorHandlerKeepsClientStatus(t *testing.T) {
	app := errorApp(true)

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTeapot {
		t.Fatalf("expected 418, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "short and stout") {
		t.Fatalf("expected client message; body=%s", body)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	app, _ := newTestApp(t)

	resp, env := call(t, app, "GET", "/api/nothing-here", "", nil)
	expectStatus(t, resp, env, http.StatusNotFound)
	if env.Success || env.Error != "not found" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
