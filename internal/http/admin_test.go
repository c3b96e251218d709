package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"techshop/internal/domain"
	"techshop/internal/services"
)

func TestProductStats(t *testing.T) {
	app, deps := newTestApp(t)

	resp, env := call(t, app, "GET", "/api/products/stats", adminToken(t, deps), nil)
	expectStatus(t, resp, env, http.StatusOK)
	var st services.ProductStats
	decodeData(t, env, &st)
	if st.Totals.Products != 4 || st.Totals.Categories != 3 || st.Totals.Featured != 2 {
		t.Fatalf("unexpected totals %+v", st.Totals)
	}
	if st.Inventory.LowStock != 2 || st.Inventory.OutOfStock != 1 {
		t.Fatalf("unexpected inventory stats %+v", st.Inventory)
	}
	if !strings.HasPrefix(st.Inventory.FormattedTotalValue, "$") {
		t.Fatalf("unexpected formatted value %q", st.Inventory.FormattedTotalValue)
	}
	if len(st.Distribution.ByCategory) != 3 || len(st.Distribution.ByBrand) != 4 {
		t.Fatalf("unexpected distribution %+v", st.Distribution)
	}
}

func TestDashboardStats(t *testing.T) {
	app, deps := newTestApp(t)

	resp, env := call(t, app, "GET", "/api/admin/stats", adminToken(t, deps), nil)
	expectStatus(t, resp, env, http.StatusOK)
	var st services.DashboardStats
	decodeData(t, env, &st)
	if st.Users != 4 || st.Products != 4 || st.Orders != 2 || st.NewUsers != 4 {
		t.Fatalf("unexpected counts %+v", st)
	}
	if !st.Revenue.Round(2).Equal(decimal.RequireFromString("1348.98")) {
		t.Fatalf("unexpected revenue %s", st.Revenue)
	}
	if len(st.RecentOrders) != 2 || len(st.LowStock) != 3 || len(st.Categories) != 3 {
		t.Fatalf("unexpected lists orders=%d low=%d cats=%d", len(st.RecentOrders), len(st.LowStock), len(st.Categories))
	}
}

func TestAdminReserveAndRelease(t *testing.T) {
	app, deps := newTestApp(t)
	admin := adminToken(t, deps)
	line := map[string]any{"productId": "p-titan16", "variantId": "v-titan16-64", "quantity": 2}

	var resp *http.Response
	var env testEnvelope
	entries := captureLogs(t, func() {
		resp, env = call(t, app, "POST", "/api/admin/inventory/reserve", admin, line)
	})
	expectStatus(t, resp, env, http.StatusOK)
	e, ok := findLog(entries, "admin.inventory.reserve")
	if !ok || e.Level != "audit" {
		t.Fatalf("reserve not audited: %+v", e)
	}
	for _, k := range []string{"product_id", "variant_id", "qty"} {
		if _, ok := e.Fields[k]; !ok {
			t.Fatalf("reserve audit missing %s", k)
		}
	}

	snapshot := func() domain.ProductStock {
		_, env := call(t, app, "GET", "/api/products/inventory?id=p-titan16", "", nil)
		var ps domain.ProductStock
		decodeData(t, env, &ps)
		return ps
	}
	ps := snapshot()
	if ps.MainInventory != 6 {
		t.Fatalf("expected product stock 6 after reserve, got %d", ps.MainInventory)
	}

	// The variant is exhausted; nothing moves.
	resp, env = call(t, app, "POST", "/api/admin/inventory/reserve", admin, map[string]any{
		"productId": "p-titan16", "variantId": "v-titan16-64", "quantity": 1,
	})
	expectStatus(t, resp, env, http.StatusBadRequest)
	if ps := snapshot(); ps.MainInventory != 6 {
		t.Fatalf("failed reserve changed product stock to %d", ps.MainInventory)
	}

	resp, env = call(t, app, "POST", "/api/admin/inventory/release", admin, line)
	expectStatus(t, resp, env, http.StatusOK)
	ps = snapshot()
	if ps.MainInventory != 8 || ps.TotalInventory != 13 {
		t.Fatalf("expected stock restored, got %+v", ps)
	}

	resp, env = call(t, app, "POST", "/api/admin/inventory/reserve", admin, map[string]any{"productId": "p-aero14", "quantity": 6})
	expectStatus(t, resp, env, http.StatusBadRequest)
	resp, env = call(t, app, "POST", "/api/admin/inventory/release", admin, map[string]any{"productId": "p-ghost", "quantity": 1})
	expectStatus(t, resp, env, http.StatusBadRequest)
	resp, env = call(t, app, "POST", "/api/admin/inventory/reserve", admin, map[string]any{"productId": "p-aero14", "quantity": 0})
	expectStatus(t, resp, env, http.StatusBadRequest)
}

func TestAdminOrderStatus(t *testing.T) {
	app, deps := newTestApp(t)
	admin := adminToken(t, deps)

	resp, env := call(t, app, "PATCH", "/api/admin/orders/o-1002", admin, map[string]any{"status": "lost"})
	expectStatus(t, resp, env, http.StatusBadRequest)

	resp, env = call(t, app, "PATCH", "/api/admin/orders/o-9999", admin, map[string]any{"status": "PAID"})
	expectStatus(t, resp, env, http.StatusNotFound)

	resp, env = call(t, app, "PATCH", "/api/admin/orders/o-1002", admin, map[string]any{"status": "canceled"})
	expectStatus(t, resp, env, http.StatusOK)

	_, env = call(t, app, "GET", "/api/admin/stats", admin, nil)
	var st services.DashboardStats
	decodeData(t, env, &st)
	if !st.Revenue.Round(2).Equal(decimal.RequireFromString("1299")) {
		t.Fatalf("canceled order still counted in revenue: %s", st.Revenue)
	}
}
