package cartclient_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"techshop/internal/cartclient"
	"techshop/internal/config"
	"techshop/internal/domain"
	"techshop/internal/http/handlers"
	"techshop/internal/repos"
)

// startShop serves a seeded shop on a loopback port and returns its base URL.
func startShop(t *testing.T) string {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{
		DBDSN:     ":memory:",
		Env:       "test",
		JWTSecret: "client-test",
		HashKey:   []byte(strings.Repeat("h", 32)),
		BlockKey:  []byte(strings.Repeat("b", 32)),
	}
	app, _ := handlers.NewApp(cfg, db, handlers.Limits{Global: 1000, Login: 20, Check: 20, Window: time.Minute})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = db.Close()
	})
	return "http://" + ln.Addr().String()
}

func TestCart_LocalLinesMergeByKey(t *testing.T) {
	store := &cartclient.MemStore{}
	c, err := cartclient.Open(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	price := decimal.RequireFromString("24.99")

	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-mouse", Price: price, Quantity: 1}))
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-mouse", Price: price, Quantity: 2}))
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-titan16", VariantID: "v-titan16-64", Price: decimal.NewFromInt(2500), Quantity: 1}))

	items := c.Items()
	if len(items) != 2 || items[0].ID != "p-mouse" || items[0].Quantity != 3 || items[1].ID != "p-titan16-v-titan16-64" {
		t.Fatalf("unexpected items %+v", items)
	}
	if c.Mode() != cartclient.Local || c.Count() != 4 {
		t.Fatalf("mode %s count %d", c.Mode(), c.Count())
	}
	if !c.Total().Equal(decimal.RequireFromString("2574.97")) {
		t.Fatalf("total %s", c.Total())
	}

	if err := c.Add(ctx, cartclient.Item{ProductID: "p-mouse"}); !errors.Is(err, cartclient.ErrQuantity) {
		t.Fatalf("want ErrQuantity, got %v", err)
	}
	if err := c.Update(ctx, "p-nope", 1); !errors.Is(err, cartclient.ErrItemMissing) {
		t.Fatalf("want ErrItemMissing, got %v", err)
	}
	must(t, c.Update(ctx, "p-mouse", 1))
	must(t, c.Remove(ctx, "p-titan16-v-titan16-64"))
	if c.Count() != 1 || len(store.State.Items) != 1 {
		t.Fatalf("store not updated: %+v", store.State)
	}
	must(t, c.Clear(ctx))
	if len(c.Items()) != 0 {
		t.Fatal("clear left items")
	}
}

func TestFileStore(t *testing.T) {
	fs := cartclient.FileStore{Path: filepath.Join(t.TempDir(), "nested", "cart.json")}

	st, err := fs.Load()
	if err != nil || st.Token != "" || len(st.Items) != 0 {
		t.Fatalf("missing file should load empty: %+v %v", st, err)
	}
	want := cartclient.State{
		Token:   "tok",
		MergeID: "m-1",
		Items:   []cartclient.Item{{ID: "p-dock", ProductID: "p-dock", Price: decimal.RequireFromString("89.5"), Quantity: 2}},
	}
	must(t, fs.Save(want))

	got, err := fs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "tok" || got.MergeID != "m-1" || len(got.Items) != 1 || !got.Items[0].Price.Equal(want.Items[0].Price) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCart_SignInMergesLocalItems(t *testing.T) {
	api := cartclient.NewAPI(startShop(t))
	ctx := context.Background()
	store := &cartclient.MemStore{}
	c, err := cartclient.Open(store, api)
	if err != nil {
		t.Fatal(err)
	}

	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-mouse", Quantity: 2}))
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-titan16", VariantID: "v-titan16-64", Quantity: 1}))
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-aero14", Quantity: 9}))

	token, err := api.Login(ctx, "alice@techshop.test", "Passw0rd!")
	if err != nil || token == "" {
		t.Fatalf("login: %v", err)
	}
	skipped, err := c.SignIn(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 1 || skipped[0].ProductID != "p-aero14" || skipped[0].Available == nil || *skipped[0].Available != 5 {
		t.Fatalf("unexpected skipped %+v", skipped)
	}
	if c.Mode() != cartclient.Remote || c.Count() != 3 || store.State.MergeID != "" {
		t.Fatalf("after sign in: mode %s count %d state %+v", c.Mode(), c.Count(), store.State)
	}
	if !c.Total().Equal(decimal.RequireFromString("2549.97")) {
		t.Fatalf("total %s", c.Total())
	}
	if _, err := c.SignIn(ctx, token); !errors.Is(err, cartclient.ErrSignedIn) {
		t.Fatalf("want ErrSignedIn, got %v", err)
	}

	// Remote adds land on the server line and mirror its answer.
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-mouse", Quantity: 1}))
	var mouse, titan string
	for _, it := range c.Items() {
		switch it.ProductID {
		case "p-mouse":
			mouse = it.ID
			if it.Quantity != 3 {
				t.Fatalf("mouse quantity %d", it.Quantity)
			}
		case "p-titan16":
			titan = it.ID
		}
	}
	if mouse == "" || mouse == "p-mouse" || titan == "" {
		t.Fatalf("expected server ids, got %+v", c.Items())
	}

	var apiErr *cartclient.APIError
	if err := c.Update(ctx, titan, 5); !errors.As(err, &apiErr) || apiErr.Status != 400 || apiErr.Available == nil || *apiErr.Available != 2 {
		t.Fatalf("want 400 with available 2, got %v", err)
	}
	must(t, c.Remove(ctx, titan))

	server, err := api.Cart(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if server.ItemCount != 3 || len(server.Items) != 1 {
		t.Fatalf("server cart %+v", server)
	}

	must(t, c.SignOut())
	if c.Mode() != cartclient.Local || c.Count() != 0 {
		t.Fatal("sign out should leave an empty local cart")
	}
}

func TestCart_FailedSignInKeepsLocalItems(t *testing.T) {
	api := cartclient.NewAPI(startShop(t))
	ctx := context.Background()
	store := &cartclient.MemStore{}
	c, err := cartclient.Open(store, api)
	if err != nil {
		t.Fatal(err)
	}
	must(t, c.Add(ctx, cartclient.Item{ProductID: "p-aero14", Quantity: 2}))

	_, err = c.SignIn(ctx, "not-a-token")
	var apiErr *cartclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Fatalf("want 403, got %v", err)
	}
	if c.Mode() != cartclient.Local || c.Count() != 2 {
		t.Fatalf("local cart lost: %+v", store.State)
	}
	mergeID := store.State.MergeID
	if mergeID == "" {
		t.Fatal("merge id should survive a failed sign in")
	}

	token, err := api.Login(ctx, "bob@techshop.test", "Passw0rd!")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SignIn(ctx, token); err != nil {
		t.Fatal(err)
	}

	// A retry with the same merge id does not add the units again.
	res, err := api.Merge(ctx, token, mergeID, []domain.MergeLine{{ProductID: "p-aero14", Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Replayed || res.Cart.ItemCount != 2 {
		t.Fatalf("replay applied lines: %+v", res)
	}
}

func TestCart_LocalChangeResetsMergeID(t *testing.T) {
	store := &cartclient.MemStore{State: cartclient.State{
		MergeID: "m-old",
		Items:   []cartclient.Item{{ID: "p-dock", ProductID: "p-dock", Quantity: 1}},
	}}
	c, err := cartclient.Open(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	must(t, c.Update(context.Background(), "p-dock", 2))
	if store.State.MergeID != "" {
		t.Fatalf("merge id kept after local change: %q", store.State.MergeID)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestCart_RemoteEditsDoNotTrustStaleMirror(t *testing.T) {
	api := cartclient.NewAPI(startShop(t))
	ctx := context.Background()
	token, err := api.Login(ctx, "alice@techshop.test", "Passw0rd!")
	if err != nil {
		t.Fatal(err)
	}

	phone, err := cartclient.Open(&cartclient.MemStore{State: cartclient.State{Token: token}}, api)
	if err != nil {
		t.Fatal(err)
	}
	laptop, err := cartclient.Open(&cartclient.MemStore{State: cartclient.State{Token: token}}, api)
	if err != nil {
		t.Fatal(err)
	}

	must(t, phone.Add(ctx, cartclient.Item{ProductID: "p-mouse", Quantity: 1}))
	id := phone.Items()[0].ID

	// laptop never saw the line but the server has it.
	must(t, laptop.Update(ctx, id, 4))
	if laptop.Count() != 4 {
		t.Fatalf("mirror not reconciled: %+v", laptop.Items())
	}
	must(t, phone.Remove(ctx, id))

	var apiErr *cartclient.APIError
	if err := laptop.Remove(ctx, id); !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("want 404 from server, got %v", err)
	}
	if err := laptop.Update(ctx, "p-nope", 1); !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("want 404 from server, got %v", err)
	}
}
