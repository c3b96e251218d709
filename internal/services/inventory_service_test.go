package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"techshop/internal/repos"
	"techshop/internal/services"
)

func seeded(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInventoryService_Check(t *testing.T) {
	svc := services.NewInventoryService(seeded(t))
	ctx := context.Background()

	cases := []struct {
		name      string
		product   string
		variant   string
		qty       int
		available bool
		current   int
		msg       string
	}{
		{"in stock", "p-aero14", "", 5, true, 5, "inventory available"},
		{"short", "p-aero14", "", 6, false, 5, `only 5 units left of "Aero 14 Ultrabook"`},
		{"variant in stock", "p-titan16", "v-titan16-32", 3, true, 3, "inventory available"},
		{"variant short", "p-titan16", "v-titan16-64", 3, false, 2, `only 2 units left of variant "RAM: 64GB"`},
		{"variant of other product", "p-aero14", "v-titan16-64", 1, false, 0, "variant not found"},
		{"unknown product", "p-ghost", "", 1, false, 0, "product not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := svc.Check(ctx, tc.product, tc.qty, tc.variant)
			if res.Err != nil {
				t.Fatalf("unexpected internal error %v", res.Err)
			}
			if res.Available != tc.available || res.CurrentInventory != tc.current || res.RequestedQuantity != tc.qty {
				t.Fatalf("got %+v", res)
			}
			if res.Message != tc.msg {
				t.Fatalf("message: want %q, got %q", tc.msg, res.Message)
			}
		})
	}
}

func TestInventoryService_CheckReportsStorageFailure(t *testing.T) {
	db := seeded(t)
	svc := services.NewInventoryService(db)
	_ = db.Close()

	res := svc.Check(context.Background(), "p-aero14", 1, "")
	if res.Available || res.Err == nil {
		t.Fatalf("expected internal error carried in result, got %+v", res)
	}
}

func TestInventoryService_ReserveRelease(t *testing.T) {
	svc := services.NewInventoryService(seeded(t))
	ctx := context.Background()

	if res := svc.Reserve(ctx, "p-titan16", 2, "v-titan16-32"); !res.Success {
		t.Fatalf("reserve failed: %+v", res)
	}
	snap, err := svc.ProductSnapshot(ctx, "p-titan16")
	if err != nil {
		t.Fatal(err)
	}
	if snap.MainInventory != 6 || snap.TotalInventory != 9 {
		t.Fatalf("want main 6 total 9, got %+v", snap)
	}

	// Product aggregate is short even though the variant is not.
	if res := svc.Reserve(ctx, "p-aero14", 6, ""); res.Success || res.Message != "insufficient inventory" {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if res := svc.Reserve(ctx, "p-aero14", 1, "v-titan16-32"); res.Success {
		t.Fatalf("variant of another product must not be reserved: %+v", res)
	}
	if res := svc.Release(ctx, "p-titan16", 2, "v-titan16-32"); !res.Success {
		t.Fatalf("release failed: %+v", res)
	}
	snap, err = svc.ProductSnapshot(ctx, "p-titan16")
	if err != nil || snap.TotalInventory != 13 {
		t.Fatalf("want total 13, got %d (%v)", snap.TotalInventory, err)
	}
	if _, err := svc.ProductSnapshot(ctx, "p-ghost"); !errors.Is(err, services.ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound, got %v", err)
	}
}

func TestInventoryService_ReserveNeverOversells(t *testing.T) {
	svc := services.NewInventoryService(seeded(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := svc.Reserve(ctx, "p-aero14", 1, ""); res.Success {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 5 {
		t.Fatalf("expected exactly 5 reservations, got %d", ok)
	}
	snap, err := svc.ProductSnapshot(ctx, "p-aero14")
	if err != nil {
		t.Fatal(err)
	}
	if snap.MainInventory != 0 || !snap.OutOfStock {
		t.Fatalf("expected empty stock, got %+v", snap)
	}
}

func TestInventoryService_Snapshots(t *testing.T) {
	svc := services.NewInventoryService(seeded(t))
	ctx := context.Background()

	if _, err := svc.ProductSnapshot(ctx, "p-ghost"); !errors.Is(err, services.ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound, got %v", err)
	}
	if _, err := svc.VariantSnapshot(ctx, "v-ghost"); !errors.Is(err, services.ErrVariantNotFound) {
		t.Fatalf("want ErrVariantNotFound, got %v", err)
	}
	vs, err := svc.VariantSnapshot(ctx, "v-titan16-32")
	if err != nil {
		t.Fatal(err)
	}
	if vs.Inventory != 3 || !vs.LowStock || vs.ProductID != "p-titan16" {
		t.Fatalf("unexpected variant snapshot %+v", vs)
	}
}
