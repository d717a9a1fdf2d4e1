package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/claims"
	"github.com/google/go-cmp/cmp"
)

func seedCatalog(t *testing.T, products ...catalog.Product) *catalog.Memory {
	t.Helper()
	cat := catalog.NewMemory()
	for _, p := range products {
		cat.Add(p)
	}
	return cat
}

func TestCreateSnapshotsCatalogPrices(t *testing.T) {
	cat := seedCatalog(t,
		catalog.Product{ID: 7, Name: "warrior rig", Price: 4999, DownloadURL: "/downloads/warrior.zip"},
		catalog.Product{ID: 9, Name: "run cycle", Price: 2500, DownloadURL: "/downloads/run.fbx"},
	)
	svc := NewService(NewMemory(), cat)

	ord, items, err := svc.Create(context.Background(), 1, OrderNew{
		Items: []ItemNew{{ProductID: 7}, {ProductID: 9}},
	})
	if err != nil {
		t.Fatalf("creating order: %v", err)
	}

	if ord.Status != Pending {
		t.Fatalf("new order status: got %q, want %q", ord.Status, Pending)
	}
	if ord.TotalAmount != 7499 {
		t.Fatalf("total amount: got %d, want %d", ord.TotalAmount, 7499)
	}
	if len(items) != 2 {
		t.Fatalf("item count: got %d, want 2", len(items))
	}

	var sum int
	for _, it := range items {
		sum += it.Price
	}
	if sum != ord.TotalAmount {
		t.Fatalf("sum of item prices %d != order total %d", sum, ord.TotalAmount)
	}

	// A later catalog price change must not touch the stored snapshot.
	cat.Add(catalog.Product{ID: 7, Name: "warrior rig", Price: 9999})

	clm := claims.Claims{UserID: 1}
	_, after, err := svc.Get(context.Background(), clm, ord.ID)
	if err != nil {
		t.Fatalf("fetching order back: %v", err)
	}
	if diff := cmp.Diff(items, after); diff != "" {
		t.Fatalf("items changed after catalog update (-want +got):\n%s", diff)
	}
}

func TestCreateRejectsEmptyAndUnknown(t *testing.T) {
	cat := seedCatalog(t, catalog.Product{ID: 7, Price: 4999})
	svc := NewService(NewMemory(), cat)

	if _, _, err := svc.Create(context.Background(), 1, OrderNew{}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("empty order: got %v, want ErrNoItems", err)
	}

	_, _, err := svc.Create(context.Background(), 1, OrderNew{Items: []ItemNew{{ProductID: 404}}})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("unknown product: got %v, want catalog.ErrNotFound", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	cat := seedCatalog(t, catalog.Product{ID: 7, Price: 4999})
	svc := NewService(NewMemory(), cat)

	ord, _, err := svc.Create(context.Background(), 1, OrderNew{Items: []ItemNew{{ProductID: 7}}})
	if err != nil {
		t.Fatalf("creating order: %v", err)
	}

	if _, _, err := svc.Get(context.Background(), claims.Claims{UserID: 1}, ord.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	if _, _, err := svc.Get(context.Background(), claims.Claims{UserID: 2}, ord.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger read: got %v, want ErrForbidden", err)
	}

	if _, _, err := svc.Get(context.Background(), claims.Claims{UserID: 2, Admin: true}, ord.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	if _, _, err := svc.Get(context.Background(), claims.Claims{UserID: 1}, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing order: got %v, want ErrNotFound", err)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	cat := seedCatalog(t, catalog.Product{ID: 7, Price: 100})
	store := NewMemory()
	svc := NewService(store, cat)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tick := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return tick }
		if _, _, err := svc.Create(context.Background(), 1, OrderNew{Items: []ItemNew{{ProductID: 7}}}); err != nil {
			t.Fatalf("creating order %d: %v", i, err)
		}
	}

	orders, err := svc.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("listing orders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("order count: got %d, want 3", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].CreatedAt.After(orders[i-1].CreatedAt) {
			t.Fatalf("orders out of order at %d: %v after %v", i, orders[i].CreatedAt, orders[i-1].CreatedAt)
		}
	}
}

func TestListAllClampsAndFilters(t *testing.T) {
	cat := seedCatalog(t, catalog.Product{ID: 7, Price: 100})
	store := NewMemory()
	svc := NewService(store, cat)

	for i := 0; i < 5; i++ {
		if _, _, err := svc.Create(context.Background(), int64(i+1), OrderNew{Items: []ItemNew{{ProductID: 7}}}); err != nil {
			t.Fatalf("creating order %d: %v", i, err)
		}
	}

	orders, pg, err := svc.ListAll(context.Background(), -3, 0, "")
	if err != nil {
		t.Fatalf("listing with out-of-range paging: %v", err)
	}
	if pg.Page != 1 || pg.Limit != defaultPageSize {
		t.Fatalf("clamped pagination: got page=%d limit=%d", pg.Page, pg.Limit)
	}
	if len(orders) != 5 || pg.Total != 5 {
		t.Fatalf("got %d orders, total %d, want 5/5", len(orders), pg.Total)
	}

	orders, pg, err = svc.ListAll(context.Background(), 2, 2, "")
	if err != nil {
		t.Fatalf("listing page 2: %v", err)
	}
	if len(orders) != 2 || pg.Pages != 3 {
		t.Fatalf("page 2: got %d orders, %d pages, want 2/3", len(orders), pg.Pages)
	}

	orders, pg, err = svc.ListAll(context.Background(), 1, 10, Paid)
	if err != nil {
		t.Fatalf("listing paid orders: %v", err)
	}
	if len(orders) != 0 || pg.Total != 0 {
		t.Fatalf("paid filter: got %d orders, total %d, want 0/0", len(orders), pg.Total)
	}

	if _, _, err := svc.ListAll(context.Background(), 1, 10, "shipped"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("bad status filter: got %v, want ErrBadStatus", err)
	}
}
