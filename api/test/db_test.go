package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/favorite"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/core/payment"
	"github.com/cgmart/cgmart/core/user"
	"github.com/cgmart/cgmart/database"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

// startPostgres spins up a throwaway postgres container and returns a
// migrated connection. Without a reachable docker daemon the test is skipped,
// the memory-backed flow tests above still cover the pipeline.
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("skipping, docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("skipping, docker not available: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=cgmart",
			"POSTGRES_PASSWORD=cgmart",
			"POSTGRES_DB=cgmart_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(res); err != nil {
			t.Logf("purging postgres container: %v", err)
		}
	})
	_ = res.Expire(300)

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var oerr error
		db, oerr = database.Open(database.Config{
			User:       "cgmart",
			Password:   "cgmart",
			Host:       res.GetHostPort("5432/tcp"),
			Name:       "cgmart_test",
			DisableTLS: true,
		})
		if oerr != nil {
			return oerr
		}
		return db.Ping()
	})
	if err != nil {
		t.Fatalf("connecting to postgres container: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.StatusCheck(ctx, db); err != nil {
		t.Fatalf("waiting for postgres: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}

	return db
}

func TestSQLStores(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	users := user.NewSQLStore(db)
	orders := order.NewSQLStore(db)
	grants := download.NewSQLStore(db)
	cat := catalog.NewSQLCatalog(db)
	loader := catalog.NewLoader(db)

	// Seed the catalog through the bulk loader; a second load with a changed
	// price must upsert, not duplicate.
	rows := []catalog.ProductRow{
		{ID: 101, Name: "warrior rig", Description: "rigged character", Price: 4999, DownloadURL: "/files/warrior.zip"},
		{ID: 102, Name: "run cycle pack", Description: "mocap clips", Price: 2500, DownloadURL: "/files/run.fbx"},
	}
	n, err := loader.Load(ctx, rows)
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded rows: got %d, want 2", n)
	}

	rows[0].Price = 5999
	if _, err := loader.Load(ctx, rows); err != nil {
		t.Fatalf("reloading catalog: %v", err)
	}
	if _, total, err := cat.List(ctx, 0, 10); err != nil || total != 2 {
		t.Fatalf("catalog after reload: total %d err %v, want 2 rows", total, err)
	}
	reloaded, err := cat.Fetch(ctx, 101)
	if err != nil {
		t.Fatalf("fetching reloaded product: %v", err)
	}
	if reloaded.Price != 5999 {
		t.Fatalf("upserted price: got %d, want 5999", reloaded.Price)
	}

	usr, err := users.Create(ctx, user.User{
		Email:        uniqueEmail("sql"),
		Username:     "sql-buyer",
		PasswordHash: []byte("x"),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}

	// Duplicate email maps onto the domain error, not a raw pq error.
	if _, err := users.Create(ctx, user.User{Email: usr.Email, Username: "copycat"}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	// The favorites unique pair rides the table constraint.
	favs := favorite.NewSQLStore(db)
	if _, err := favs.Add(ctx, favorite.Favorite{UserID: usr.ID, ProductID: 101, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("favoriting product: %v", err)
	}
	if _, err := favs.Add(ctx, favorite.Favorite{UserID: usr.ID, ProductID: 101, CreatedAt: time.Now().UTC()}); !errors.Is(err, favorite.ErrExists) {
		t.Fatalf("duplicate favorite: got %v, want ErrExists", err)
	}
	if err := favs.Remove(ctx, usr.ID, 101); err != nil {
		t.Fatalf("unfavoriting product: %v", err)
	}
	if err := favs.Remove(ctx, usr.ID, 101); !errors.Is(err, favorite.ErrNotFound) {
		t.Fatalf("repeated unfavorite: got %v, want ErrNotFound", err)
	}

	svc := order.NewService(orders, cat)
	ord, items, err := svc.Create(ctx, usr.ID, order.OrderNew{
		Items: []order.ItemNew{{ProductID: 101}, {ProductID: 102}},
	})
	if err != nil {
		t.Fatalf("creating order: %v", err)
	}
	if ord.TotalAmount != 5999+2500 || len(items) != 2 {
		t.Fatalf("order: total %d, %d items", ord.TotalAmount, len(items))
	}

	// Concurrent confirmations against the real database: the row-level CAS
	// must let exactly one issuance pass through.
	proc := payment.NewProcessor(orders, download.NewIssuer(grants, 7*24*time.Hour))

	const n2 = 8
	var wg sync.WaitGroup
	results := make([]error, n2)
	wg.Add(n2)
	for i := 0; i < n2; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = proc.HandleCallback(ctx, payment.Callback{
				OrderID:       ord.ID,
				Status:        payment.OutcomeSuccess,
				TransactionID: fmt.Sprintf("txn-race-%d", i),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range results {
		if err != nil {
			t.Fatalf("callback %d: %v", i, err)
		}
	}

	final, err := orders.Fetch(ctx, ord.ID)
	if err != nil {
		t.Fatalf("fetching confirmed order: %v", err)
	}
	if final.Status != order.Paid {
		t.Fatalf("final status: got %q, want %q", final.Status, order.Paid)
	}

	gate := download.NewGate(grants, cat)
	access, err := gate.Resolve(ctx, usr.ID, 101)
	if err != nil {
		t.Fatalf("resolving access: %v", err)
	}
	if len(access.Token) != 64 {
		t.Fatalf("token length: got %d", len(access.Token))
	}

	// Exactly one grant per item even under the callback race.
	var grantCount int
	if err := db.GetContext(ctx, &grantCount,
		"SELECT COUNT(*) FROM downloads WHERE user_id = $1", usr.ID); err != nil {
		t.Fatalf("counting grants: %v", err)
	}
	if grantCount != 2 {
		t.Fatalf("grants in db: got %d, want 2", grantCount)
	}

	// Concurrent redemptions ride the atomic row increment, no lost updates.
	const redeems = 20
	wg.Add(redeems)
	for i := 0; i < redeems; i++ {
		go func() {
			defer wg.Done()
			if _, err := gate.Redeem(ctx, access.Token); err != nil {
				t.Errorf("redeeming: %v", err)
			}
		}()
	}
	wg.Wait()

	grant, err := grants.FetchByToken(ctx, access.Token)
	if err != nil {
		t.Fatalf("fetching grant: %v", err)
	}
	if grant.DownloadCount != redeems {
		t.Fatalf("counter: got %d, want %d", grant.DownloadCount, redeems)
	}
}
