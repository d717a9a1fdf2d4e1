package download

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cgmart/cgmart/core/catalog"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory()
	cat.Add(catalog.Product{ID: 7, Name: "warrior rig", Price: 4999, DownloadURL: "/downloads/warrior.zip"})
	return cat
}

func issueAt(t *testing.T, store Store, at time.Time, userID, productID int64) Grant {
	t.Helper()

	iss := NewIssuer(store, 0)
	iss.now = func() time.Time { return at }

	grants, err := iss.IssueForProducts(context.Background(), userID, []int64{productID})
	if err != nil {
		t.Fatalf("issuing grant: %v", err)
	}
	return grants[0]
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("generating token: %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("token length: got %d, want 64", len(tok))
		}
		if seen[tok] {
			t.Fatalf("token %q repeated", tok)
		}
		seen[tok] = true
	}
}

func TestRedeemCountsAndReturnsTarget(t *testing.T) {
	store := NewMemory()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := issueAt(t, store, now, 42, 7)

	gate := NewGate(store, testCatalog())
	gate.now = func() time.Time { return now.Add(time.Hour) }

	url, err := gate.Redeem(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("redeeming: %v", err)
	}
	if url != "/downloads/warrior.zip" {
		t.Fatalf("redemption target: got %q", url)
	}

	stored, err := store.FetchByToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("fetching grant back: %v", err)
	}
	if stored.DownloadCount != 1 {
		t.Fatalf("counter after one redeem: got %d, want 1", stored.DownloadCount)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	gate := NewGate(NewMemory(), testCatalog())

	if _, err := gate.Redeem(context.Background(), "deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token: got %v, want ErrNotFound", err)
	}
}

func TestRedeemExpiredGrant(t *testing.T) {
	store := NewMemory()
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := issueAt(t, store, issued, 42, 7)

	gate := NewGate(store, testCatalog())

	// Exactly at the deadline counts as expired.
	gate.now = func() time.Time { return grant.ExpiresAt }
	if _, err := gate.Redeem(context.Background(), grant.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("at deadline: got %v, want ErrExpired", err)
	}

	gate.now = func() time.Time { return grant.ExpiresAt.Add(48 * time.Hour) }
	if _, err := gate.Redeem(context.Background(), grant.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("past deadline: got %v, want ErrExpired", err)
	}

	// Expiry holds no matter how many redemptions happened before it.
	stored, err := store.FetchByToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("fetching grant back: %v", err)
	}
	if stored.DownloadCount != 0 {
		t.Fatalf("failed redeems must not count, got %d", stored.DownloadCount)
	}
}

func TestRedeemUnresolvableProductLeavesCounter(t *testing.T) {
	store := NewMemory()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := issueAt(t, store, now, 42, 7)

	// Empty catalog: the grant's product cannot be resolved.
	gate := NewGate(store, catalog.NewMemory())
	gate.now = func() time.Time { return now.Add(time.Hour) }

	if _, err := gate.Redeem(context.Background(), grant.Token); err == nil {
		t.Fatal("redeem should fail when the product cannot be resolved")
	}

	stored, err := store.FetchByToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("fetching grant back: %v", err)
	}
	if stored.DownloadCount != 0 {
		t.Fatalf("a failed redemption must not count, got %d", stored.DownloadCount)
	}
}

func TestRedeemConcurrentCountsExactly(t *testing.T) {
	store := NewMemory()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := issueAt(t, store, now, 42, 7)

	gate := NewGate(store, testCatalog())
	gate.now = func() time.Time { return now.Add(time.Minute) }

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := gate.Redeem(context.Background(), grant.Token); err != nil {
				t.Errorf("concurrent redeem: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := store.FetchByToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("fetching grant back: %v", err)
	}
	if stored.DownloadCount != n {
		t.Fatalf("counter after %d concurrent redeems: got %d (lost updates)", n, stored.DownloadCount)
	}
}

func TestResolvePicksNewestLiveGrant(t *testing.T) {
	store := NewMemory()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	old := issueAt(t, store, base, 42, 7)
	fresh := issueAt(t, store, base.Add(2*time.Hour), 42, 7)

	gate := NewGate(store, testCatalog())
	gate.now = func() time.Time { return base.Add(3 * time.Hour) }

	access, err := gate.Resolve(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("resolving access: %v", err)
	}
	if access.Token != fresh.Token {
		t.Fatalf("resolved the wrong grant: got token of grant[%d]", old.ID)
	}
	if access.DownloadURL != "/downloads/warrior.zip" {
		t.Fatalf("download url: got %q", access.DownloadURL)
	}

	// Both grants from the repeat purchase stay valid independently.
	if _, err := gate.Redeem(context.Background(), old.Token); err != nil {
		t.Fatalf("older grant should still redeem: %v", err)
	}
}

func TestResolveNoAccess(t *testing.T) {
	store := NewMemory()
	gate := NewGate(store, testCatalog())

	if _, err := gate.Resolve(context.Background(), 42, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no grant: got %v, want ErrNotFound", err)
	}

	// An expired grant is as good as none.
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := issueAt(t, store, issued, 42, 7)
	gate.now = func() time.Time { return grant.ExpiresAt.Add(time.Second) }

	if _, err := gate.Resolve(context.Background(), 42, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired grant: got %v, want ErrNotFound", err)
	}

	// Resolve never consumes a redemption.
	stored, err := store.FetchByToken(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("fetching grant back: %v", err)
	}
	if stored.DownloadCount != 0 {
		t.Fatalf("resolve mutated the counter: %d", stored.DownloadCount)
	}
}
