package favorite

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddRemoveRoundtrip(t *testing.T) {
	store := NewMemory()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, productID := range []int64{7, 9, 11} {
		_, err := store.Add(context.Background(), Favorite{
			UserID:    42,
			ProductID: productID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("favoriting product[%d]: %v", productID, err)
		}
	}

	// Second add of the same pair is rejected, not duplicated.
	if _, err := store.Add(context.Background(), Favorite{UserID: 42, ProductID: 7, CreatedAt: base}); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate favorite: got %v, want ErrExists", err)
	}

	favs, err := store.FetchByUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("listing favorites: %v", err)
	}
	if len(favs) != 3 {
		t.Fatalf("favorite count: got %d, want 3", len(favs))
	}
	for i := 1; i < len(favs); i++ {
		if favs[i].CreatedAt.After(favs[i-1].CreatedAt) {
			t.Fatalf("favorites out of order at %d", i)
		}
	}

	// Another user favoriting the same product is an independent bookmark.
	if _, err := store.Add(context.Background(), Favorite{UserID: 43, ProductID: 7, CreatedAt: base}); err != nil {
		t.Fatalf("second user favoriting: %v", err)
	}

	if err := store.Remove(context.Background(), 42, 7); err != nil {
		t.Fatalf("unfavoriting: %v", err)
	}
	if err := store.Remove(context.Background(), 42, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeated unfavorite: got %v, want ErrNotFound", err)
	}

	favs, err = store.FetchByUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("listing after removal: %v", err)
	}
	if len(favs) != 2 {
		t.Fatalf("favorites after removal: got %d, want 2", len(favs))
	}

	other, err := store.FetchByUser(context.Background(), 43)
	if err != nil {
		t.Fatalf("listing other user: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("other user's bookmark should survive, got %d", len(other))
	}
}
