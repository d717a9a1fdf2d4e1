// Package favorite is the storefront wishlist: per-user product bookmarks,
// independent of purchases and grants.
package favorite

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("favorite not found")
	ErrExists   = errors.New("product already favorited")
)

// Favorite marks one product as favorited by one user. The (user, product)
// pair is unique, favoriting twice is rejected rather than duplicated.
type Favorite struct {
	ID        int64     `json:"id" db:"favorite_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type FavoriteNew struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}
