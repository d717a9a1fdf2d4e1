// Package catalog is the product lookup collaborator the purchase pipeline
// resolves prices and download targets from. The pipeline only ever reads it;
// writes happen through the bulk Loader.
package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID            int64     `json:"id" db:"product_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	Price         int       `json:"price" db:"price"`
	CoverImage    string    `json:"coverImage" db:"cover_image"`
	PreviewIframe string    `json:"previewIframe" db:"preview_iframe"`
	FileSize      float64   `json:"fileSize" db:"file_size"`
	DownloadURL   string    `json:"-" db:"download_url"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Catalog resolves a product by id. Prices returned here are authoritative;
// client-submitted prices are never trusted.
type Catalog interface {
	Fetch(ctx context.Context, productID int64) (Product, error)
}

// Browser additionally supports paginated listing for the storefront.
type Browser interface {
	Catalog
	List(ctx context.Context, offset, limit int) ([]Product, int, error)
}
