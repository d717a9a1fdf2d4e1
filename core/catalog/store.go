package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLCatalog reads products from Postgres.
type SQLCatalog struct {
	db *sqlx.DB
}

func NewSQLCatalog(db *sqlx.DB) *SQLCatalog {
	return &SQLCatalog{db: db}
}

func (c *SQLCatalog) Fetch(ctx context.Context, productID int64) (Product, error) {
	const q = `
	SELECT product_id, name, description, price, cover_image, preview_iframe,
	       file_size, download_url, created_at, updated_at
	FROM products
	WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, c.db, &p, q, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("selecting product[%d]: %w", productID, err)
	}

	return p, nil
}

func (c *SQLCatalog) List(ctx context.Context, offset, limit int) ([]Product, int, error) {
	const q = `
	SELECT product_id, name, description, price, cover_image, preview_iframe,
	       file_size, download_url, created_at, updated_at
	FROM products
	ORDER BY created_at DESC, product_id DESC
	OFFSET $1 LIMIT $2`

	products := []Product{}
	if err := sqlx.SelectContext(ctx, c.db, &products, q, offset, limit); err != nil {
		return nil, 0, fmt.Errorf("selecting products: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, c.db, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	return products, total, nil
}
