package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/cgmart/cgmart/database"
	"github.com/jmoiron/sqlx"
)

// ProductRow is one row of a bulk catalog import.
type ProductRow struct {
	ID            int64   `json:"id" validate:"required,gt=0"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Price         int     `json:"price" validate:"gte=0"`
	CoverImage    string  `json:"coverImage"`
	PreviewIframe string  `json:"previewIframe"`
	FileSize      float64 `json:"fileSize" validate:"gte=0"`
	DownloadURL   string  `json:"downloadUrl" validate:"required"`
}

// Loader upserts catalog rows in one transaction. Running the same batch
// twice converges on the same catalog state, so imports can be retried
// blindly.
type Loader struct {
	db *sqlx.DB
}

func NewLoader(db *sqlx.DB) *Loader {
	return &Loader{db: db}
}

func (l *Loader) Load(ctx context.Context, rows []ProductRow) (int, error) {
	const q = `
	INSERT INTO products
		(product_id, name, description, price, cover_image, preview_iframe,
		 file_size, download_url, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	ON CONFLICT (product_id) DO UPDATE SET
		name           = EXCLUDED.name,
		description    = EXCLUDED.description,
		price          = EXCLUDED.price,
		cover_image    = EXCLUDED.cover_image,
		preview_iframe = EXCLUDED.preview_iframe,
		file_size      = EXCLUDED.file_size,
		download_url   = EXCLUDED.download_url,
		updated_at     = EXCLUDED.updated_at`

	err := database.Transaction(l.db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()
		for _, row := range rows {
			_, err := tx.ExecContext(ctx, q,
				row.ID, row.Name, row.Description, row.Price, row.CoverImage,
				row.PreviewIframe, row.FileSize, row.DownloadURL, now)
			if err != nil {
				return fmt.Errorf("upserting product[%d]: %w", row.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("loading %d catalog rows: %w", len(rows), err)
	}

	return len(rows), nil
}
