package download

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store persists grants. The token column is unique and is the redemption
// lookup key.
type Store interface {
	Create(ctx context.Context, g Grant) (Grant, error)

	FetchByToken(ctx context.Context, token string) (Grant, error)

	// FetchActiveByOwner returns the newest grant for the pair that is still
	// alive at the given instant.
	FetchActiveByOwner(ctx context.Context, userID, productID int64, now time.Time) (Grant, error)

	// IncrementCount bumps the redemption counter as one atomic
	// read-modify-write. A read-then-write-back here loses updates under
	// concurrent redemption and is exactly the bug this interface forbids.
	IncrementCount(ctx context.Context, token string) (Grant, error)
}

const grantColumns = `download_id, user_id, product_id, token, expires_at, download_count, created_at`

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, g Grant) (Grant, error) {
	const q = `
	INSERT INTO downloads (user_id, product_id, token, expires_at, download_count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING download_id`

	err := sqlx.GetContext(ctx, s.db, &g.ID, q,
		g.UserID, g.ProductID, g.Token, g.ExpiresAt, g.DownloadCount, g.CreatedAt)
	if err != nil {
		return Grant{}, fmt.Errorf("inserting grant for product[%d]: %w", g.ProductID, err)
	}

	return g, nil
}

func (s *SQLStore) FetchByToken(ctx context.Context, token string) (Grant, error) {
	q := `SELECT ` + grantColumns + ` FROM downloads WHERE token = $1`

	var g Grant
	if err := sqlx.GetContext(ctx, s.db, &g, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("selecting grant by token: %w", err)
	}

	return g, nil
}

func (s *SQLStore) FetchActiveByOwner(ctx context.Context, userID, productID int64, now time.Time) (Grant, error) {
	q := `
	SELECT ` + grantColumns + `
	FROM downloads
	WHERE user_id = $1 AND product_id = $2 AND expires_at > $3
	ORDER BY created_at DESC, download_id DESC
	LIMIT 1`

	var g Grant
	if err := sqlx.GetContext(ctx, s.db, &g, q, userID, productID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("selecting active grant for user[%d] product[%d]: %w", userID, productID, err)
	}

	return g, nil
}

func (s *SQLStore) IncrementCount(ctx context.Context, token string) (Grant, error) {
	// Single row-level increment, linearizable under concurrent redeems.
	q := `
	UPDATE downloads
	SET download_count = download_count + 1
	WHERE token = $1
	RETURNING ` + grantColumns

	var g Grant
	if err := sqlx.GetContext(ctx, s.db, &g, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("incrementing redemption counter: %w", err)
	}

	return g, nil
}
