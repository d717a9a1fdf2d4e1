package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store interface {
	// Add persists the bookmark; a second add of the same pair fails with
	// ErrExists.
	Add(ctx context.Context, fav Favorite) (Favorite, error)

	// Remove deletes the bookmark, ErrNotFound when the pair was never
	// favorited.
	Remove(ctx context.Context, userID, productID int64) error

	// FetchByUser returns the user's favorites newest first.
	FetchByUser(ctx context.Context, userID int64) ([]Favorite, error)
}

const uniqueViolation = "23505"

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Add(ctx context.Context, fav Favorite) (Favorite, error) {
	const q = `
	INSERT INTO favorites (user_id, product_id, created_at)
	VALUES ($1, $2, $3)
	RETURNING favorite_id`

	err := sqlx.GetContext(ctx, s.db, &fav.ID, q, fav.UserID, fav.ProductID, fav.CreatedAt)
	if err != nil {
		var pqerr *pq.Error
		if errors.As(err, &pqerr) && pqerr.Code == uniqueViolation {
			return Favorite{}, ErrExists
		}
		return Favorite{}, fmt.Errorf("inserting favorite for product[%d]: %w", fav.ProductID, err)
	}

	return fav, nil
}

func (s *SQLStore) Remove(ctx context.Context, userID, productID int64) error {
	const q = `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`

	res, err := s.db.ExecContext(ctx, q, userID, productID)
	if err != nil {
		return fmt.Errorf("deleting favorite for product[%d]: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStore) FetchByUser(ctx context.Context, userID int64) ([]Favorite, error) {
	const q = `
	SELECT favorite_id, user_id, product_id, created_at
	FROM favorites
	WHERE user_id = $1
	ORDER BY created_at DESC, favorite_id DESC`

	favs := []Favorite{}
	if err := sqlx.SelectContext(ctx, s.db, &favs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting favorites of user[%d]: %w", userID, err)
	}

	return favs, nil
}
