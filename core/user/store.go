package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store interface {
	Create(ctx context.Context, usr User) (User, error)
	Fetch(ctx context.Context, userID int64) (User, error)
	FetchByEmail(ctx context.Context, email string) (User, error)
}

const uniqueViolation = "23505"

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, usr User) (User, error) {
	const q = `
	INSERT INTO users (email, username, password_hash, is_admin, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING user_id`

	err := sqlx.GetContext(ctx, s.db, &usr.ID, q,
		usr.Email, usr.Username, usr.PasswordHash, usr.Admin, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		var pqerr *pq.Error
		if errors.As(err, &pqerr) && pqerr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}

	return usr, nil
}

func (s *SQLStore) Fetch(ctx context.Context, userID int64) (User, error) {
	const q = `
	SELECT user_id, email, username, password_hash, is_admin, created_at, updated_at
	FROM users
	WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, s.db, &usr, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%d]: %w", userID, err)
	}

	return usr, nil
}

func (s *SQLStore) FetchByEmail(ctx context.Context, email string) (User, error) {
	const q = `
	SELECT user_id, email, username, password_hash, is_admin, created_at, updated_at
	FROM users
	WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, s.db, &usr, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return usr, nil
}
