package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cgmart/cgmart/database"
	"github.com/jmoiron/sqlx"
)

// Store is the order persistence boundary. Two adapters exist: Postgres for
// production and an in-memory map for tests and local runs.
type Store interface {
	// Create persists the order and every item as one atomic unit. A reader
	// never observes the order with a partial item set.
	Create(ctx context.Context, ord Order, items []Item) (Order, []Item, error)

	Fetch(ctx context.Context, orderID int64) (Order, error)

	FetchItems(ctx context.Context, orderID int64) ([]Item, error)

	// FetchByUser returns the user's orders newest first.
	FetchByUser(ctx context.Context, userID int64) ([]Order, error)

	// FetchPage returns one page of all orders newest first, optionally
	// filtered by status, plus the total row count for that filter.
	FetchPage(ctx context.Context, status Status, offset, limit int) ([]Order, int, error)

	// UpdateStatus applies the terminal transition only when the order is
	// still pending (compare-and-set). When the order already left pending,
	// it reports applied=false and returns the current row, so a losing
	// caller can treat the callback as a no-op.
	UpdateStatus(ctx context.Context, up StatusUp) (Order, bool, error)
}

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const orderColumns = `order_id, user_id, total_amount, status, transaction_id, payment_method, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, ord Order, items []Item) (Order, []Item, error) {
	const qo = `
	INSERT INTO orders (user_id, total_amount, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING order_id`

	const qi = `
	INSERT INTO order_items (order_id, product_id, price, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING order_item_id`

	created := make([]Item, len(items))
	err := database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		err := sqlx.GetContext(ctx, tx, &ord.ID, qo,
			ord.UserID, ord.TotalAmount, ord.Status, ord.CreatedAt, ord.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		for i, it := range items {
			it.OrderID = ord.ID
			if err := sqlx.GetContext(ctx, tx, &it.ID, qi, it.OrderID, it.ProductID, it.Price, it.CreatedAt); err != nil {
				return fmt.Errorf("inserting item for product[%d]: %w", it.ProductID, err)
			}
			created[i] = it
		}

		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}

	return ord, created, nil
}

func (s *SQLStore) Fetch(ctx context.Context, orderID int64) (Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, s.db, &ord, q, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%d]: %w", orderID, err)
	}

	return ord, nil
}

func (s *SQLStore) FetchItems(ctx context.Context, orderID int64) ([]Item, error) {
	const q = `
	SELECT order_item_id, order_id, product_id, price, created_at
	FROM order_items
	WHERE order_id = $1
	ORDER BY order_item_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, s.db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%d]: %w", orderID, err)
	}

	return items, nil
}

func (s *SQLStore) FetchByUser(ctx context.Context, userID int64) ([]Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, order_id DESC`

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, s.db, &orders, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%d]: %w", userID, err)
	}

	return orders, nil
}

func (s *SQLStore) FetchPage(ctx context.Context, status Status, offset, limit int) ([]Order, int, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	qc := `SELECT COUNT(*) FROM orders`

	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = $1`
		qc += ` WHERE status = $1`
		args = append(args, status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, order_id DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, s.db, &orders, q, append(args, offset, limit)...); err != nil {
		return nil, 0, fmt.Errorf("selecting orders page: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, s.db, &total, qc, args...); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	return orders, total, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, up StatusUp) (Order, bool, error) {
	// The WHERE status = 'pending' guard is the compare-and-set: of two
	// concurrent callbacks exactly one matches the row.
	q := `
	UPDATE orders
	SET status = $2, transaction_id = $3, payment_method = $4, updated_at = $5
	WHERE order_id = $1 AND status = '` + string(Pending) + `'
	RETURNING ` + orderColumns

	var ord Order
	err := sqlx.GetContext(ctx, s.db, &ord, q,
		up.ID, up.Status, up.TransactionID, up.PaymentMethod, up.UpdatedAt)
	if err == nil {
		return ord, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Order{}, false, fmt.Errorf("updating status of order[%d]: %w", up.ID, err)
	}

	// Lost the race or the order never existed.
	cur, err := s.Fetch(ctx, up.ID)
	if err != nil {
		return Order{}, false, err
	}
	return cur, false, nil
}
