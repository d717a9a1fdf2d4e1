package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/claims"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service owns order creation and reads. Status transitions belong to the
// payment processor, nothing here ever moves an order out of pending.
type Service struct {
	store   Store
	catalog catalog.Catalog
	now     func() time.Time
}

func NewService(store Store, cat catalog.Catalog) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		now:     time.Now,
	}
}

// Create resolves every product against the catalog, snapshots the current
// prices, and persists the order with all its items atomically.
func (s *Service) Create(ctx context.Context, userID int64, no OrderNew) (Order, []Item, error) {
	if len(no.Items) == 0 {
		return Order{}, nil, ErrNoItems
	}

	now := s.now().UTC()

	var total int
	items := make([]Item, 0, len(no.Items))
	for _, in := range no.Items {
		p, err := s.catalog.Fetch(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Order{}, nil, fmt.Errorf("product[%d]: %w", in.ProductID, catalog.ErrNotFound)
			}
			return Order{}, nil, fmt.Errorf("resolving product[%d]: %w", in.ProductID, err)
		}

		items = append(items, Item{
			ProductID: p.ID,
			Price:     p.Price,
			CreatedAt: now,
		})
		total += p.Price
	}

	ord := Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      Pending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ord, created, err := s.store.Create(ctx, ord, items)
	if err != nil {
		return Order{}, nil, fmt.Errorf("creating order for user[%d]: %w", userID, err)
	}

	return ord, created, nil
}

// Get returns the order with its items, but only to its owner or an admin.
func (s *Service) Get(ctx context.Context, clm claims.Claims, orderID int64) (Order, []Item, error) {
	ord, err := s.store.Fetch(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}

	if ord.UserID != clm.UserID && !clm.Admin {
		return Order{}, nil, ErrForbidden
	}

	items, err := s.store.FetchItems(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}

	return ord, items, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.store.FetchByUser(ctx, userID)
}

// ListAll pages through every order for admin review. Out-of-range paging
// parameters clamp instead of erroring.
func (s *Service) ListAll(ctx context.Context, page, limit int, status Status) ([]Order, Pagination, error) {
	if status != "" && status != Pending && status != Paid && status != Cancelled {
		return nil, Pagination{}, ErrBadStatus
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	orders, total, err := s.store.FetchPage(ctx, status, (page-1)*limit, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	pg := Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}

	return orders, pg, nil
}
