package order

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps orders in process. Same contract as the SQL adapter, with the
// store mutex standing in for transactions.
type Memory struct {
	mu         sync.RWMutex
	nextOrder  int64
	nextItem   int64
	orders     map[int64]Order
	itemsByOrd map[int64][]Item
}

func NewMemory() *Memory {
	return &Memory{
		nextOrder:  1,
		nextItem:   1,
		orders:     make(map[int64]Order),
		itemsByOrd: make(map[int64][]Item),
	}
}

func (m *Memory) Create(ctx context.Context, ord Order, items []Item) (Order, []Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ord.ID = m.nextOrder
	m.nextOrder++

	created := make([]Item, len(items))
	for i, it := range items {
		it.ID = m.nextItem
		m.nextItem++
		it.OrderID = ord.ID
		created[i] = it
	}

	m.orders[ord.ID] = ord
	m.itemsByOrd[ord.ID] = created

	out := make([]Item, len(created))
	copy(out, created)
	return ord, out, nil
}

func (m *Memory) Fetch(ctx context.Context, orderID int64) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ord, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

func (m *Memory) FetchItems(ctx context.Context, orderID int64) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.itemsByOrd[orderID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (m *Memory) FetchByUser(ctx context.Context, userID int64) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := []Order{}
	for _, ord := range m.orders {
		if ord.UserID == userID {
			orders = append(orders, ord)
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (m *Memory) FetchPage(ctx context.Context, status Status, offset, limit int) ([]Order, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := []Order{}
	for _, ord := range m.orders {
		if status == "" || ord.Status == status {
			all = append(all, ord)
		}
	}
	sortNewestFirst(all)

	if offset >= len(all) {
		return []Order{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]Order, end-offset)
	copy(page, all[offset:end])
	return page, len(all), nil
}

func (m *Memory) UpdateStatus(ctx context.Context, up StatusUp) (Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ord, ok := m.orders[up.ID]
	if !ok {
		return Order{}, false, ErrNotFound
	}

	if ord.Status != Pending {
		return ord, false, nil
	}

	ord.Status = up.Status
	ord.TransactionID = up.TransactionID
	ord.PaymentMethod = up.PaymentMethod
	ord.UpdatedAt = up.UpdatedAt
	m.orders[ord.ID] = ord

	return ord, true, nil
}

func sortNewestFirst(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
