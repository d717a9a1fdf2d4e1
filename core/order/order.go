package order

import (
	"errors"
	"time"
)

// Status moves one way only: pending to paid, or pending to cancelled. Both
// targets are terminal.
type Status string

const (
	Pending   Status = "pending"
	Paid      Status = "paid"
	Cancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == Paid || s == Cancelled
}

var (
	ErrNotFound  = errors.New("order not found")
	ErrNoItems   = errors.New("order must contain at least one item")
	ErrForbidden = errors.New("order belongs to another user")
	ErrBadStatus = errors.New("unknown order status")
)

// Orders are retained forever as audit records, there is no delete anywhere.
type Order struct {
	ID            int64     `json:"id" db:"order_id"`
	UserID        int64     `json:"userId" db:"user_id"`
	TotalAmount   int       `json:"totalAmount" db:"total_amount"`
	Status        Status    `json:"status" db:"status"`
	TransactionID *string   `json:"transactionId,omitempty" db:"transaction_id"`
	PaymentMethod *string   `json:"paymentMethod,omitempty" db:"payment_method"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Item snapshots the catalog price at purchase time. Later catalog price
// changes never touch it.
type Item struct {
	ID        int64     `json:"id" db:"order_item_id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Price     int       `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ItemNew struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

type OrderNew struct {
	Items []ItemNew `json:"items" validate:"required,min=1,dive"`
}

// StatusUp is the payload of the one-shot pending->terminal transition.
type StatusUp struct {
	ID            int64     `db:"order_id"`
	Status        Status    `db:"status"`
	TransactionID *string   `db:"transaction_id"`
	PaymentMethod *string   `db:"payment_method"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
