// Package payment advances orders out of pending on notifications from the
// external payment notifier and triggers entitlement issuance on success.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/validate"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Callback is the notifier's payload. The notifier is trusted but sloppy:
// it may redeliver, race itself, or omit the transaction id.
type Callback struct {
	OrderID       int64  `json:"orderId" validate:"required,gt=0"`
	Status        string `json:"status" validate:"required,oneof=success failure"`
	TransactionID string `json:"transactionId"`
	PaymentMethod string `json:"paymentMethod"`
}

// Issuer is the entitlement side the processor hands paid orders to.
type Issuer interface {
	IssueForProducts(ctx context.Context, userID int64, productIDs []int64) ([]download.Grant, error)
}

type Processor struct {
	orders order.Store
	issuer Issuer
	now    func() time.Time
}

func NewProcessor(orders order.Store, issuer Issuer) *Processor {
	return &Processor{
		orders: orders,
		issuer: issuer,
		now:    time.Now,
	}
}

// HandleCallback runs the pending->terminal state machine once per order.
//
// Redelivered callbacks find a terminal order and return it unchanged. Two
// racing callbacks both pass the pending pre-check, but the store's
// compare-and-set lets exactly one through; the loser reads back the
// winner's row and is a no-op. Entitlements are therefore issued at most
// once per order.
func (p *Processor) HandleCallback(ctx context.Context, cb Callback) (order.Order, []download.Grant, error) {
	ord, err := p.orders.Fetch(ctx, cb.OrderID)
	if err != nil {
		return order.Order{}, nil, err
	}

	if ord.Status.Terminal() {
		return ord, nil, nil
	}

	target := order.Cancelled
	if cb.Status == OutcomeSuccess {
		target = order.Paid
	}

	up := order.StatusUp{
		ID:        ord.ID,
		Status:    target,
		UpdatedAt: p.now().UTC(),
	}
	if cb.Status == OutcomeSuccess {
		txn := cb.TransactionID
		if txn == "" {
			txn = validate.GenerateID()
		}
		up.TransactionID = &txn
		if cb.PaymentMethod != "" {
			up.PaymentMethod = &cb.PaymentMethod
		}
	}

	cur, applied, err := p.orders.UpdateStatus(ctx, up)
	if err != nil {
		return order.Order{}, nil, fmt.Errorf("transitioning order[%d]: %w", ord.ID, err)
	}
	if !applied || target == order.Cancelled {
		return cur, nil, nil
	}

	items, err := p.orders.FetchItems(ctx, cur.ID)
	if err != nil {
		return cur, nil, fmt.Errorf("fetching items of paid order[%d]: %w", cur.ID, err)
	}

	productIDs := make([]int64, len(items))
	for i, it := range items {
		productIDs[i] = it.ProductID
	}

	grants, err := p.issuer.IssueForProducts(ctx, cur.UserID, productIDs)
	if err != nil {
		// The order is paid either way; the error says which grants a retry
		// still owes the buyer.
		return cur, grants, fmt.Errorf("issuing grants for order[%d]: %w", cur.ID, err)
	}

	return cur, grants, nil
}
