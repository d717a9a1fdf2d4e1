package download

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultGrantTTL is how long a grant stays redeemable. A fixed policy
// constant, never derived from product data.
const DefaultGrantTTL = 7 * 24 * time.Hour

// Issuer converts the line items of a paid order into grants, one per item.
// Repeat purchases of the same product get independent grants on purpose;
// nothing here deduplicates against earlier ones.
type Issuer struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	return &Issuer{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// ItemFailure records one line item whose grant could not be stored.
type ItemFailure struct {
	ProductID int64
	Err       error
}

// IssueError reports a partially failed issuance pass. Issued carries what
// went through, Failed what a retry should be scoped to. Retrying only the
// failed products never re-grants the issued ones.
type IssueError struct {
	Issued []Grant
	Failed []ItemFailure
}

func (e *IssueError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = fmt.Sprintf("%d", f.ProductID)
	}
	return fmt.Sprintf("issued %d of %d grants; failed products: %s",
		len(e.Issued), len(e.Issued)+len(e.Failed), strings.Join(ids, ","))
}

// IssueForProducts stores one grant per product id. There is no business
// rejection on this path, the only way to fail is the store being
// unavailable, and that is reported per item.
func (i *Issuer) IssueForProducts(ctx context.Context, userID int64, productIDs []int64) ([]Grant, error) {
	now := i.now().UTC()

	issued := make([]Grant, 0, len(productIDs))
	var failed []ItemFailure

	for _, productID := range productIDs {
		token, err := NewToken()
		if err != nil {
			failed = append(failed, ItemFailure{ProductID: productID, Err: err})
			continue
		}

		g, err := i.store.Create(ctx, Grant{
			UserID:        userID,
			ProductID:     productID,
			Token:         token,
			ExpiresAt:     now.Add(i.ttl),
			DownloadCount: 0,
			CreatedAt:     now,
		})
		if err != nil {
			failed = append(failed, ItemFailure{ProductID: productID, Err: err})
			continue
		}

		issued = append(issued, g)
	}

	if len(failed) > 0 {
		return issued, &IssueError{Issued: issued, Failed: failed}
	}
	return issued, nil
}
