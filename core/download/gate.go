package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgmart/cgmart/core/catalog"
)

// Access is what a client needs to pull a file: the target plus the
// credential and its deadline.
type Access struct {
	DownloadURL   string    `json:"downloadUrl"`
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DownloadCount int       `json:"downloadCount"`
}

// Gate validates capability tokens against the grant store. It distinguishes
// unknown from expired internally; the transport boundary is expected to
// collapse the two on the token path.
type Gate struct {
	store   Store
	catalog catalog.Catalog
	now     func() time.Time
}

func NewGate(store Store, cat catalog.Catalog) *Gate {
	return &Gate{
		store:   store,
		catalog: cat,
		now:     time.Now,
	}
}

// Resolve is the "do I still have access" check: the newest live grant for
// the pair, without consuming a redemption.
func (g *Gate) Resolve(ctx context.Context, userID, productID int64) (Access, error) {
	grant, err := g.store.FetchActiveByOwner(ctx, userID, productID, g.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Access{}, ErrNotFound
		}
		return Access{}, fmt.Errorf("resolving grant for user[%d] product[%d]: %w", userID, productID, err)
	}

	p, err := g.catalog.Fetch(ctx, grant.ProductID)
	if err != nil {
		return Access{}, fmt.Errorf("resolving product[%d] of grant[%d]: %w", grant.ProductID, grant.ID, err)
	}

	return Access{
		DownloadURL:   p.DownloadURL,
		Token:         grant.Token,
		ExpiresAt:     grant.ExpiresAt,
		DownloadCount: grant.DownloadCount,
	}, nil
}

// Redeem validates the token, counts the use, and hands back the download
// target. Possession of the token is the whole authorization; no session is
// consulted.
func (g *Gate) Redeem(ctx context.Context, token string) (string, error) {
	grant, err := g.store.FetchByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetching grant by token: %w", err)
	}

	if grant.Expired(g.now().UTC()) {
		return "", ErrExpired
	}

	p, err := g.catalog.Fetch(ctx, grant.ProductID)
	if err != nil {
		return "", fmt.Errorf("resolving product[%d] of grant[%d]: %w", grant.ProductID, grant.ID, err)
	}

	// The counter is the abuse signal, so it moves last: a redemption counts
	// only once nothing can fail before the target is handed out.
	if _, err := g.store.IncrementCount(ctx, token); err != nil {
		return "", fmt.Errorf("counting redemption of grant[%d]: %w", grant.ID, err)
	}

	return p.DownloadURL, nil
}
