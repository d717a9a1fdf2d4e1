package favorite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/claims"
	"github.com/cgmart/cgmart/validate"
)

type favoriteResponse struct {
	Favorite
	Product catalog.Product `json:"product"`
}

// HandleList returns the user's favorites with the product attached, so the
// storefront renders the list without a lookup per row.
func HandleList(store Store, cat catalog.Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		favs, err := store.FetchByUser(ctx, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing favorites of user[%d]: %w", clm.UserID, err)
		}

		resp := make([]favoriteResponse, 0, len(favs))
		for _, fav := range favs {
			p, err := cat.Fetch(ctx, fav.ProductID)
			if err != nil {
				// A product pulled from the catalog takes its bookmarks with
				// it, silently.
				if errors.Is(err, catalog.ErrNotFound) {
					continue
				}
				return fmt.Errorf("resolving product[%d] of favorite[%d]: %w", fav.ProductID, fav.ID, err)
			}
			resp = append(resp, favoriteResponse{Favorite: fav, Product: p})
		}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleAdd(store Store, cat catalog.Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var fn FavoriteNew
		if err := web.Decode(w, r, &fn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(fn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := cat.Fetch(ctx, fn.ProductID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("resolving product[%d]: %w", fn.ProductID, err)
		}

		fav, err := store.Add(ctx, Favorite{
			UserID:    clm.UserID,
			ProductID: fn.ProductID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			if errors.Is(err, ErrExists) {
				return weberr.NewError(err, err.Error(), http.StatusConflict)
			}
			return fmt.Errorf("favoriting product[%d]: %w", fn.ProductID, err)
		}

		return web.Respond(ctx, w, fav, http.StatusCreated)
	}
}

func HandleRemove(store Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID, err := validate.ParseID(web.Param(r, "product_id"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		if err := store.Remove(ctx, clm.UserID, productID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("unfavoriting product[%d]: %w", productID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
