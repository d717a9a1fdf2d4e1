package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/core/claims"
	"github.com/cgmart/cgmart/validate"
)

// HandleResolve answers the storefront's "can this user still download this
// product" question. Read-only, consumes nothing.
func HandleResolve(gate *Gate) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID, err := validate.ParseID(web.Param(r, "product_id"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		access, err := gate.Resolve(ctx, clm.UserID, productID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NewError(err, "no valid download for this product", http.StatusNotFound)
			}
			return fmt.Errorf("resolving access for product[%d]: %w", productID, err)
		}

		return web.Respond(ctx, w, access, http.StatusOK)
	}
}

// HandleRedeem is the bearer-capability endpoint: the token in the path is
// the entire authorization. Unknown and expired tokens answer identically so
// the endpoint can't be used as a token oracle.
func HandleRedeem(gate *Gate) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		token := web.Param(r, "token")
		if token == "" {
			return weberr.BadRequest(errors.New("missing download token"))
		}

		url, err := gate.Redeem(ctx, token)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
				return weberr.NewError(err, "download link invalid or expired", http.StatusNotFound)
			}
			return fmt.Errorf("redeeming download token: %w", err)
		}

		resp := struct {
			FileURL string `json:"fileUrl"`
		}{FileURL: url}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
