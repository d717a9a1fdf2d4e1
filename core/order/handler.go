package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/claims"
	"github.com/cgmart/cgmart/validate"
)

type orderResponse struct {
	Order
	Items []Item `json:"items"`
}

func HandleCreate(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var no OrderNew
		if err := web.Decode(w, r, &no); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(no); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, items, err := svc.Create(ctx, clm.UserID, no)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoItems):
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, catalog.ErrNotFound):
				return weberr.NotFound(err)
			}
			return fmt.Errorf("creating order: %w", err)
		}

		return web.Respond(ctx, w, orderResponse{Order: ord, Items: items}, http.StatusCreated)
	}
}

func HandleShow(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orderID, err := validate.ParseID(web.Param(r, "id"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		ord, items, err := svc.Get(ctx, clm, orderID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrForbidden):
				return weberr.Forbidden(err)
			}
			return fmt.Errorf("fetching order[%d]: %w", orderID, err)
		}

		return web.Respond(ctx, w, orderResponse{Order: ord, Items: items}, http.StatusOK)
	}
}

func HandleListOwn(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := svc.ListByUser(ctx, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders of user[%d]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleListAll(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page := web.QueryInt(r, "page", 1)
		limit := web.QueryInt(r, "limit", defaultPageSize)
		status := Status(r.URL.Query().Get("status"))

		orders, pg, err := svc.ListAll(ctx, page, limit, status)
		if err != nil {
			if errors.Is(err, ErrBadStatus) {
				return weberr.BadRequest(err)
			}
			return fmt.Errorf("listing orders: %w", err)
		}

		resp := struct {
			Orders     []Order    `json:"orders"`
			Pagination Pagination `json:"pagination"`
		}{Orders: orders, Pagination: pg}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
