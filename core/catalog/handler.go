package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/validate"
)

func HandleShow(cat Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID, err := validate.ParseID(web.Param(r, "id"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		p, err := cat.Fetch(ctx, productID)
		if err != nil {
			if err == ErrNotFound {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%d]: %w", productID, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleList(cat Browser) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page := web.QueryInt(r, "page", 1)
		limit := web.QueryInt(r, "limit", 12)

		if page < 1 {
			page = 1
		}
		if limit <= 0 || limit > 100 {
			limit = 12
		}

		products, total, err := cat.List(ctx, (page-1)*limit, limit)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}

		resp := struct {
			Products   []Product `json:"products"`
			Pagination struct {
				Page  int `json:"page"`
				Limit int `json:"limit"`
				Total int `json:"total"`
				Pages int `json:"pages"`
			} `json:"pagination"`
		}{Products: products}

		resp.Pagination.Page = page
		resp.Pagination.Limit = limit
		resp.Pagination.Total = total
		resp.Pagination.Pages = (total + limit - 1) / limit

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleImport(loader *Loader) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rows []ProductRow
		if err := web.Decode(w, r, &rows); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if len(rows) == 0 {
			err := fmt.Errorf("import payload is empty")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		for _, row := range rows {
			if err := validate.Check(row); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
		}

		n, err := loader.Load(ctx, rows)
		if err != nil {
			return fmt.Errorf("importing catalog rows: %w", err)
		}

		resp := struct {
			Imported int `json:"imported"`
		}{Imported: n}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
