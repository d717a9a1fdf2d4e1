package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/validate"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body, keyed with
// the shared webhook secret.
const SignatureHeader = "X-Callback-Signature"

// HandleCallback is the notifier-facing webhook. With an empty secret the
// endpoint is open for local development; production deployments set the
// secret and callbacks must be signed.
func HandleCallback(proc *Processor, secret string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1048576))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		if secret != "" {
			if err := verifySignature(body, r.Header.Get(SignatureHeader), secret); err != nil {
				return weberr.NotAuthorized(err)
			}
		}

		var cb Callback
		if err := web.DecodeBytes(body, &cb); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cb); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, grants, err := proc.HandleCallback(ctx, cb)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}

			var ierr *download.IssueError
			if errors.As(err, &ierr) {
				// The order is paid; report exactly which items a scoped
				// retry still has to cover.
				issued := make([]int64, len(ierr.Issued))
				for i, g := range ierr.Issued {
					issued[i] = g.ProductID
				}
				failed := make([]int64, len(ierr.Failed))
				for i, f := range ierr.Failed {
					failed[i] = f.ProductID
				}

				return weberr.NewError(err, "entitlement issuance incomplete",
					http.StatusInternalServerError,
					weberr.WithFields(map[string]interface{}{
						"order_id":        ord.ID,
						"issued_products": issued,
						"failed_products": failed,
					}))
			}

			return fmt.Errorf("handling payment callback: %w", err)
		}

		resp := struct {
			order.Order
			Grants int `json:"grantsIssued"`
		}{Order: ord, Grants: len(grants)}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func verifySignature(body []byte, got, secret string) error {
	if got == "" {
		return errors.New("callback is not signed")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(got)) {
		return errors.New("callback signature mismatch")
	}
	return nil
}
