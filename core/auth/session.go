package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/core/claims"
)

// Session keys. Everything identifying the principal lives server-side; the
// browser only carries the scs session cookie.
const (
	userIDKey  = "userID"
	isAdminKey = "isAdmin"
	oauthKey   = "oauthState"
)

// LoadAndSave adapts the scs middleware to the web.Handler chain, so every
// request sees a loaded session and writes it back on the way out.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			var err error
			wrapped := session.LoadAndSave(http.HandlerFunc(func(ww http.ResponseWriter, rr *http.Request) {
				err = handler(rr.Context(), ww, rr)
			}))
			wrapped.ServeHTTP(w, r)

			return err
		}
		return h
	}
	return m
}

// Authenticate rejects requests without a logged-in session and threads the
// principal into the context as claims.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			userID := session.GetInt64(ctx, userIDKey)
			if userID == 0 {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Admin:  session.GetBool(ctx, isAdminKey),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin allows only authenticated admins through.
func Admin(session *scs.SessionManager) web.Middleware {
	authen := Authenticate(session)
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if !claims.IsAdmin(ctx) {
				return weberr.Forbidden(errors.New("admin role required"))
			}

			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}

func login(ctx context.Context, session *scs.SessionManager, userID int64, admin bool) error {
	// A fresh token on privilege change defeats session fixation.
	if err := session.RenewToken(ctx); err != nil {
		return err
	}

	session.Put(ctx, userIDKey, userID)
	session.Put(ctx, isAdminKey, admin)
	return nil
}
