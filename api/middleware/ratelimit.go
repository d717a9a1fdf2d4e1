package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/api/weberr"
	"github.com/cgmart/cgmart/rate"
)

// KeyFunc extracts the client key a limiter bucket is attached to.
type KeyFunc func(r *http.Request) string

// KeyByIP buckets requests by the caller address. Used where no better key
// exists, like unauthenticated endpoints.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyByParam buckets requests by a path parameter, so abuse of a single
// capability token is throttled independently of the caller address.
func KeyByParam(param string) KeyFunc {
	return func(r *http.Request) string {
		if v := web.Param(r, param); v != "" {
			return v
		}
		return KeyByIP(r)
	}
}

func RateLimit(lim *rate.Limiter, key KeyFunc) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if !lim.Check(key(r)) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, "too many requests", http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
