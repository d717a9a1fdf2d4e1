package claims

import (
	"context"
	"errors"
)

// Claims is the authenticated principal attached to a request context by the
// auth middleware. Core operations receive it explicitly instead of digging
// through the request.
type Claims struct {
	UserID int64
	Admin  bool
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Admin
}
