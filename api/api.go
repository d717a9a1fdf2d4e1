package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/cgmart/cgmart/api/middleware"
	"github.com/cgmart/cgmart/api/web"
	"github.com/cgmart/cgmart/core/auth"
	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/favorite"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/core/payment"
	"github.com/cgmart/cgmart/core/user"
	"github.com/cgmart/cgmart/rate"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	Session          *scs.SessionManager
	Users            user.Store
	Favorites        favorite.Store
	Catalog          catalog.Browser
	Loader           *catalog.Loader
	Orders           *order.Service
	Payments         *payment.Processor
	Gate             *download.Gate
	RedeemLimiter    *rate.Limiter
	WebhookSecret    string
	Providers        map[string]auth.Provider
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.Users, cfg.Session))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.Users, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.Users, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.Users), authen)

	a.Handle(http.MethodGet, "/users/favorites", favorite.HandleList(cfg.Favorites, cfg.Catalog), authen)
	a.Handle(http.MethodPost, "/users/favorites", favorite.HandleAdd(cfg.Favorites, cfg.Catalog), authen)
	a.Handle(http.MethodDelete, "/users/favorites/{product_id:[0-9]+}", favorite.HandleRemove(cfg.Favorites), authen)

	a.Handle(http.MethodGet, "/products/{id}", catalog.HandleShow(cfg.Catalog))
	a.Handle(http.MethodGet, "/products", catalog.HandleList(cfg.Catalog))
	if cfg.Loader != nil {
		a.Handle(http.MethodPost, "/products/import", catalog.HandleImport(cfg.Loader), admin)
	}

	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders/my", order.HandleListOwn(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders/{id:[0-9]+}", order.HandleShow(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleListAll(cfg.Orders), admin)

	// The notifier authenticates with the webhook signature, not a session.
	a.Handle(http.MethodPost, "/orders/payment-callback", payment.HandleCallback(cfg.Payments, cfg.WebhookSecret))

	a.Handle(http.MethodGet, "/downloads/{product_id:[0-9]+}", download.HandleResolve(cfg.Gate), authen)

	// Bearer-capability endpoint: the token is the whole credential, and the
	// limiter throttles per token rather than per caller.
	redeem := download.HandleRedeem(cfg.Gate)
	if cfg.RedeemLimiter != nil {
		limited := middleware.RateLimit(cfg.RedeemLimiter, middleware.KeyByParam("token"))
		a.Handle(http.MethodGet, "/downloads/file/{token}", redeem, limited)
	} else {
		a.Handle(http.MethodGet, "/downloads/file/{token}", redeem)
	}

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
