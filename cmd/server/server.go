package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/cgmart/cgmart/api"
	"github.com/cgmart/cgmart/config"
	"github.com/cgmart/cgmart/core/auth"
	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/favorite"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/core/payment"
	"github.com/cgmart/cgmart/core/user"
	"github.com/cgmart/cgmart/database"
	"github.com/cgmart/cgmart/rate"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "CGMART"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB.Database())
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate the schema: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	var oauthProvs map[string]auth.Provider
	if cfg.Oauth.Google.Client != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
		defer cancel()
		google := cfg.Oauth.Google
		oauthProvs, err = auth.MakeProviders(ctx, []auth.ProviderConfig{
			{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
		})
		if err != nil {
			return fmt.Errorf("failed to discover oauth providers: %w", err)
		}
	}

	orderStore := order.NewSQLStore(db)
	grantStore := download.NewSQLStore(db)
	cat := catalog.NewSQLCatalog(db)

	issuer := download.NewIssuer(grantStore, cfg.Download.GrantTTL)

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		Session:          sessionManager,
		Users:            user.NewSQLStore(db),
		Favorites:        favorite.NewSQLStore(db),
		Catalog:          cat,
		Loader:           catalog.NewLoader(db),
		Orders:           order.NewService(orderStore, cat),
		Payments:         payment.NewProcessor(orderStore, issuer),
		Gate:             download.NewGate(grantStore, cat),
		RedeemLimiter:    rate.NewLimiter(cfg.Rate.RedeemBurst, cfg.Rate.Expiry, cfg.Rate.RedeemRPS),
		WebhookSecret:    cfg.Payment.WebhookSecret,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
	})

	srv := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
