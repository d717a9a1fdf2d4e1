package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/cgmart/cgmart/database"
)

type Config struct {
	conf.Version
	Web      Web
	DB       DB
	Session  Session
	Download Download
	Payment  Payment
	Rate     Rate
	Cors     Cors
	Oauth    Oauth
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:4000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:cgmart"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Download struct {
	// GrantTTL is the redeemable lifetime of an issued grant.
	GrantTTL time.Duration `conf:"default:168h"`
}

type Payment struct {
	// WebhookSecret gates the payment callback when set; empty leaves the
	// endpoint open for local development.
	WebhookSecret string `conf:"mask"`
}

type Rate struct {
	RedeemRPS   float64       `conf:"default:1"`
	RedeemBurst int           `conf:"default:5"`
	Expiry      time.Duration `conf:"default:1h"`
}

type Cors struct {
	Origin string
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:/"`
	Google           Google
}

type Google struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

func (c DB) Database() database.Config {
	return database.Config{
		User:         c.User,
		Password:     c.Password,
		Host:         c.Host,
		Name:         c.Name,
		MaxIdleConns: c.MaxIdleConns,
		MaxOpenConns: c.MaxOpenConns,
		DisableTLS:   c.DisableTLS,
	}
}
