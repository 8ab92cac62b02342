package dbmigrate

import (
	"errors"
	"net/url"

	"github.com/fdg312/plateplan/internal/config"
)

var ErrNoDatabase = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")

// Target is the database a migration or seed run connects to.
type Target struct {
	URL     string
	Source  string // env var the URL came from
	Warning string
}

// Redacted returns URL with the password masked, for logs.
func (t Target) Redacted() string {
	u, err := url.Parse(t.URL)
	if err != nil || u.User == nil {
		return t.URL
	}
	return u.Redacted()
}

// SelectTarget picks the DB for DDL: DIRECT > DATABASE_URL > POOLED (with warning).
// Staging and production accept only DATABASE_URL_DIRECT: the pooler
// (pgbouncer in transaction mode) breaks goose's advisory locks.
func SelectTarget(cfg *config.Config) (Target, error) {
	if cfg.DatabaseURLDirect != "" {
		return Target{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, nil
	}
	if cfg.IsProduction() {
		return Target{}, errors.New("DATABASE_URL_DIRECT is required for migrations outside local")
	}
	if cfg.DatabaseURLRaw != "" {
		return Target{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"}, nil
	}
	if cfg.DatabaseURLPooled != "" {
		return Target{
			URL:     cfg.DatabaseURLPooled,
			Source:  "DATABASE_URL_POOLED",
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		}, nil
	}
	return Target{}, ErrNoDatabase
}
