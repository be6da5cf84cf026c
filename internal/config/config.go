// internal/config/config.go
//
// Environment-backed configuration. main loads .env first (godotenv), then
// this package parses the process environment into a typed struct.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/hilo.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"hilo_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Production     bool   `env:"PRODUCTION" envDefault:"false"`

	// TermsAPIURL is the external term source; empty runs sample-pool only.
	TermsAPIURL     string        `env:"TERMS_API_URL"`
	TermsFetchLimit int           `env:"TERMS_FETCH_LIMIT" envDefault:"20"`
	RemoteTimeout   time.Duration `env:"REMOTE_TIMEOUT" envDefault:"3s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
