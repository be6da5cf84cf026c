package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mfreitag/hilo-server/internal/config"
	"github.com/mfreitag/hilo-server/internal/httpserver"
	"github.com/mfreitag/hilo-server/internal/scores"
	"github.com/mfreitag/hilo-server/internal/session"
	"github.com/mfreitag/hilo-server/internal/store"
	"github.com/mfreitag/hilo-server/internal/terms"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var source terms.Source
	if cfg.TermsAPIURL != "" {
		source = terms.NewHTTPSource(cfg.TermsAPIURL, cfg.RemoteTimeout)
	} else {
		log.Info().Msg("no TERMS_API_URL configured, serving from the sample pool")
	}
	supply, err := terms.NewSupply(source, cfg.TermsFetchLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load term pool")
	}

	tracker := scores.NewTracker(scores.NewSQLStore(db))
	defer tracker.Close()

	mgr := session.NewManager(supply, store.NewMemoryStore(), store.NewSQLStore(db), tracker, cfg.RemoteTimeout)

	srv := httpserver.New(cfg, mgr, tracker, supply, db)
	log.Info().Str("port", cfg.Port).Msg("starting hilo-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
