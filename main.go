// main.go
//
// Entry point for the Geekdle server.
//   - Loads .env and environment configuration.
//   - Opens the database and applies migrations.
//   - Loads the word catalog and wires the daily word service.
//   - Runs the HTTP server and the idle-round sweeper until SIGINT/SIGTERM.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/geekdle/internal/config"
	"github.com/robalobadob/geekdle/internal/daily"
	"github.com/robalobadob/geekdle/internal/database"
	"github.com/robalobadob/geekdle/internal/httpserver"
	"github.com/robalobadob/geekdle/internal/store"
	"github.com/robalobadob/geekdle/internal/users"
	"github.com/robalobadob/geekdle/internal/words"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("bye")
}

// run wires every component from cfg and serves until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	catalog, err := words.Load(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("load word catalog: %w", err)
	}
	answers, allowed := catalog.Stats()
	log.Info().Int("categories", len(catalog.Categories())).Int("answers", answers).Int("allowed", allowed).Msg("catalog loaded")

	var opts []daily.Option
	if cfg.GeminiAPIKey != "" {
		gen, err := daily.NewGenAIGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("daily generator disabled")
		} else {
			opts = append(opts, daily.WithGenerator(gen))
			log.Info().Msg("daily words from GenAI with catalog fallback")
		}
	}
	dailySvc := daily.NewService(daily.NewStore(db), catalog, cfg.DailySalt, opts...)

	repo := users.NewRepository(db, users.WithAdminUsername(cfg.AdminUsername))
	if err := repo.EnsureAdmin(ctx, cfg.AdminUsername); err != nil {
		log.Warn().Err(err).Str("user", cfg.AdminUsername).Msg("ensure admin")
	}

	rounds := store.NewMemory()
	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		Catalog: catalog,
		Rounds:  rounds,
		Users:   repo,
		Daily:   dailySvc,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("starting geekdle server")
		return srv.Run(gctx, ":"+cfg.Port)
	})
	g.Go(func() error {
		return rounds.Run(gctx, time.Minute, cfg.RoundTTL)
	})
	return g.Wait()
}
