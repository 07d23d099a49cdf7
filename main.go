package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcards/internal/config"
	"github.com/robalobadob/wordcards/internal/game"
	"github.com/robalobadob/wordcards/internal/httpserver"
	"github.com/robalobadob/wordcards/internal/session"
	"github.com/robalobadob/wordcards/internal/store"
	"github.com/robalobadob/wordcards/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dict, err := words.LoadDictionary(cfg.WordsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}
	log.Info().Int("words", dict.Len()).Msg("dictionary loaded")

	var st store.Store = store.NewMemoryStore()
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
		}
		defer db.Close()
		st = db
		log.Info().Str("path", cfg.DBPath).Msg("using sqlite store")
	}

	rules := game.DefaultRules()
	rules.StrictTurns = cfg.StrictTurns
	sessions := session.New(session.Config{
		Store:         st,
		Engine:        game.NewEngine(rules, dict),
		RetryAttempts: cfg.StoreRetries,
		RetryBackoff:  cfg.StoreRetryBackoff,
		IdleTimeout:   cfg.SessionIdleTimeout,
		Rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:        log.Logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpserver.New(sessions, cfg.ClientOrigin).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Bool("strictTurns", cfg.StrictTurns).Msg("starting wordcards server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	sig := <-shutdown
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server did not shut down cleanly")
	}
	sessions.Close()
	log.Info().Msg("shutdown complete")
}
