package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/api"
	"github.com/socialcap/profile-api/internal/cache"
	"github.com/socialcap/profile-api/internal/config"
	"github.com/socialcap/profile-api/internal/crawl"
	"github.com/socialcap/profile-api/internal/fetch"
	"github.com/socialcap/profile-api/internal/generator"
	"github.com/socialcap/profile-api/internal/pipeline"
	"github.com/socialcap/profile-api/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Load()

	// ─── Profile store ────────────────────────────────────────────────────────
	profiles, err := store.Open(cfg.ProfilesFile, log.Named("store"))
	if err != nil {
		log.Fatal("open profile store", zap.Error(err))
	}
	log.Info("profile store ready", zap.String("file", cfg.ProfilesFile))

	// ─── Analysis pipeline ────────────────────────────────────────────────────
	fetcher := fetch.New(fetch.Policy{
		MaxAttempts:    cfg.FetchMaxAttempts,
		ConnectTimeout: cfg.FetchConnectTimeout,
		ReadTimeout:    cfg.FetchReadTimeout,
	}, log.Named("fetch"))

	crawler := crawl.New(fetcher, cache.New(), crawl.Config{
		PageBudget: cfg.PageBudget,
		CacheTTL:   cfg.CacheTTL,
	}, log.Named("crawl"))

	pipe := pipeline.Config{Crawler: crawler, Log: log.Named("pipeline")}

	// ─── HTTP server ──────────────────────────────────────────────────────────
	handler := api.NewHandler(pipe, profiles, generator.Static{}, log.Named("api"))
	srv := api.NewServer(cfg.Addr, cfg.AppToken, handler, log.Named("http"))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Warn("server stopped", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("bye")
}
