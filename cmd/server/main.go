package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/acganger/staffing-backend/internal/audit"
	"github.com/acganger/staffing-backend/internal/config"
	"github.com/acganger/staffing-backend/internal/db"
	"github.com/acganger/staffing-backend/internal/ehr"
	"github.com/acganger/staffing-backend/internal/hris"
	httpapi "github.com/acganger/staffing-backend/internal/http"
	"github.com/acganger/staffing-backend/internal/scheduler"
	"github.com/acganger/staffing-backend/internal/service"
	"github.com/acganger/staffing-backend/internal/wfm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "staffing-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	ehrSync := &ehr.Syncer{
		Client: &ehr.Client{
			BaseURL:      cfg.EHRBaseURL,
			ClientID:     cfg.EHRClientID,
			ClientSecret: cfg.EHRClientSecret,
			Scope:        cfg.EHRScope,
			HTTPClient:   httpClient,
		},
		Store:     store,
		Logger:    logger.With().Str("sync", "ehr").Logger(),
		ItemDelay: cfg.SyncItemDelay,
	}
	wfmSync := &wfm.Syncer{
		Client: &wfm.Client{
			BaseURL:    cfg.WFMBaseURL,
			APIKey:     cfg.WFMAPIKey,
			HTTPClient: httpClient,
		},
		Store:     store,
		Logger:    logger.With().Str("sync", "wfm").Logger(),
		ItemDelay: cfg.SyncItemDelay,
	}
	hrisSync := &hris.Syncer{
		Client: &hris.Client{
			BaseURL:    cfg.HRBaseURL,
			APIToken:   cfg.HRAPIToken,
			HTTPClient: httpClient,
		},
		Store:     store,
		Logger:    logger.With().Str("sync", "hris").Logger(),
		ItemDelay: cfg.SyncItemDelay,
	}

	engine := &service.Engine{Store: store, Logger: logger}
	sink := &audit.PGSink{Store: store, Logger: logger}

	sched := scheduler.New(ehrSync, wfmSync, hrisSync, engine, sink, logger)
	if cfg.SchedulerEnabled {
		sched.Start()
	} else {
		logger.Info().Msg("scheduler disabled by config")
	}

	router := httpapi.Router(cfg, store, sched, engine, wfmSync, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
