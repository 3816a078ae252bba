package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipo-report-go/internal/app"
	"ipo-report-go/internal/config"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/server"
)

const (
	shutdownGrace     = 15 * time.Second
	retentionInterval = 6 * time.Hour
)

func main() {
	cfg, log, err := bootstrap()
	log.WithField("service", "ipo-report-go").Info("starting service")
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.WithError(err).Fatal("failed to initialise")
	}
	defer a.Close()
	log.WithField("index_items", len(a.Index)).
		WithField("store", a.Store != nil).
		WithField("pdf", cfg.PDF.Enabled).
		Info("collaborators ready")

	go a.RunRetention(ctx, retentionInterval)

	srv := server.New(cfg, a.Processor, a.Store, a.Index, log)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", httpSrv.Addr).Info("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}
}

// bootstrap loads .env and the config before the logger is built so
// LOG_LEVEL and ENVIRONMENT from .env take effect.
func bootstrap() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load("")
	return cfg, logger.New(), err
}
