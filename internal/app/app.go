// Package app wires configuration into a ready processor for the server and CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipo-report-go/internal/branding"
	"ipo-report-go/internal/config"
	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/mailer"
	"ipo-report-go/internal/pdf"
	"ipo-report-go/internal/processor"
	"ipo-report-go/internal/render"
	"ipo-report-go/internal/report"
	"ipo-report-go/internal/store"
	"ipo-report-go/internal/types"
)

// App owns the long lived collaborators.
type App struct {
	Config    config.Config
	Log       *logger.Logger
	Store     *store.Store
	Index     []types.ItemIndexEntry
	Processor *processor.Processor

	chrome *pdf.Chrome
}

// Options switch off collaborators a caller does not need.
type Options struct {
	SkipStore bool
}

// New opens the store, loads branding and the default item index and
// builds the processor. Missing optional collaborators are logged, not
// fatal.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if !opts.SkipStore && cfg.Storage.DatabasePath != "" {
		st, err := store.Open(ctx, cfg.Storage.DatabasePath, log)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = st
	}

	brand, err := branding.Load(cfg.BrandingPath)
	if err != nil {
		log.WithError(err).Warn("branding config unusable; using defaults")
	}

	if cfg.IndexPath != "" {
		idx, err := dataset.NewReader(log).LoadIndex(cfg.IndexPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.IndexPath).Warn("default item index not loaded")
		} else {
			a.Index = idx
		}
	}

	rnd, err := render.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	deps := processor.Deps{
		Builder:     report.NewBuilder(cfg.ReportOptions(), log),
		Renderer:    rnd,
		Branding:    brand,
		Interpreter: a.interpreter(ctx),
		Log:         log,
	}
	if a.Store != nil {
		deps.Store = a.Store
	}
	if cfg.PDF.Enabled {
		a.chrome = pdf.NewChrome(cfg.ChromeConfig(), log)
		deps.PDF = pdf.NewBatch(a.chrome, cfg.PDF.Workers, log)
	}
	if mc := cfg.MailerConfig(); mc.Configured() {
		deps.Mailer = mailer.New(mc, log)
	} else {
		log.Info("smtp not configured; e-mail delivery disabled")
	}
	a.Processor = processor.New(deps)
	return a, nil
}

func (a *App) interpreter(ctx context.Context) *interpret.Interpreter {
	var cache interpret.Cache
	if a.Store != nil {
		cache = a.Store
	}
	if a.Config.AI.UseMock {
		a.Log.Info("using mock interpretation generator")
		return interpret.New(interpret.MockGenerator{}, cache, a.Log)
	}
	client, err := interpret.NewGenAIClient(ctx, a.Config.ClientConfig(), a.Log)
	if err != nil {
		a.Log.WithError(err).Warn("AI interpretation disabled")
		return nil
	}
	return interpret.New(client, cache, a.Log)
}

// RunRetention deletes old rows every interval until ctx ends. It returns
// immediately when retention is off or there is no store.
func (a *App) RunRetention(ctx context.Context, interval time.Duration) {
	age := a.Config.Retention()
	if a.Store == nil || age <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := a.Store.CleanOldData(ctx, age)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			a.Log.WithError(err).Warn("retention cleanup failed")
		case n > 0:
			a.Log.WithField("deleted", n).Info("retention cleanup")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Close releases the browser and the database.
func (a *App) Close() error {
	var errs []error
	if a.chrome != nil {
		errs = append(errs, a.chrome.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
