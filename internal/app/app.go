package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"yieldwatcher/internal/alerting"
	"yieldwatcher/internal/config"
	"yieldwatcher/internal/fetcher"
	"yieldwatcher/internal/scheduler"
	"yieldwatcher/internal/server"
	"yieldwatcher/internal/service"
	"yieldwatcher/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.SeriesFetcher {
	return fetcher.NewFRED(fetcher.FREDOptions{
		APIKey:  a.Config.FRED.APIKey,
		BaseURL: a.Config.FRED.BaseURL,
		Timeout: a.Config.FRED.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		TreasurySeries: a.Config.FRED.TreasurySeries,
		MuniSeries:     a.Config.FRED.MuniSeries,
		LookbackYears:  a.Config.Seed.LookbackYears,
		WindowDays:     a.Config.Update.WindowDays,
		AlertsEnabled:  a.Config.Alerting.Enabled,
		ThresholdBps:   a.Config.Alerting.ThresholdBps,
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store storage.YieldStore) *service.Service {
	return service.New(a.serviceOptions(), a.newFetcher(), store, a.newNotifier(), a.Logger)
}

// Serve runs the HTTP server and, when enabled, the in-process refresh
// scheduler, until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)
	srv := server.New(server.Options{
		Addr:          a.Config.Server.Addr,
		RefreshSecret: a.Config.Server.RefreshSecret,
	}, svc, a.Logger)

	if a.Config.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Options{
			Interval:     a.Config.Scheduler.Interval,
			AlignToStart: a.Config.Scheduler.AlignToBucket,
			StartupDelay: a.Config.Scheduler.StartupDelay,
		}, a.Logger)

		go func() {
			err := sched.Run(ctx, func(tickCtx context.Context) error {
				_, tickErr := svc.UpdateRecentYields(tickCtx)
				return tickErr
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("scheduler terminated with error")
			}
		}()
	}

	a.Logger.Info().Msg("starting yield watcher")
	err = srv.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("server terminated with error")
		return err
	}

	a.Logger.Info().Msg("yield watcher stopped")
	return nil
}

// Seed runs the historical backfill once and reports rows written.
func (a *App) Seed(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	written, err := a.newService(store).SeedHistoricalYields(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "seeded %d rows\n", written)
	return nil
}

// Update runs the rolling refresh once and reports rows written.
func (a *App) Update(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	written, err := a.newService(store).UpdateRecentYields(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "updated %d rows\n", written)
	return nil
}

// ExportOptions hold parameters for exporting stored rows.
type ExportOptions struct {
	From      string
	To        string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
