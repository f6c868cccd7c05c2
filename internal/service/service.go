package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"yieldwatcher/internal/alerting"
	"yieldwatcher/internal/fetcher"
	"yieldwatcher/internal/pipeline"
	"yieldwatcher/internal/storage"
)

const dateLayout = "2006-01-02"

// Options parameterise the orchestration service.
type Options struct {
	TreasurySeries string
	MuniSeries     string
	LookbackYears  int
	WindowDays     int
	AlertsEnabled  bool
	ThresholdBps   float64
}

// Service orchestrates fetching, merging, and persistence of yield rows.
type Service struct {
	fetcher  fetcher.SeriesFetcher
	store    storage.YieldStore
	notifier alerting.Notifier
	logger   zerolog.Logger
	opts     Options

	// now is the wall clock; replaced in tests.
	now func() time.Time
}

// New constructs the service.
func New(opts Options, f fetcher.SeriesFetcher, store storage.YieldStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	if opts.LookbackYears <= 0 {
		opts.LookbackYears = 10
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 10
	}

	return &Service{
		fetcher:  f,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "service").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// SeedHistoricalYields fetches the full lookback window for both series,
// merges, and upserts every derived row. Safe to re-run; existing rows are
// overwritten by date.
func (s *Service) SeedHistoricalYields(ctx context.Context) (int, error) {
	today := s.now().UTC()
	startDate := today.AddDate(-s.opts.LookbackYears, 0, 0).Format(dateLayout)
	endDate := today.Format(dateLayout)

	rows, err := s.fetchAndMerge(ctx, startDate, endDate)
	if err != nil {
		return 0, err
	}

	if err := s.store.UpsertYieldRows(ctx, rows); err != nil {
		return 0, err
	}

	s.logger.Info().Str("start", startDate).Str("end", endDate).
		Int("rows", len(rows)).
		Msg("historical seed complete")
	return len(rows), nil
}

// UpdateRecentYields fetches the trailing refresh window and upserts any
// merge-able rows. The window is wider than one day so weekend and holiday
// gaps still leave something to merge. Skips the write when the merge is
// empty.
func (s *Service) UpdateRecentYields(ctx context.Context) (int, error) {
	today := s.now().UTC()
	startDate := today.AddDate(0, 0, -s.opts.WindowDays).Format(dateLayout)
	endDate := today.Format(dateLayout)

	rows, err := s.fetchAndMerge(ctx, startDate, endDate)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		s.logger.Info().Str("start", startDate).Str("end", endDate).
			Msg("no merge-able observations in refresh window")
		return 0, nil
	}

	if err := s.store.UpsertYieldRows(ctx, rows); err != nil {
		return 0, err
	}

	s.logger.Info().Str("start", startDate).Str("end", endDate).
		Int("rows", len(rows)).
		Msg("recent yields refreshed")

	s.maybeAlert(ctx, rows[len(rows)-1])

	return len(rows), nil
}

// GetYields reads stored rows ascending by date, optionally bounded.
func (s *Service) GetYields(ctx context.Context, startDate, endDate string) ([]storage.YieldRow, error) {
	return s.store.ListYieldRows(ctx, startDate, endDate)
}

func (s *Service) fetchAndMerge(ctx context.Context, startDate, endDate string) ([]storage.YieldRow, error) {
	var treasuryMap, muniMap map[string]float64

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		treasuryMap, err = s.fetcher.FetchSeries(groupCtx, s.opts.TreasurySeries, startDate, endDate)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", s.opts.TreasurySeries, err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		muniMap, err = s.fetcher.FetchSeries(groupCtx, s.opts.MuniSeries, startDate, endDate)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", s.opts.MuniSeries, err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return pipeline.Merge(treasuryMap, muniMap), nil
}

// maybeAlert dispatches a spread alert for the given row when alerting is
// enabled and the absolute spread crosses the configured threshold.
// Notification failures are logged, never propagated.
func (s *Service) maybeAlert(ctx context.Context, row storage.YieldRow) {
	if !s.opts.AlertsEnabled || s.notifier == nil || s.opts.ThresholdBps <= 0 {
		return
	}
	if math.Abs(row.SpreadBps) < s.opts.ThresholdBps {
		return
	}

	note := alerting.Notification{
		Date:         row.Date,
		Treasury10Y:  row.Treasury10Y,
		MuniYield:    row.MuniYield,
		Spread:       row.Spread,
		SpreadBps:    row.SpreadBps,
		ThresholdBps: s.opts.ThresholdBps,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("date", row.Date).Msg("failed to dispatch spread alert")
	}
}
