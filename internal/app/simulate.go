package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yieldwatcher/internal/fetcher"
	"yieldwatcher/internal/service"
	"yieldwatcher/internal/storage"
)

// SimulateAlert runs the merge-and-alert flow on a single static observation
// pair without touching FRED or the database.
func (a *App) SimulateAlert(ctx context.Context, treasury, muni float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	date := time.Now().UTC().Format("2006-01-02")
	static := &staticSeriesFetcher{values: map[string]map[string]float64{
		a.Config.FRED.TreasurySeries: {date: treasury},
		a.Config.FRED.MuniSeries:     {date: muni},
	}}

	svc := service.New(a.serviceOptions(), static, discardStore{}, notifier, a.Logger)

	written, err := svc.UpdateRecentYields(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("simulated %d row(s) for %s\n", written, date)
	return nil
}

type staticSeriesFetcher struct {
	values map[string]map[string]float64
}

func (s *staticSeriesFetcher) FetchSeries(ctx context.Context, seriesID, startDate, endDate string) (map[string]float64, error) {
	return s.values[seriesID], nil
}

var _ fetcher.SeriesFetcher = (*staticSeriesFetcher)(nil)

// discardStore satisfies storage.YieldStore without persisting anything.
type discardStore struct{}

func (discardStore) UpsertYieldRows(ctx context.Context, rows []storage.YieldRow) error {
	return nil
}

func (discardStore) ListYieldRows(ctx context.Context, startDate, endDate string) ([]storage.YieldRow, error) {
	return nil, nil
}

func (discardStore) ListRecentYieldRows(ctx context.Context, limit int) ([]storage.YieldRow, error) {
	return nil, nil
}

func (discardStore) CountYieldRows(ctx context.Context) (int64, error) {
	return 0, nil
}

var _ storage.YieldStore = discardStore{}
