package fetcher

import "context"

// SeriesFetcher retrieves one named observation series over a date range.
// The result maps YYYY-MM-DD dates to observed values; dates without an
// observation are absent from the map.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, seriesID, startDate, endDate string) (map[string]float64, error)
}
