package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// missingValueSentinel is what FRED returns for dates with no observation
// (weekends, holidays, unpublished data).
const missingValueSentinel = "."

// ErrMissingAPIKey indicates the FRED credential was not configured.
var ErrMissingAPIKey = errors.New("fred api key not configured")

// ProviderError wraps a non-success response from the FRED API.
type ProviderError struct {
	SeriesID string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("fred api error for %s (%d)", e.SeriesID, e.Status)
	}
	return fmt.Sprintf("fred api error for %s (%d): %s", e.SeriesID, e.Status, body)
}

// FREDOptions parameterise the FRED fetcher.
type FREDOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// FRED fetches observation series from the FRED REST API.
type FRED struct {
	opts   FREDOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFRED constructs a FRED series fetcher. Option defaults are resolved
// here so opts stays the single source of truth.
func NewFRED(opts FREDOptions, logger zerolog.Logger) *FRED {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.stlouisfed.org/fred/series/observations"
	}

	return &FRED{
		opts:   opts,
		logger: logger.With().Str("component", "fred_fetcher").Logger(),
		client: &http.Client{Timeout: opts.Timeout},
	}
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

// FetchSeries retrieves one series over [startDate, endDate] inclusive.
// Observations carrying the missing-value sentinel are omitted entirely.
func (f *FRED) FetchSeries(ctx context.Context, seriesID, startDate, endDate string) (map[string]float64, error) {
	if f.opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", f.opts.APIKey)
	params.Set("file_type", "json")
	params.Set("observation_start", startDate)
	params.Set("observation_end", endDate)

	endpoint := f.opts.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{SeriesID: seriesID, Status: resp.StatusCode, Body: string(payload)}
	}

	var parsed observationsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse fred response for %s: %w", seriesID, err)
	}

	result := make(map[string]float64, len(parsed.Observations))
	for _, obs := range parsed.Observations {
		if obs.Value == missingValueSentinel {
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse observation %s %s: %w", seriesID, obs.Date, err)
		}
		result[obs.Date] = value
	}

	f.logger.Debug().Str("series", seriesID).
		Str("start", startDate).Str("end", endDate).
		Int("observations", len(result)).
		Msg("series fetched")

	return result, nil
}

var _ SeriesFetcher = (*FRED)(nil)
