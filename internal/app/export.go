package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"yieldwatcher/internal/storage"
)

// Export renders stored yield rows as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, err := store.ListYieldRows(ctx, opts.From, opts.To)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		a.Logger.Info().Msg("no rows found for export window")
		return nil
	}

	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().Int("total", len(rows)).Int("exported", len(downsampled)).Msg("exporting rows")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRows(rows []storage.YieldRow, max int) []storage.YieldRow {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]storage.YieldRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path string, rows []storage.YieldRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "treasury_10y", "muni_yield", "spread", "spread_bps", "muni_treasury_ratio"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			formatFloat(row.Treasury10Y),
			formatFloat(row.MuniYield),
			formatFloat(row.Spread),
			formatFloat(row.SpreadBps),
			formatFloat(row.MuniTreasuryRatio),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path string, rows []storage.YieldRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(rows))
	treasury := make([]float64, len(rows))
	muni := make([]float64, len(rows))
	spreadBps := make([]float64, len(rows))

	for i, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return err
		}
		x[i] = date
		treasury[i] = row.Treasury10Y
		muni[i] = row.MuniYield
		spreadBps[i] = row.SpreadBps
	}

	yieldFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Yield (%)",
			ValueFormatter: yieldFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Spread (bps)",
			ValueFormatter: yieldFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "10Y Treasury",
				XValues: x,
				YValues: treasury,
			},
			chart.TimeSeries{
				Name:    "AAA Muni",
				XValues: x,
				YValues: muni,
			},
			chart.TimeSeries{
				Name:    "Spread (bps)",
				XValues: x,
				YValues: spreadBps,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
