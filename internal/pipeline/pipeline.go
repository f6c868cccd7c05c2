// Package pipeline merges two observation mappings by date and derives the
// spread fields persisted per row. It performs no I/O.
package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"yieldwatcher/internal/storage"
)

// Merge computes one YieldRow per date present in both mappings, ascending
// by date. Dates observed in only one series are dropped. An empty result
// is valid when the mappings share no dates.
func Merge(treasury, muni map[string]float64) []storage.YieldRow {
	dates := make([]string, 0, len(treasury))
	for date := range treasury {
		if _, ok := muni[date]; ok {
			dates = append(dates, date)
		}
	}
	// Lexicographic order on YYYY-MM-DD is chronological order.
	sort.Strings(dates)

	rows := make([]storage.YieldRow, 0, len(dates))
	for _, date := range dates {
		rows = append(rows, derive(date, treasury[date], muni[date]))
	}
	return rows
}

func derive(date string, treasury, muni float64) storage.YieldRow {
	t := decimal.NewFromFloat(treasury)
	m := decimal.NewFromFloat(muni)

	spread := m.Sub(t).Round(4)
	spreadBps := spread.Mul(decimal.NewFromInt(100)).Round(2)

	// The ratio is undefined for a zero treasury yield, and shopspring
	// panics on a zero divisor. A "0.00" observation is valid provider
	// input, so store 0 and keep the row.
	ratio := decimal.Zero
	if !t.IsZero() {
		ratio = m.Div(t).Mul(decimal.NewFromInt(100)).Round(4)
	}

	return storage.YieldRow{
		Date:              date,
		Treasury10Y:       treasury,
		MuniYield:         muni,
		Spread:            spread.InexactFloat64(),
		SpreadBps:         spreadBps.InexactFloat64(),
		MuniTreasuryRatio: ratio.InexactFloat64(),
	}
}
