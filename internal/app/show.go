package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Show prints the most recent stored yield rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, err := store.ListRecentYieldRows(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no yield rows found")
		return nil
	}

	total, err := store.CountYieldRows(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\t10Y Treasury\tAAA Muni\tSpread\tSpread (bps)\tRatio")

	for _, row := range rows {
		fmt.Fprintf(
			writer,
			"%s\t%.2f\t%.2f\t%.4f\t%.2f\t%.4f\n",
			row.Date,
			row.Treasury10Y,
			row.MuniYield,
			row.Spread,
			row.SpreadBps,
			row.MuniTreasuryRatio,
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "%d of %d rows\n", len(rows), total)
	return nil
}
