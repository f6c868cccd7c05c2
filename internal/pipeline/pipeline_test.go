package pipeline

import (
	"math"
	"sort"
	"testing"
)

func TestMergeIntersectionOnly(t *testing.T) {
	treasury := map[string]float64{
		"2024-01-02": 4.0,
		"2024-01-03": 4.1,
		"2024-01-05": 4.2,
	}
	muni := map[string]float64{
		"2024-01-02": 3.5,
		"2024-01-04": 3.6,
		"2024-01-05": 3.7,
	}

	rows := Merge(treasury, muni)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2024-01-02" || rows[1].Date != "2024-01-05" {
		t.Fatalf("unexpected dates: %s, %s", rows[0].Date, rows[1].Date)
	}
}

func TestMergeScenario(t *testing.T) {
	treasury := map[string]float64{"2024-01-02": 4.0, "2024-01-03": 4.1}
	muni := map[string]float64{"2024-01-02": 3.5}

	rows := Merge(treasury, muni)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}

	row := rows[0]
	if row.Date != "2024-01-02" {
		t.Fatalf("unexpected date %s", row.Date)
	}
	if row.Treasury10Y != 4.0 || row.MuniYield != 3.5 {
		t.Fatalf("raw values not carried through: %+v", row)
	}
	if row.Spread != -0.5 {
		t.Fatalf("spread = %v, want -0.5", row.Spread)
	}
	if row.SpreadBps != -50 {
		t.Fatalf("spread_bps = %v, want -50", row.SpreadBps)
	}
	if row.MuniTreasuryRatio != 87.5 {
		t.Fatalf("ratio = %v, want 87.5", row.MuniTreasuryRatio)
	}
}

func TestMergeEmptyIntersection(t *testing.T) {
	rows := Merge(map[string]float64{"2024-01-02": 4.0}, map[string]float64{"2024-01-03": 3.5})
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(rows))
	}

	rows = Merge(nil, nil)
	if len(rows) != 0 {
		t.Fatalf("expected empty result for nil inputs, got %d rows", len(rows))
	}
}

func TestMergeRounding(t *testing.T) {
	// 3.3333 - 4.1111 = -0.7778 exactly; ratio needs rounding at 4 places.
	treasury := map[string]float64{"2024-02-01": 4.1111}
	muni := map[string]float64{"2024-02-01": 3.3333}

	rows := Merge(treasury, muni)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}

	row := rows[0]
	if row.Spread != -0.7778 {
		t.Fatalf("spread = %v, want -0.7778", row.Spread)
	}
	if row.SpreadBps != -77.78 {
		t.Fatalf("spread_bps = %v, want -77.78", row.SpreadBps)
	}
	// 3.3333/4.1111*100 = 81.08046... -> 81.0805
	if math.Abs(row.MuniTreasuryRatio-81.0805) > 1e-9 {
		t.Fatalf("ratio = %v, want 81.0805", row.MuniTreasuryRatio)
	}
}

func TestMergeZeroTreasuryYield(t *testing.T) {
	treasury := map[string]float64{"2024-03-01": 0.0, "2024-03-04": 4.0}
	muni := map[string]float64{"2024-03-01": 3.5, "2024-03-04": 3.5}

	rows := Merge(treasury, muni)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	row := rows[0]
	if row.Date != "2024-03-01" {
		t.Fatalf("unexpected date %s", row.Date)
	}
	if row.Spread != 3.5 || row.SpreadBps != 350 {
		t.Fatalf("spread fields wrong for zero treasury: %+v", row)
	}
	if row.MuniTreasuryRatio != 0 {
		t.Fatalf("ratio for zero treasury = %v, want 0", row.MuniTreasuryRatio)
	}

	if rows[1].MuniTreasuryRatio != 87.5 {
		t.Fatalf("ratio for nonzero treasury = %v, want 87.5", rows[1].MuniTreasuryRatio)
	}
}

func TestMergeOrderedAscending(t *testing.T) {
	treasury := map[string]float64{}
	muni := map[string]float64{}
	dates := []string{"2023-12-29", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	for _, d := range dates {
		treasury[d] = 4.0
		muni[d] = 3.5
	}

	rows := Merge(treasury, muni)
	if len(rows) != len(dates) {
		t.Fatalf("expected %d rows, got %d", len(dates), len(rows))
	}
	if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date }) {
		t.Fatal("rows must be ascending by date")
	}
}
