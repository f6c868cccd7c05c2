package storage

// YieldRow is a persisted per-date yield observation with derived spread
// fields. Date is the primary key, formatted YYYY-MM-DD.
type YieldRow struct {
	Date              string  `json:"date"`
	Treasury10Y       float64 `json:"treasury_10y"`
	MuniYield         float64 `json:"muni_yield"`
	Spread            float64 `json:"spread"`
	SpreadBps         float64 `json:"spread_bps"`
	MuniTreasuryRatio float64 `json:"muni_treasury_ratio"`
}
