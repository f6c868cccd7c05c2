package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// upsertChunkSize caps rows per write round-trip.
const upsertChunkSize = 500

const (
	upsertYieldRowSQL = `INSERT INTO yield_data (
        date,
        treasury_10y,
        muni_yield,
        spread,
        spread_bps,
        muni_treasury_ratio
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (date) DO UPDATE
    SET
        treasury_10y        = EXCLUDED.treasury_10y,
        muni_yield          = EXCLUDED.muni_yield,
        spread              = EXCLUDED.spread,
        spread_bps          = EXCLUDED.spread_bps,
        muni_treasury_ratio = EXCLUDED.muni_treasury_ratio;`

	listYieldRowsSQL = `SELECT
        date,
        treasury_10y,
        muni_yield,
        spread,
        spread_bps,
        muni_treasury_ratio
    FROM yield_data
    WHERE ($1::date IS NULL OR date >= $1::date)
      AND ($2::date IS NULL OR date <= $2::date)
    ORDER BY date;`

	listRecentYieldRowsSQL = `SELECT
        date,
        treasury_10y,
        muni_yield,
        spread,
        spread_bps,
        muni_treasury_ratio
    FROM yield_data
    ORDER BY date DESC
    LIMIT $1;`

	countYieldRowsSQL = `SELECT COUNT(*) FROM yield_data;`
)

// YieldStore defines operations for yield row persistence.
type YieldStore interface {
	UpsertYieldRows(ctx context.Context, rows []YieldRow) error
	ListYieldRows(ctx context.Context, startDate, endDate string) ([]YieldRow, error)
	ListRecentYieldRows(ctx context.Context, limit int) ([]YieldRow, error)
	CountYieldRows(ctx context.Context) (int64, error)
}

// batchSender issues a batch round-trip. Satisfied by *pgxpool.Pool.
type batchSender interface {
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
}

// Store persists yield rows in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	sender batchSender
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	if pool != nil {
		s.sender = pool
	}
	return s
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

func (s *Store) getSender() (batchSender, error) {
	if s == nil || s.sender == nil {
		return nil, ErrNotConfigured
	}
	return s.sender, nil
}

// UpsertYieldRows writes rows in chunks of at most 500, one batched
// round-trip per chunk, sequentially. A failed chunk aborts the remainder;
// chunks already committed are not rolled back.
func (s *Store) UpsertYieldRows(ctx context.Context, rows []YieldRow) error {
	sender, err := s.getSender()
	if err != nil {
		return err
	}

	for i, chunk := range chunkRows(rows, upsertChunkSize) {
		if err := upsertChunk(ctx, sender, chunk); err != nil {
			return fmt.Errorf("upsert yield rows (chunk %d, %d rows): %w", i, len(chunk), err)
		}
	}
	return nil
}

func upsertChunk(ctx context.Context, sender batchSender, chunk []YieldRow) error {
	batch := &pgx.Batch{}
	for _, row := range chunk {
		batch.Queue(upsertYieldRowSQL,
			row.Date,
			row.Treasury10Y,
			row.MuniYield,
			row.Spread,
			row.SpreadBps,
			row.MuniTreasuryRatio,
		)
	}

	results := sender.SendBatch(ctx, batch)
	defer results.Close()

	for range chunk {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// chunkRows splits rows into consecutive slices of at most size elements.
func chunkRows(rows []YieldRow, size int) [][]YieldRow {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]YieldRow{rows}
	}

	chunks := make([][]YieldRow, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// ListYieldRows returns rows ascending by date. Empty bounds are open.
func (s *Store) ListYieldRows(ctx context.Context, startDate, endDate string) ([]YieldRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var start, end any
	if startDate != "" {
		start = startDate
	}
	if endDate != "" {
		end = endDate
	}

	rows, queryErr := pool.Query(ctx, listYieldRowsSQL, start, end)
	if queryErr != nil {
		return nil, fmt.Errorf("list yield rows: %w", queryErr)
	}
	defer rows.Close()

	return collectYieldRows(rows)
}

// ListRecentYieldRows returns the most recent rows ordered newest first.
func (s *Store) ListRecentYieldRows(ctx context.Context, limit int) ([]YieldRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentYieldRowsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent yield rows: %w", queryErr)
	}
	defer rows.Close()

	return collectYieldRows(rows)
}

// CountYieldRows counts stored rows.
func (s *Store) CountYieldRows(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countYieldRowsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count yield rows: %w", scanErr)
	}
	return count, nil
}

func collectYieldRows(rows pgx.Rows) ([]YieldRow, error) {
	result := make([]YieldRow, 0)
	for rows.Next() {
		row, scanErr := scanYieldRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		result = append(result, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

func scanYieldRow(rows pgx.Rows) (YieldRow, error) {
	var (
		date time.Time
		row  YieldRow
	)
	if err := rows.Scan(
		&date,
		&row.Treasury10Y,
		&row.MuniYield,
		&row.Spread,
		&row.SpreadBps,
		&row.MuniTreasuryRatio,
	); err != nil {
		return YieldRow{}, err
	}
	row.Date = date.Format("2006-01-02")
	return row, nil
}

var _ YieldStore = (*Store)(nil)
