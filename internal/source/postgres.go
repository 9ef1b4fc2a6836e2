package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xau-data/internal/faults"
	"xau-data/internal/model"
)

const barsQuery = `
	SELECT ts, open, high, low, close, volume
	FROM market.timeframe_1m
	WHERE instrument_id = $1 AND ts > $2
	ORDER BY ts ASC`

// PostgresFetcher reads new bars from the operational market schema:
// market.instruments resolves the symbol, market.timeframe_1m holds the bars.
type PostgresFetcher struct {
	pool   *pgxpool.Pool
	symbol string
}

// NewPostgresFetcher connects to the database and verifies the connection.
func NewPostgresFetcher(ctx context.Context, url, symbol string) (*PostgresFetcher, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &faults.ConnectionError{Target: "postgres", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &faults.ConnectionError{Target: "postgres", Err: err}
	}
	return &PostgresFetcher{pool: pool, symbol: symbol}, nil
}

func (f *PostgresFetcher) Name() string { return "postgres" }

func (f *PostgresFetcher) Close() error {
	f.pool.Close()
	return nil
}

// FetchSince returns every bar of the configured symbol strictly after
// cutoff, ascending. An unknown symbol is a precondition failure, not a
// connection one.
func (f *PostgresFetcher) FetchSince(ctx context.Context, cutoff time.Time) ([]model.Bar, error) {
	var instrumentID int64
	err := f.pool.QueryRow(ctx,
		`SELECT id FROM market.instruments WHERE symbol = $1`, f.symbol,
	).Scan(&instrumentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.Preconditionf("instrument %s not found in database", f.symbol)
	}
	if err != nil {
		return nil, &faults.ConnectionError{Target: "postgres", Err: err}
	}

	rows, err := f.pool.Query(ctx, barsQuery, instrumentID, cutoff)
	if err != nil {
		return nil, &faults.ConnectionError{Target: "postgres", Err: err}
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, &faults.ParseError{Field: "row", Value: "timeframe_1m", Err: err}
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &faults.ConnectionError{Target: "postgres", Err: err}
	}
	return bars, nil
}
