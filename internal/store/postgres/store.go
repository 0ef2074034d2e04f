// Package postgres archives fetched bars in PostgreSQL through the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"rsibot/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const upsertBar = `
	INSERT INTO rsibot.bars (symbol, interval, ts, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (symbol, interval, ts) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`

// Store is a PostgreSQL bar archive.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, pings, and creates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	slog.Info("[postgres] connected bar archive")
	return s, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE SCHEMA IF NOT EXISTS rsibot;
		CREATE TABLE IF NOT EXISTS rsibot.bars (
			symbol   TEXT             NOT NULL,
			interval TEXT             NOT NULL,
			ts       TIMESTAMPTZ      NOT NULL,
			open     DOUBLE PRECISION NOT NULL,
			high     DOUBLE PRECISION NOT NULL,
			low      DOUBLE PRECISION NOT NULL,
			close    DOUBLE PRECISION NOT NULL,
			volume   DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, interval, ts)
		);
	`)
	return err
}

// SaveBars upserts bars with a single pgx batch on a dedicated connection.
func (s *Store) SaveBars(ctx context.Context, symbol, interval string, bars model.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("postgres conn: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		pc := driverConn.(*stdlib.Conn).Conn()

		batch := &pgx.Batch{}
		for _, b := range bars {
			batch.Queue(upsertBar, symbol, interval, b.TS.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		return pc.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres upsert %s: %w", symbol, err)
	}

	slog.Debug("[postgres] saved bars", "symbol", symbol, "interval", interval, "count", len(bars), "took", time.Since(start))
	return nil
}

// ReadBars returns archived bars in [req.From, req.To) ordered by ts.
func (s *Store) ReadBars(ctx context.Context, req model.BarRequest) (model.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM rsibot.bars
		WHERE symbol = $1 AND interval = $2 AND ts >= $3 AND ts < $4
		ORDER BY ts ASC
	`, req.Symbol, req.Interval, req.From.UTC(), req.To.UTC())
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	var out model.PriceSeries
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.TS, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		b.TS = b.TS.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Ping implements metrics.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
