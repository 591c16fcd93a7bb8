package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS daily_price (
    code        TEXT           NOT NULL,
    date        DATE           NOT NULL,
    open        NUMERIC(18,6),
    high        NUMERIC(18,6),
    low         NUMERIC(18,6),
    close       NUMERIC(18,6)  NOT NULL,
    amount      NUMERIC(24,2),
    update_time TIMESTAMPTZ    NOT NULL DEFAULT now(),
    PRIMARY KEY (code, date)
);
CREATE INDEX IF NOT EXISTS idx_date ON daily_price(date);

CREATE TABLE IF NOT EXISTS signal_runs (
    id               UUID PRIMARY KEY,
    created_at       TIMESTAMPTZ      NOT NULL,
    hl_code          TEXT             NOT NULL,
    benchmark_code   TEXT             NOT NULL,
    source           TEXT             NOT NULL DEFAULT '',
    return_period    INTEGER          NOT NULL,
    buy_threshold    DOUBLE PRECISION NOT NULL,
    sell_threshold   DOUBLE PRECISION NOT NULL,
    latest_date      DATE,
    latest_diff      DOUBLE PRECISION NOT NULL DEFAULT 0,
    signal           TEXT             NOT NULL,
    observations     INTEGER          NOT NULL DEFAULT 0,
    has_backtest     BOOLEAN          NOT NULL DEFAULT FALSE,
    checkpoints      INTEGER          NOT NULL DEFAULT 0,
    final_return     DOUBLE PRECISION NOT NULL DEFAULT 0,
    benchmark_return DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON signal_runs(created_at DESC);
`

// PostgresStorage implementa ports.PriceStore y ports.RunStore sobre PostgreSQL.
// Los precios se guardan como NUMERIC y viajan como decimal.Decimal.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

var (
	_ ports.PriceStore = (*PostgresStorage)(nil)
	_ ports.RunStore   = (*PostgresStorage)(nil)
)

// NewPostgresStorage conecta, verifica la conexión y aplica el schema.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: parse config: %w", err)
	}
	// Registrar shopspring decimal para NUMERIC
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: apply schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

// SaveBars hace upsert en un batch dentro de una transacción.
func (s *PostgresStorage) SaveBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, b := range bars {
		if !domain.ValidPrice(b.Close) {
			continue
		}
		batch.Queue(`
			INSERT INTO daily_price (code, date, open, high, low, close, amount, update_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (code, date) DO UPDATE SET
				open        = EXCLUDED.open,
				high        = EXCLUDED.high,
				low         = EXCLUDED.low,
				close       = EXCLUDED.close,
				amount      = EXCLUDED.amount,
				update_time = EXCLUDED.update_time`,
			b.Code, domain.TradingDay(b.Date),
			nullDecimal(b.Open), nullDecimal(b.High), nullDecimal(b.Low),
			decimal.NewFromFloat(b.Close), nullDecimal(b.Amount),
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("storage.SaveBars: batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage.SaveBars: commit: %w", err)
	}
	return nil
}

// LoadBars devuelve las barras de code en [from, to] ordenadas por fecha.
func (s *PostgresStorage) LoadBars(ctx context.Context, code string, from, to time.Time) ([]domain.Bar, error) {
	query := `SELECT code, date, open, high, low, close, amount FROM daily_price WHERE code = $1 AND date >= $2`
	args := []any{code, domain.TradingDay(from)}
	if !to.IsZero() {
		query += ` AND date <= $3`
		args = append(args, domain.TradingDay(to))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadBars: query: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b                       domain.Bar
			closePrice              decimal.Decimal
			open, high, low, amount decimal.NullDecimal
		)
		if err := rows.Scan(&b.Code, &b.Date, &open, &high, &low, &closePrice, &amount); err != nil {
			return nil, fmt.Errorf("storage.LoadBars: scan: %w", err)
		}
		b.Date = domain.TradingDay(b.Date)
		b.Close = closePrice.InexactFloat64()
		b.Open, b.High, b.Low, b.Amount = floatOrNaN(open), floatOrNaN(high), floatOrNaN(low), floatOrNaN(amount)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestDate devuelve la última fecha guardada para code, o zero time.
func (s *PostgresStorage) LatestDate(ctx context.Context, code string) (time.Time, error) {
	var latest *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(date) FROM daily_price WHERE code = $1`, code).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("storage.LatestDate: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return domain.TradingDay(*latest), nil
}

// DeleteDate borra todas las barras de una fecha.
func (s *PostgresStorage) DeleteDate(ctx context.Context, date time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM daily_price WHERE date = $1`, domain.TradingDay(date))
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteDate: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DateCounts devuelve el número de códigos por fecha, más reciente primero.
func (s *PostgresStorage) DateCounts(ctx context.Context, limit int) ([]ports.DateCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT date, COUNT(*) FROM daily_price
		GROUP BY date ORDER BY date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.DateCounts: query: %w", err)
	}
	defer rows.Close()

	var out []ports.DateCount
	for rows.Next() {
		var (
			dc    ports.DateCount
			count int64
		)
		if err := rows.Scan(&dc.Date, &count); err != nil {
			return nil, fmt.Errorf("storage.DateCounts: scan: %w", err)
		}
		dc.Date = domain.TradingDay(dc.Date)
		dc.Codes = int(count)
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Codes devuelve los códigos guardados, ordenados.
func (s *PostgresStorage) Codes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT code FROM daily_price ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("storage.Codes: query: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("storage.Codes: collect: %w", err)
	}
	return codes, nil
}

// SaveRun persiste el resumen de una ejecución.
func (s *PostgresStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	var latest *time.Time
	if !run.LatestDate.IsZero() {
		d := domain.TradingDay(run.LatestDate)
		latest = &d
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO signal_runs
			(id, created_at, hl_code, benchmark_code, source, return_period,
			 buy_threshold, sell_threshold, latest_date, latest_diff, signal,
			 observations, has_backtest, checkpoints, final_return, benchmark_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		run.ID, run.CreatedAt.UTC(), run.HLCode, run.BenchmarkCode, run.Source, run.Params.Period,
		run.Params.Buy, run.Params.Sell, latest, run.LatestDiff, run.Signal.String(),
		run.Observations, run.HasBacktest, run.Checkpoints, run.FinalReturn, run.BenchmarkReturn,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns devuelve las últimas ejecuciones, más reciente primero.
func (s *PostgresStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, created_at, hl_code, benchmark_code, source, return_period,
		       buy_threshold, sell_threshold, latest_date, latest_diff, signal,
		       observations, has_backtest, checkpoints, final_return, benchmark_return
		FROM signal_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var (
			r      domain.RunRecord
			latest *time.Time
			sig    string
		)
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.HLCode, &r.BenchmarkCode, &r.Source, &r.Params.Period,
			&r.Params.Buy, &r.Params.Sell, &latest, &r.LatestDiff, &sig,
			&r.Observations, &r.HasBacktest, &r.Checkpoints, &r.FinalReturn, &r.BenchmarkReturn,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan: %w", err)
		}
		if latest != nil {
			r.LatestDate = domain.TradingDay(*latest)
		}
		if r.Signal, err = domain.ParseSignal(sig); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("storage.ListRuns: %w", err)
	}
	return runs, nil
}

// Close cierra el pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func nullDecimal(v float64) decimal.NullDecimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

func floatOrNaN(v decimal.NullDecimal) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Decimal.InexactFloat64()
}
