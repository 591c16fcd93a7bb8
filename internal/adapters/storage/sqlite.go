package storage

// sqlite.go: histórico diario de precios y registro de ejecuciones.
//
// Estrategia:
//   - `daily_price`: una fila por (code, date). Re-descargar una fecha la reemplaza
//     (UPSERT), así que el store siempre refleja la última versión de la fuente.
//   - `signal_runs`: una fila por ejecución, con la señal y el resumen del backtest.
//   - Las fechas se guardan como TEXT YYYY-MM-DD para que ordenar y comparar sea trivial.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Precios diarios por instrumento
CREATE TABLE IF NOT EXISTS daily_price (
    code        TEXT NOT NULL,
    date        TEXT NOT NULL,
    open        REAL,
    high        REAL,
    low         REAL,
    close       REAL NOT NULL,
    amount      REAL,
    update_time DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (code, date)
);

-- Una fila por ejecución de señal
CREATE TABLE IF NOT EXISTS signal_runs (
    id               TEXT PRIMARY KEY,
    created_at       TEXT     NOT NULL,
    hl_code          TEXT     NOT NULL,
    benchmark_code   TEXT     NOT NULL,
    source           TEXT,
    return_period    INTEGER  NOT NULL,
    buy_threshold    REAL     NOT NULL,
    sell_threshold   REAL     NOT NULL,
    latest_date      TEXT,
    latest_diff      REAL     NOT NULL DEFAULT 0,
    signal           TEXT     NOT NULL,
    observations     INTEGER  NOT NULL DEFAULT 0,
    has_backtest     INTEGER  NOT NULL DEFAULT 0,
    checkpoints      INTEGER  NOT NULL DEFAULT 0,
    final_return     REAL     NOT NULL DEFAULT 0,
    benchmark_return REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_code_date    ON daily_price(code, date);
CREATE INDEX IF NOT EXISTS idx_date         ON daily_price(date);
CREATE INDEX IF NOT EXISTS idx_runs_created ON signal_runs(created_at DESC);
`

// runTimeLayout tiene ancho fijo para que ORDER BY created_at sea cronológico.
const runTimeLayout = "2006-01-02 15:04:05.000000"

// SQLiteStorage implementa ports.PriceStore y ports.RunStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var (
	_ ports.PriceStore = (*SQLiteStorage)(nil)
	_ ports.RunStore   = (*SQLiteStorage)(nil)
)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveBars hace upsert de las barras en una transacción.
// Las barras con cierre inválido no se persisten.
func (s *SQLiteStorage) SaveBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_price (code, date, open, high, low, close, amount, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, date) DO UPDATE SET
			open        = excluded.open,
			high        = excluded.high,
			low         = excluded.low,
			close       = excluded.close,
			amount      = excluded.amount,
			update_time = excluded.update_time
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	skipped := 0
	for _, b := range bars {
		if !domain.ValidPrice(b.Close) {
			skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			b.Code,
			b.Date.Format(domain.DateLayout),
			nullable(b.Open),
			nullable(b.High),
			nullable(b.Low),
			b.Close,
			nullable(b.Amount),
			now,
		); err != nil {
			return fmt.Errorf("storage.SaveBars: upsert %s %s: %w", b.Code, b.Date.Format(domain.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveBars: commit: %w", err)
	}
	if skipped > 0 {
		slog.Debug("bars with unusable close not stored", "skipped", skipped)
	}
	return nil
}

// LoadBars devuelve las barras de code en [from, to] ordenadas por fecha.
func (s *SQLiteStorage) LoadBars(ctx context.Context, code string, from, to time.Time) ([]domain.Bar, error) {
	query := `SELECT code, date, open, high, low, close, amount FROM daily_price WHERE code = ? AND date >= ?`
	args := []any{code, from.Format(domain.DateLayout)}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.Format(domain.DateLayout))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadBars: query: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b                       domain.Bar
			date                    string
			open, high, low, amount sql.NullFloat64
		)
		if err := rows.Scan(&b.Code, &date, &open, &high, &low, &b.Close, &amount); err != nil {
			return nil, fmt.Errorf("storage.LoadBars: scan: %w", err)
		}
		b.Date, err = time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadBars: parse date %q: %w", date, err)
		}
		b.Open, b.High, b.Low, b.Amount = orNaN(open), orNaN(high), orNaN(low), orNaN(amount)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LatestDate devuelve la última fecha guardada para code, o zero time.
func (s *SQLiteStorage) LatestDate(ctx context.Context, code string) (time.Time, error) {
	var date sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM daily_price WHERE code = ?`, code,
	).Scan(&date); err != nil {
		return time.Time{}, fmt.Errorf("storage.LatestDate: %w", err)
	}
	if !date.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, date.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage.LatestDate: parse %q: %w", date.String, err)
	}
	return t, nil
}

// DeleteDate borra todas las barras de una fecha (rollback de un día de descarga).
func (s *SQLiteStorage) DeleteDate(ctx context.Context, date time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM daily_price WHERE date = ?`, date.Format(domain.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteDate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteDate: rows affected: %w", err)
	}
	return n, nil
}

// DateCounts devuelve el número de códigos por fecha, más reciente primero.
func (s *SQLiteStorage) DateCounts(ctx context.Context, limit int) ([]ports.DateCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, COUNT(*) FROM daily_price
		GROUP BY date ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.DateCounts: query: %w", err)
	}
	defer rows.Close()

	var out []ports.DateCount
	for rows.Next() {
		var (
			date string
			dc   ports.DateCount
		)
		if err := rows.Scan(&date, &dc.Codes); err != nil {
			return nil, fmt.Errorf("storage.DateCounts: scan: %w", err)
		}
		if dc.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("storage.DateCounts: parse %q: %w", date, err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Codes devuelve los códigos guardados, ordenados.
func (s *SQLiteStorage) Codes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT code FROM daily_price ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("storage.Codes: query: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("storage.Codes: scan: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// SaveRun persiste el resumen de una ejecución.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	var latest *string
	if !run.LatestDate.IsZero() {
		d := run.LatestDate.Format(domain.DateLayout)
		latest = &d
	}
	hasBT := 0
	if run.HasBacktest {
		hasBT = 1
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_runs
			(id, created_at, hl_code, benchmark_code, source, return_period,
			 buy_threshold, sell_threshold, latest_date, latest_diff, signal,
			 observations, has_backtest, checkpoints, final_return, benchmark_return)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(runTimeLayout), run.HLCode, run.BenchmarkCode, run.Source,
		run.Params.Period, run.Params.Buy, run.Params.Sell,
		latest, run.LatestDiff, run.Signal.String(),
		run.Observations, hasBT, run.Checkpoints, run.FinalReturn, run.BenchmarkReturn,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns devuelve las últimas ejecuciones, más reciente primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, hl_code, benchmark_code, COALESCE(source, ''), return_period,
		       buy_threshold, sell_threshold, latest_date, latest_diff, signal,
		       observations, has_backtest, checkpoints, final_return, benchmark_return
		FROM signal_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var (
			r       domain.RunRecord
			created string
			latest  sql.NullString
			sig     string
			hasBT   int
		)
		if err := rows.Scan(
			&r.ID, &created, &r.HLCode, &r.BenchmarkCode, &r.Source, &r.Params.Period,
			&r.Params.Buy, &r.Params.Sell, &latest, &r.LatestDiff, &sig,
			&r.Observations, &hasBT, &r.Checkpoints, &r.FinalReturn, &r.BenchmarkReturn,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan: %w", err)
		}
		if r.CreatedAt, err = time.Parse(runTimeLayout, created); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: parse created_at %q: %w", created, err)
		}
		if latest.Valid {
			if r.LatestDate, err = time.Parse(domain.DateLayout, latest.String); err != nil {
				return nil, fmt.Errorf("storage.ListRuns: parse %q: %w", latest.String, err)
			}
		}
		if r.Signal, err = domain.ParseSignal(sig); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: %w", err)
		}
		r.HasBacktest = hasBT == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close cierra la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// nullable convierte NaN/Inf en NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
