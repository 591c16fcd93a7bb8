package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	"github.com/parquet-go/parquet-go"
)

var (
	_ ports.PriceStore = (*ParquetStore)(nil)
	_ ports.RunStore   = (*ParquetStore)(nil)
)

// ParquetStore guarda las barras en ficheros Parquet por código y año:
//
//	<DataDir>/daily/<CODE>/<YYYY>.parquet
//
// y las ejecuciones en <DataDir>/runs.parquet.
type ParquetStore struct {
	DataDir string
	mu      sync.Mutex
}

// NewParquetStore crea el store con raíz en dataDir.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// BarRecord es el schema en disco de una barra diaria.
type BarRecord struct {
	Code      string  `parquet:"code"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, medianoche UTC
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Amount    float64 `parquet:"amount"`
}

// RunRecord es el schema en disco de una ejecución.
type RunRecord struct {
	ID              string  `parquet:"id"`
	CreatedAt       int64   `parquet:"created_at,timestamp(millisecond)"`
	HLCode          string  `parquet:"hl_code"`
	BenchmarkCode   string  `parquet:"benchmark_code"`
	Source          string  `parquet:"source"`
	Period          int64   `parquet:"return_period"`
	BuyThreshold    float64 `parquet:"buy_threshold"`
	SellThreshold   float64 `parquet:"sell_threshold"`
	LatestDate      int64   `parquet:"latest_date,timestamp(millisecond)"` // 0 si no hubo diferencial
	LatestDiff      float64 `parquet:"latest_diff"`
	Signal          string  `parquet:"signal"`
	Observations    int64   `parquet:"observations"`
	HasBacktest     bool    `parquet:"has_backtest"`
	Checkpoints     int64   `parquet:"checkpoints"`
	FinalReturn     float64 `parquet:"final_return"`
	BenchmarkReturn float64 `parquet:"benchmark_return"`
}

// SaveBars agrupa por (código, año) y fusiona con el fichero existente.
// En fechas repetidas gana la barra nueva.
func (s *ParquetStore) SaveBars(_ context.Context, bars []domain.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type fileKey struct {
		code string
		year int
	}
	groups := make(map[fileKey][]BarRecord)
	for _, b := range bars {
		if !domain.ValidPrice(b.Close) {
			continue
		}
		day := domain.TradingDay(b.Date)
		k := fileKey{b.Code, day.Year()}
		groups[k] = append(groups[k], BarRecord{
			Code:      b.Code,
			Timestamp: day.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Amount:    b.Amount,
		})
	}

	for k, incoming := range groups {
		path := s.barPath(k.code, k.year)
		existing, err := readParquetFile[BarRecord](path)
		if err != nil {
			return fmt.Errorf("storage.SaveBars: read %s: %w", path, err)
		}
		if err := writeParquetFile(path, mergeBarRecords(existing, incoming)); err != nil {
			return fmt.Errorf("storage.SaveBars: write %s: %w", path, err)
		}
	}
	return nil
}

// LoadBars lee los ficheros anuales que cubren [from, to].
func (s *ParquetStore) LoadBars(_ context.Context, code string, from, to time.Time) ([]domain.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	years, err := s.years(code)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadBars: %w", err)
	}

	from = domain.TradingDay(from)
	var bars []domain.Bar
	for _, y := range years {
		if y < from.Year() || (!to.IsZero() && y > to.Year()) {
			continue
		}
		records, err := readParquetFile[BarRecord](s.barPath(code, y))
		if err != nil {
			return nil, fmt.Errorf("storage.LoadBars: %w", err)
		}
		for _, r := range records {
			b := r.bar()
			if b.Date.Before(from) || (!to.IsZero() && b.Date.After(domain.TradingDay(to))) {
				continue
			}
			bars = append(bars, b)
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// LatestDate devuelve la última fecha guardada para code. Recorre los años
// de más reciente a más antiguo: DeleteDate puede dejar un fichero vacío.
func (s *ParquetStore) LatestDate(_ context.Context, code string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	years, err := s.years(code)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage.LatestDate: %w", err)
	}
	for i := len(years) - 1; i >= 0; i-- {
		records, err := readParquetFile[BarRecord](s.barPath(code, years[i]))
		if err != nil {
			return time.Time{}, fmt.Errorf("storage.LatestDate: %w", err)
		}
		var latest time.Time
		for _, r := range records {
			if d := r.bar().Date; d.After(latest) {
				latest = d
			}
		}
		if !latest.IsZero() {
			return latest, nil
		}
	}
	return time.Time{}, nil
}

// DeleteDate reescribe el fichero del año afectado de cada código sin esa fecha.
func (s *ParquetStore) DeleteDate(_ context.Context, date time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.codes()
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteDate: %w", err)
	}
	ts := domain.TradingDay(date).UnixMilli()

	var deleted int64
	for _, code := range codes {
		path := s.barPath(code, date.Year())
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return deleted, fmt.Errorf("storage.DeleteDate: %w", err)
		}
		kept := records[:0]
		for _, r := range records {
			if r.Timestamp == ts {
				deleted++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == len(records) {
			continue
		}
		if err := writeParquetFile(path, kept); err != nil {
			return deleted, fmt.Errorf("storage.DeleteDate: write %s: %w", path, err)
		}
	}
	return deleted, nil
}

// DateCounts recorre todos los ficheros; pensado para archivos pequeños.
func (s *ParquetStore) DateCounts(_ context.Context, limit int) ([]ports.DateCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	codes, err := s.codes()
	if err != nil {
		return nil, fmt.Errorf("storage.DateCounts: %w", err)
	}

	counts := make(map[int64]int)
	for _, code := range codes {
		years, err := s.years(code)
		if err != nil {
			return nil, fmt.Errorf("storage.DateCounts: %w", err)
		}
		for _, y := range years {
			records, err := readParquetFile[BarRecord](s.barPath(code, y))
			if err != nil {
				return nil, fmt.Errorf("storage.DateCounts: %w", err)
			}
			for _, r := range records {
				counts[r.Timestamp]++
			}
		}
	}

	out := make([]ports.DateCount, 0, len(counts))
	for ts, n := range counts {
		out = append(out, ports.DateCount{Date: time.UnixMilli(ts).UTC(), Codes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Codes lista los directorios de código existentes.
func (s *ParquetStore) Codes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes()
}

// SaveRun añade la ejecución a runs.parquet.
func (s *ParquetStore) SaveRun(_ context.Context, run domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.DataDir, "runs.parquet")
	existing, err := readParquetFile[RunRecord](path)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: read %s: %w", path, err)
	}

	rec := RunRecord{
		ID:              run.ID,
		CreatedAt:       run.CreatedAt.UnixMilli(),
		HLCode:          run.HLCode,
		BenchmarkCode:   run.BenchmarkCode,
		Source:          run.Source,
		Period:          int64(run.Params.Period),
		BuyThreshold:    run.Params.Buy,
		SellThreshold:   run.Params.Sell,
		LatestDiff:      run.LatestDiff,
		Signal:          run.Signal.String(),
		Observations:    int64(run.Observations),
		HasBacktest:     run.HasBacktest,
		Checkpoints:     int64(run.Checkpoints),
		FinalReturn:     run.FinalReturn,
		BenchmarkReturn: run.BenchmarkReturn,
	}
	if !run.LatestDate.IsZero() {
		rec.LatestDate = domain.TradingDay(run.LatestDate).UnixMilli()
	}

	if err := writeParquetFile(path, append(existing, rec)); err != nil {
		return fmt.Errorf("storage.SaveRun: write %s: %w", path, err)
	}
	return nil
}

// ListRuns devuelve las últimas ejecuciones, más reciente primero.
func (s *ParquetStore) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	records, err := readParquetFile[RunRecord](filepath.Join(s.DataDir, "runs.parquet"))
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt > records[j].CreatedAt })
	if len(records) > limit {
		records = records[:limit]
	}

	runs := make([]domain.RunRecord, 0, len(records))
	for _, r := range records {
		sig, err := domain.ParseSignal(r.Signal)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRuns: %w", err)
		}
		run := domain.RunRecord{
			ID:            r.ID,
			CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
			HLCode:        r.HLCode,
			BenchmarkCode: r.BenchmarkCode,
			Source:        r.Source,
			Params: domain.Params{
				Period:     int(r.Period),
				Thresholds: domain.Thresholds{Buy: r.BuyThreshold, Sell: r.SellThreshold},
			},
			LatestDiff:      r.LatestDiff,
			Signal:          sig,
			Observations:    int(r.Observations),
			HasBacktest:     r.HasBacktest,
			Checkpoints:     int(r.Checkpoints),
			FinalReturn:     r.FinalReturn,
			BenchmarkReturn: r.BenchmarkReturn,
		}
		if r.LatestDate != 0 {
			run.LatestDate = time.UnixMilli(r.LatestDate).UTC()
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close no mantiene recursos abiertos.
func (s *ParquetStore) Close() error { return nil }

func (r BarRecord) bar() domain.Bar {
	return domain.Bar{
		Code:   r.Code,
		Date:   time.UnixMilli(r.Timestamp).UTC(),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Amount: r.Amount,
	}
}

// barPath devuelve <DataDir>/daily/<CODE>/<YYYY>.parquet.
func (s *ParquetStore) barPath(code string, year int) string {
	return filepath.Join(s.DataDir, "daily", strings.ToUpper(code), strconv.Itoa(year)+".parquet")
}

// years devuelve los años con fichero para code, ordenados.
func (s *ParquetStore) years(code string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "daily", strings.ToUpper(code)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSuffix(name, ".parquet"))
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (s *ParquetStore) codes() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "daily"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// readParquetFile devuelve nil sin error si el fichero no existe.
func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplica por timestamp; las barras nuevas reemplazan a las existentes.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}
