package pipeline

// sweep.go: worker pool para evaluar una cuadrícula de parámetros en paralelo.
// Cada celda corre su propio backtest; no comparten estado de cartera.

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/strategy"
)

// Grid es el producto cartesiano de periodos y umbrales a evaluar.
type Grid struct {
	Periods []int
	Buys    []float64
	Sells   []float64
}

// DefaultGrid cubre los valores habituales alrededor de los parámetros por defecto.
func DefaultGrid() Grid {
	return Grid{
		Periods: []int{20, 40, 60, 120},
		Buys:    []float64{-0.05, -0.03, -0.01, 0},
		Sells:   []float64{0.05, 0.10, 0.15},
	}
}

// Cells devuelve las combinaciones válidas; las inválidas (p.ej. buy >= sell) se omiten.
func (g Grid) Cells() []domain.Params {
	cells := make([]domain.Params, 0, len(g.Periods)*len(g.Buys)*len(g.Sells))
	for _, n := range g.Periods {
		for _, buy := range g.Buys {
			for _, sell := range g.Sells {
				p := domain.Params{Period: n, Thresholds: domain.Thresholds{Buy: buy, Sell: sell}}
				if err := p.Validate(); err != nil {
					slog.Debug("sweep cell skipped", "period", n, "buy", buy, "sell", sell, "err", err)
					continue
				}
				cells = append(cells, p)
			}
		}
	}
	return cells
}

func (g Grid) minPeriod() int {
	lo := 0
	for _, n := range g.Periods {
		if n > 0 && (lo == 0 || n < lo) {
			lo = n
		}
	}
	if lo == 0 {
		return 1
	}
	return lo
}

// SweepSeries evalúa todas las celdas de grid sobre series con un worker pool.
// Las celdas sin datos suficientes se descartan. Resultado ordenado por
// exceso de retorno descendente.
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func SweepSeries(
	ctx context.Context,
	series domain.AlignedSeries,
	grid Grid,
	bt domain.BacktestParams,
	workers int,
) []domain.SweepResult {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	cells := grid.Cells()
	workCh := make(chan domain.Params, len(cells))
	resultCh := make(chan domain.SweepResult, len(cells))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range workCh {
				if ctx.Err() != nil {
					continue
				}
				res, err := evaluateCell(series, p, bt)
				if err != nil {
					slog.Debug("sweep cell failed", "period", p.Period, "buy", p.Buy, "sell", p.Sell, "err", err)
					continue
				}
				resultCh <- res
			}
		}()
	}

	for _, p := range cells {
		workCh <- p
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]domain.SweepResult, 0, len(cells))
	for r := range resultCh {
		results = append(results, r)
	}
	rankByExcess(results)

	slog.Debug("sweep complete",
		"cells", len(cells),
		"results", len(results),
		"workers", workers,
	)
	return results
}

func evaluateCell(series domain.AlignedSeries, p domain.Params, bt domain.BacktestParams) (domain.SweepResult, error) {
	report, err := strategy.Evaluate(series, p)
	if err != nil {
		return domain.SweepResult{}, err
	}
	res, err := strategy.RunBacktest(series, p, bt)
	if err != nil {
		return domain.SweepResult{}, err
	}
	s := strategy.Summarize(report, &res)
	return domain.SweepResult{
		Params:          p,
		Signal:          report.Signal,
		LatestDiff:      report.LatestDiff,
		FinalReturn:     s.FinalReturn,
		BenchmarkReturn: s.BenchmarkReturn,
		ExcessReturn:    s.ExcessReturn,
		Visits:          s.Visits,
	}, nil
}

// rankByExcess ordena de mayor a menor exceso; empates por parámetros para
// que el orden no dependa de qué worker terminó primero.
func rankByExcess(rs []domain.SweepResult) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.ExcessReturn != b.ExcessReturn {
			return a.ExcessReturn > b.ExcessReturn
		}
		if a.Params.Period != b.Params.Period {
			return a.Params.Period < b.Params.Period
		}
		if a.Params.Buy != b.Params.Buy {
			return a.Params.Buy < b.Params.Buy
		}
		return a.Params.Sell < b.Params.Sell
	})
}
