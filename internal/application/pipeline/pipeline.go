// Package pipeline orquesta una ejecución completa: descarga de ambos
// instrumentos por la cadena de fallback, persistencia, señal, backtest
// opcional, reporte y registro de la ejecución.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	"github.com/alejandrodnm/lowvolsignal/internal/strategy"
	"golang.org/x/sync/errgroup"
)

// Config contiene la configuración de una ejecución.
type Config struct {
	HLCode        string
	BenchmarkCode string
	Start         time.Time

	Params         domain.Params
	Backtest       bool
	BacktestParams domain.BacktestParams
}

// Pipeline encadena fetch → persist → compute → report → save run.
// prices, runs y reporter son opcionales (nil los desactiva).
type Pipeline struct {
	cfg      Config
	chain    *Chain
	prices   ports.PriceStore
	runs     ports.RunStore
	reporter ports.Reporter
}

// New crea un Pipeline con todas las dependencias inyectadas.
func New(cfg Config, chain *Chain, prices ports.PriceStore, runs ports.RunStore, reporter ports.Reporter) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		chain:    chain,
		prices:   prices,
		runs:     runs,
		reporter: reporter,
	}
}

// Outcome es el resultado de Run.
type Outcome struct {
	HL        Fetched
	Benchmark Fetched
	Report    domain.SignalReport
	Result    *domain.BacktestResult // nil sin backtest
	Summary   domain.Summary
	Run       domain.RunRecord
}

// Run ejecuta un ciclo completo. Falla si no hay datos suficientes para la
// señal; un backtest sin historia suficiente solo se registra como warning.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()

	hl, bench, err := p.fetchPair(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline.Run: %w", err)
	}
	p.persist(ctx, hl, bench)

	report, err := strategy.ComputeSignal(hl.Points(), bench.Points(), p.cfg.Params)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline.Run: %w", err)
	}

	out := Outcome{HL: hl, Benchmark: bench, Report: report}

	if p.cfg.Backtest {
		res, err := strategy.RunBacktest(report.Series, p.cfg.Params, p.cfg.BacktestParams)
		if err != nil {
			slog.Warn("backtest skipped", "err", err, "rows", len(report.Series))
		} else {
			out.Result = &res
		}
	}

	out.Summary = strategy.Summarize(report, out.Result)
	out.Run = strategy.NewRunRecord(p.cfg.HLCode, p.cfg.BenchmarkCode, sourceLabel(hl, bench), report, out.Summary)

	if p.reporter != nil {
		if err := p.reporter.Report(ctx, report, out.Result, out.Summary); err != nil {
			slog.Warn("reporter error", "err", err)
		}
	}

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, out.Run); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("run complete",
		"run_id", out.Run.ID,
		"signal", report.Signal,
		"diff", fmt.Sprintf("%.4f", report.LatestDiff),
		"rows", len(report.Series),
		"backtest", out.Result != nil,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// Collect descarga ambos instrumentos y guarda las barras sin calcular señal.
// Devuelve el número de barras guardadas.
func (p *Pipeline) Collect(ctx context.Context) (int, error) {
	if p.prices == nil {
		return 0, fmt.Errorf("pipeline.Collect: no price store configured")
	}
	hl, bench, err := p.fetchPair(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline.Collect: %w", err)
	}
	return p.persist(ctx, hl, bench), nil
}

// Sweep descarga ambos instrumentos una vez y evalúa la cuadrícula de parámetros.
func (p *Pipeline) Sweep(ctx context.Context, grid Grid, workers int) ([]domain.SweepResult, error) {
	hl, bench, err := p.fetchPair(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Sweep: %w", err)
	}
	p.persist(ctx, hl, bench)

	// Se alinea con el periodo mínimo de la cuadrícula; cada celda valida el suyo.
	series, _, err := strategy.Align(hl.Points(), bench.Points(), grid.minPeriod())
	if err != nil {
		return nil, fmt.Errorf("pipeline.Sweep: %w", err)
	}
	return SweepSeries(ctx, series, grid, p.cfg.BacktestParams, workers), nil
}

// fetchPair descarga ambos instrumentos en paralelo.
func (p *Pipeline) fetchPair(ctx context.Context) (Fetched, Fetched, error) {
	minLen := p.cfg.Params.Period
	var hl, bench Fetched

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hl, err = p.chain.Fetch(gctx, p.cfg.HLCode, p.cfg.Start, minLen)
		return err
	})
	g.Go(func() error {
		var err error
		bench, err = p.chain.Fetch(gctx, p.cfg.BenchmarkCode, p.cfg.Start, minLen)
		return err
	})
	if err := g.Wait(); err != nil {
		return Fetched{}, Fetched{}, err
	}
	return hl, bench, nil
}

// persist guarda las series que vienen de fuentes persistibles. Los errores
// de storage no abortan la ejecución.
func (p *Pipeline) persist(ctx context.Context, series ...Fetched) int {
	if p.prices == nil {
		return 0
	}
	saved := 0
	for _, f := range series {
		if !f.Persist || len(f.Bars) == 0 {
			continue
		}
		if err := p.prices.SaveBars(ctx, f.Bars); err != nil {
			slog.Warn("storage error", "code", f.FetchedCode, "err", err)
			continue
		}
		saved += len(f.Bars)
	}
	if saved > 0 {
		slog.Debug("bars persisted", "bars", saved)
	}
	return saved
}

func sourceLabel(hl, bench Fetched) string {
	if hl.Source == bench.Source {
		return hl.Source
	}
	return strings.Join([]string{hl.Source, bench.Source}, "+")
}
