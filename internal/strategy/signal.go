package strategy

import (
	"fmt"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// ComputeSignal alinea ambas series y clasifica el último diferencial de N días.
// Sin filas suficientes devuelve ErrInsufficientData y un reporte vacío.
func ComputeSignal(hl, benchmark []domain.PricePoint, p domain.Params) (domain.SignalReport, error) {
	if err := p.Validate(); err != nil {
		return domain.SignalReport{}, fmt.Errorf("strategy.ComputeSignal: %w", err)
	}

	series, stats, err := Align(hl, benchmark, p.Period)
	if err != nil {
		return domain.SignalReport{}, fmt.Errorf("strategy.ComputeSignal: %w", err)
	}

	report, err := Evaluate(series, p)
	if err != nil {
		return domain.SignalReport{}, fmt.Errorf("strategy.ComputeSignal: %w", err)
	}
	report.Align = stats
	return report, nil
}

// Evaluate aplica la regla de señal sobre una serie ya alineada.
func Evaluate(series domain.AlignedSeries, p domain.Params) (domain.SignalReport, error) {
	if err := p.Validate(); err != nil {
		return domain.SignalReport{}, err
	}
	if len(series) < p.Period {
		return domain.SignalReport{}, fmt.Errorf("%d aligned rows, need %d: %w",
			len(series), p.Period, domain.ErrInsufficientData)
	}

	diffs := domain.ReturnDiffs(series, p.Period)
	latest, idx := domain.LatestDiff(diffs)
	sig := domain.Classify(latest, p.Thresholds)

	report := domain.SignalReport{
		Params:     p,
		Series:     series,
		Diffs:      diffs,
		Signal:     sig,
		Rationale:  domain.Rationale(sig, latest, p.Thresholds),
		LatestDiff: latest,
		Stats:      domain.SignalHistory(diffs, p.Thresholds),
	}
	if idx >= 0 {
		report.LatestDate = diffs[idx].Date
	}
	return report, nil
}
