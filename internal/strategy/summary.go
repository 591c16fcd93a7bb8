package strategy

import (
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/google/uuid"
)

// Summarize no muta sus entradas. result puede ser nil si no hubo backtest.
func Summarize(report domain.SignalReport, result *domain.BacktestResult) domain.Summary {
	s := domain.Summary{
		Signal:     report.Signal,
		LatestDiff: report.LatestDiff,
		LatestDate: report.LatestDate,
		Stats:      report.Stats,
	}
	if result == nil || len(result.Checkpoints) == 0 {
		return s
	}

	s.HasBacktest = true
	s.Checkpoints = len(result.Checkpoints)
	s.Visits = make(map[domain.Signal]int, len(result.SignalCounts))
	for k, v := range result.SignalCounts {
		s.Visits[k] = v
	}
	s.FinalValue = result.FinalValue.InexactFloat64()
	s.BenchmarkValue = result.BenchmarkValue.InexactFloat64()
	s.FinalReturn = result.FinalReturn.InexactFloat64()
	s.BenchmarkReturn = result.BenchmarkReturn.InexactFloat64()
	s.ExcessReturn = result.ExcessReturn().InexactFloat64()
	s.Contributed = result.Contributed.InexactFloat64()
	s.Withdrawn = result.Withdrawn.InexactFloat64()
	return s
}

// NewRunRecord construye el registro persistible de una ejecución.
func NewRunRecord(hlCode, benchCode, source string, report domain.SignalReport, summary domain.Summary) domain.RunRecord {
	rec := domain.RunRecord{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		HLCode:        hlCode,
		BenchmarkCode: benchCode,
		Source:        source,
		Params:        report.Params,
		LatestDate:    report.LatestDate,
		LatestDiff:    report.LatestDiff,
		Signal:        report.Signal,
		Observations:  len(report.Series),
	}
	if summary.HasBacktest {
		rec.HasBacktest = true
		rec.Checkpoints = summary.Checkpoints
		rec.FinalReturn = summary.FinalReturn
		rec.BenchmarkReturn = summary.BenchmarkReturn
	}
	return rec
}
