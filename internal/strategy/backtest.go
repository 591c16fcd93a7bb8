package strategy

// backtest.go: simulación mensual de DCA guiada por la señal.
//
// Política por checkpoint:
//   - BUY:  invierte 2× la aportación mensual.
//   - HOLD: invierte 1× la aportación mensual.
//   - SELL: vende el equivalente a 1× la aportación, limitado a las participaciones en cartera.
//
// El benchmark es buy-and-hold puro del capital inicial desde el primer
// checkpoint, sin aportaciones. La asimetría con la estrategia es intencional.

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// RunBacktest simula la estrategia sobre una serie alineada.
// Es una función pura: misma entrada, mismo resultado.
func RunBacktest(series domain.AlignedSeries, p domain.Params, bt domain.BacktestParams) (domain.BacktestResult, error) {
	if err := p.Validate(); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("strategy.RunBacktest: %w", err)
	}
	if err := bt.Validate(); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("strategy.RunBacktest: %w", err)
	}
	if len(series) < bt.MinHistory {
		return domain.BacktestResult{}, fmt.Errorf("strategy.RunBacktest: %d observations, need %d: %w",
			len(series), bt.MinHistory, domain.ErrInsufficientData)
	}

	// Solo las filas con diferencial definido son elegibles.
	diffs := domain.ReturnDiffs(series, p.Period)
	var (
		rows  []int
		dates []time.Time
	)
	for i, d := range diffs {
		if d.Valid {
			rows = append(rows, i)
			dates = append(dates, d.Date)
		}
	}

	picks := MonthlyCheckpoints(dates, bt.Mode)
	if len(picks) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("strategy.RunBacktest: no monthly checkpoints in %d eligible rows: %w",
			len(rows), domain.ErrInsufficientData)
	}

	result := domain.BacktestResult{
		Params:       bt,
		Checkpoints:  make([]domain.Checkpoint, 0, len(picks)),
		SignalCounts: make(map[domain.Signal]int, len(domain.AllSignals)),
		Contributed:  decimal.Zero,
		Withdrawn:    decimal.Zero,
	}
	state := domain.PortfolioState{Cash: bt.InitialInvestment, Shares: decimal.Zero}
	benchBase := decimal.NewFromFloat(series[rows[picks[0]]].PriceB)

	for _, pick := range picks {
		i := rows[pick]
		pt := series[i]
		diff := diffs[i].Diff
		sig := domain.Classify(diff, p.Thresholds)
		price := decimal.NewFromFloat(pt.PriceA)
		benchPrice := decimal.NewFromFloat(pt.PriceB)

		cp := domain.Checkpoint{
			Date:           pt.Date,
			Price:          price,
			BenchmarkPrice: benchPrice,
			Diff:           diff,
			Signal:         sig,
		}

		switch sig {
		case domain.SignalSell:
			sell := decimal.Min(bt.MonthlyInvestment.Div(price), state.Shares)
			proceeds := sell.Mul(price)
			state.Shares = state.Shares.Sub(sell)
			state.Cash = state.Cash.Add(proceeds)
			result.Withdrawn = result.Withdrawn.Add(proceeds)
			cp.Amount = proceeds.Neg()
			cp.SharesDelta = sell.Neg()
		default:
			amount := bt.MonthlyInvestment
			if sig == domain.SignalBuy {
				amount = amount.Mul(two)
			}
			bought := amount.Div(price)
			state.Shares = state.Shares.Add(bought)
			state.Cash = state.Cash.Sub(amount)
			result.Contributed = result.Contributed.Add(amount)
			cp.Amount = amount
			cp.SharesDelta = bought
		}

		cp.Cash = state.Cash
		cp.Shares = state.Shares
		cp.PortfolioValue = state.Value(price)
		cp.BenchmarkValue = bt.InitialInvestment.Mul(benchPrice).Div(benchBase)

		result.SignalCounts[sig]++
		result.Checkpoints = append(result.Checkpoints, cp)
	}

	last := result.Checkpoints[len(result.Checkpoints)-1]
	result.FinalValue = last.PortfolioValue
	result.BenchmarkValue = last.BenchmarkValue
	result.FinalReturn = last.PortfolioValue.Div(bt.InitialInvestment).Sub(decimal.NewFromInt(1))
	result.BenchmarkReturn = last.BenchmarkValue.Div(bt.InitialInvestment).Sub(decimal.NewFromInt(1))

	slog.Debug("backtest complete",
		"checkpoints", len(result.Checkpoints),
		"final_value", result.FinalValue.StringFixed(2),
		"benchmark_value", result.BenchmarkValue.StringFixed(2),
	)
	return result, nil
}
