package strategy_test

import (
	"testing"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 2009-11-09 + 40 días laborables = 2010-01-04: el primer diferencial cae en
// enero de 2010 y la serie cierra el 2019-12-31, 120 meses exactos.
func flatDecade() domain.AlignedSeries {
	return series(weekdays(day(2009, 11, 9), day(2019, 12, 31)), flat(1), flat(1))
}

func TestRunBacktest_FlatHoldDecade(t *testing.T) {
	s := flatDecade()
	bt := domain.DefaultBacktestParams()

	res, err := strategy.RunBacktest(s, domain.DefaultParams(), bt)
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 120)

	assert.Equal(t, day(2010, 1, 29), res.Checkpoints[0].Date)
	assert.Equal(t, day(2019, 12, 31), res.Checkpoints[119].Date)
	assert.Equal(t, 120, res.SignalCounts[domain.SignalHold])

	last := res.Checkpoints[119]
	assert.True(t, last.Shares.Equal(dec("120000")), last.Shares.String())
	assert.True(t, last.Cash.Equal(dec("-110000")), last.Cash.String())
	assert.True(t, res.FinalValue.Equal(dec("10000")), res.FinalValue.String())
	assert.True(t, res.Contributed.Equal(dec("120000")))
	assert.True(t, res.Withdrawn.IsZero())
	assert.True(t, res.FinalReturn.IsZero())
	assert.True(t, res.BenchmarkReturn.IsZero())
}

func TestRunBacktest_BuyAtThresholdDoublesContribution(t *testing.T) {
	s := domain.AlignedSeries{
		{Date: day(2024, 1, 30), PriceA: 1, PriceB: 1},
		{Date: day(2024, 1, 31), PriceA: 1, PriceB: 1.25},
	}
	p := domain.Params{Period: 1, Thresholds: domain.Thresholds{Buy: -0.25, Sell: 0.5}}
	bt := domain.DefaultBacktestParams()
	bt.MinHistory = 2

	res, err := strategy.RunBacktest(s, p, bt)
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)

	cp := res.Checkpoints[0]
	assert.Equal(t, domain.SignalBuy, cp.Signal)
	assert.True(t, cp.Amount.Equal(dec("2000")))
	assert.True(t, cp.Shares.Equal(dec("2000")))
	assert.True(t, cp.Cash.Equal(dec("8000")))
	assert.True(t, cp.BenchmarkValue.Equal(dec("10000")))
}

func TestRunBacktest_MinimumHistory(t *testing.T) {
	dates := weekdays(day(2024, 1, 1), day(2024, 4, 30))
	require.Less(t, len(dates), domain.DefaultMinHistory)

	res, err := strategy.RunBacktest(series(dates, flat(1), flat(1)), domain.DefaultParams(), domain.DefaultBacktestParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Empty(t, res.Checkpoints)
}

func TestRunBacktest_SharesNeverNegative(t *testing.T) {
	dates := weekdays(day(2022, 1, 3), day(2023, 12, 29))
	// Plano durante 200 días, luego +1% diario frente a un benchmark plano.
	priceA := func(i int) float64 {
		if i < 200 {
			return 1
		}
		return 1 + float64(i-200)*0.01
	}

	res, err := strategy.RunBacktest(series(dates, priceA, flat(1)), domain.DefaultParams(), domain.DefaultBacktestParams())
	require.NoError(t, err)
	require.Positive(t, res.SignalCounts[domain.SignalSell])
	require.Positive(t, res.SignalCounts[domain.SignalHold])

	for _, cp := range res.Checkpoints {
		assert.False(t, cp.Shares.IsNegative(), "shares at %s", cp.Date)
		if cp.Signal == domain.SignalSell {
			assert.False(t, cp.Amount.IsPositive())
		}
	}
	assert.True(t, res.Withdrawn.IsPositive())
}

func TestRunBacktest_SellWithoutSharesIsNoop(t *testing.T) {
	dates := weekdays(day(2023, 1, 2), day(2023, 12, 29))
	res, err := strategy.RunBacktest(
		series(dates, func(i int) float64 { return 1 + float64(i)*0.01 }, flat(1)),
		domain.DefaultParams(), domain.DefaultBacktestParams())
	require.NoError(t, err)

	for _, cp := range res.Checkpoints {
		assert.Equal(t, domain.SignalSell, cp.Signal)
		assert.True(t, cp.Shares.IsZero())
		assert.True(t, cp.Cash.Equal(dec("10000")))
	}
}

func TestRunBacktest_BenchmarkProportionalToPrice(t *testing.T) {
	dates := weekdays(day(2021, 1, 4), day(2023, 12, 29))
	bench := func(i int) float64 { return 2 + float64(i%50)*0.02 }
	res, err := strategy.RunBacktest(series(dates, flat(1), bench), domain.DefaultParams(), domain.DefaultBacktestParams())
	require.NoError(t, err)

	ratio := res.Checkpoints[0].BenchmarkValue.Div(res.Checkpoints[0].BenchmarkPrice).InexactFloat64()
	assert.InDelta(t, 10000/res.Checkpoints[0].BenchmarkPrice.InexactFloat64(), ratio, 1e-6)
	for _, cp := range res.Checkpoints {
		assert.InDelta(t, ratio, cp.BenchmarkValue.Div(cp.BenchmarkPrice).InexactFloat64(), 1e-6)
	}
}

func TestRunBacktest_Deterministic(t *testing.T) {
	dates := weekdays(day(2020, 1, 2), day(2023, 12, 29))
	hl := points(dates, func(i int) float64 { return 1 + float64(i%37)*0.01 })
	bench := points(dates, func(i int) float64 { return 3 + float64(i%53)*0.02 })
	p := domain.DefaultParams()
	bt := domain.DefaultBacktestParams()

	report, err := strategy.ComputeSignal(hl, bench, p)
	require.NoError(t, err)
	s := report.Series
	require.Len(t, s, len(dates))
	snapshot := append(domain.AlignedSeries(nil), s...)

	first, err := strategy.RunBacktest(s, p, bt)
	require.NoError(t, err)
	second, err := strategy.RunBacktest(s, p, bt)
	require.NoError(t, err)

	require.Len(t, second.Checkpoints, len(first.Checkpoints))
	for i := range first.Checkpoints {
		a, b := first.Checkpoints[i], second.Checkpoints[i]
		assert.Equal(t, a.Date, b.Date)
		assert.Equal(t, a.Signal, b.Signal)
		assert.True(t, a.Cash.Equal(b.Cash))
		assert.True(t, a.Shares.Equal(b.Shares))
		assert.True(t, a.PortfolioValue.Equal(b.PortfolioValue))
		assert.True(t, a.BenchmarkValue.Equal(b.BenchmarkValue))
	}
	assert.True(t, first.FinalReturn.Equal(second.FinalReturn))
	assert.Equal(t, first.SignalCounts, second.SignalCounts)
	// La serie del reporte no se modifica al simular.
	assert.Equal(t, snapshot, s)
}

func TestRunBacktest_ExactModeSkipsWeekendMonthEnds(t *testing.T) {
	s := series(weekdays(day(2023, 9, 1), day(2024, 6, 28)), flat(1), flat(1))
	bt := domain.DefaultBacktestParams()

	lastDay, err := strategy.RunBacktest(s, domain.DefaultParams(), bt)
	require.NoError(t, err)

	bt.Mode = domain.CheckpointExactMonthEnd
	exact, err := strategy.RunBacktest(s, domain.DefaultParams(), bt)
	require.NoError(t, err)

	assert.Less(t, len(exact.Checkpoints), len(lastDay.Checkpoints))
	for _, cp := range exact.Checkpoints {
		assert.NotEqual(t, cp.Date.Month(), cp.Date.AddDate(0, 0, 1).Month(), "not a month end: %s", cp.Date)
	}
}

func TestSummarize(t *testing.T) {
	s := flatDecade()
	p := domain.DefaultParams()
	report, err := strategy.Evaluate(s, p)
	require.NoError(t, err)
	res, err := strategy.RunBacktest(s, p, domain.DefaultBacktestParams())
	require.NoError(t, err)

	sum := strategy.Summarize(report, &res)
	assert.True(t, sum.HasBacktest)
	assert.Equal(t, 120, sum.Checkpoints)
	assert.Equal(t, 120, sum.Visits[domain.SignalHold])
	assert.InDelta(t, 0, sum.ExcessReturn, 1e-12)
	assert.InDelta(t, 120000, sum.Contributed, 1e-9)

	noBT := strategy.Summarize(report, nil)
	assert.False(t, noBT.HasBacktest)
	assert.Equal(t, domain.SignalHold, noBT.Signal)

	rec := strategy.NewRunRecord("515450", "510210", "test", report, sum)
	assert.Len(t, rec.ID, 36)
	assert.True(t, rec.HasBacktest)
	assert.Equal(t, len(s), rec.Observations)
}
