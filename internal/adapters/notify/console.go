package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Instruments nombra los dos instrumentos en el reporte.
type Instruments struct {
	HLCode        string
	HLName        string
	BenchmarkCode string
	BenchmarkName string
}

// Console implementa ports.Reporter.
type Console struct {
	out        io.Writer
	inst       Instruments
	trajectory bool // imprimir todos los checkpoints del backtest
}

var _ ports.Reporter = (*Console)(nil)

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(inst Instruments, trajectory bool) *Console {
	return &Console{out: os.Stdout, inst: inst, trajectory: trajectory}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, inst Instruments, trajectory bool) *Console {
	return &Console{out: w, inst: inst, trajectory: trajectory}
}

// Report imprime señal, estadísticas históricas y, si hay, el backtest.
func (c *Console) Report(_ context.Context, report domain.SignalReport, result *domain.BacktestResult, summary domain.Summary) error {
	c.printSignal(report)
	c.printHistory(summary.Stats)
	if result != nil && summary.HasBacktest {
		c.printBacktest(result, summary)
	}
	return nil
}

func (c *Console) printSignal(r domain.SignalReport) {
	fmt.Fprintf(c.out, "\n%s vs %s  (%d-day return spread)\n",
		c.label(c.inst.HLCode, c.inst.HLName), c.label(c.inst.BenchmarkCode, c.inst.BenchmarkName), r.Params.Period)

	if len(r.Series) > 0 {
		last := r.Series[len(r.Series)-1]
		fmt.Fprintf(c.out, "data: %s → %s (%d rows)  last close %.4f / %.4f\n",
			r.Series.First().Format(domain.DateLayout), last.Date.Format(domain.DateLayout),
			len(r.Series), last.PriceA, last.PriceB)
	}
	if r.Align.DroppedA+r.Align.DroppedB > 0 {
		fmt.Fprintf(c.out, "dropped rows: %d / %d unusable closes\n", r.Align.DroppedA, r.Align.DroppedB)
	}

	asOf := "n/a"
	if !r.LatestDate.IsZero() {
		asOf = r.LatestDate.Format(domain.DateLayout)
	}
	fmt.Fprintf(c.out, "\nSIGNAL: %s (%s)  spread %s as of %s\n", r.Signal, r.Signal.Action(), pct(r.LatestDiff), asOf)
	fmt.Fprintf(c.out, "reason: %s\n", r.Rationale)
	for _, a := range r.Signal.Advice() {
		fmt.Fprintf(c.out, "  • %s\n", a)
	}
}

func (c *Console) printHistory(stats domain.SignalStats) {
	if stats.Total == 0 {
		fmt.Fprintln(c.out, "\nno signal history yet")
		return
	}

	fmt.Fprintf(c.out, "\nSignal history (%d days)\n", stats.Total)
	table := tablewriter.NewWriter(c.out)
	table.Header("Signal", "Days", "Share")
	for _, s := range domain.AllSignals {
		table.Append(s.String(), fmt.Sprintf("%d", stats.Counts[s]), fmt.Sprintf("%.1f%%", stats.Percent(s)))
	}
	table.Render()
	fmt.Fprintf(c.out, "current %s run: %d consecutive days\n", stats.Current, stats.CurrentRun)
}

func (c *Console) printBacktest(res *domain.BacktestResult, s domain.Summary) {
	fmt.Fprintf(c.out, "\nBacktest %s → %s (%d monthly checkpoints, initial %s, monthly %s)\n",
		res.Start().Format(domain.DateLayout), res.End().Format(domain.DateLayout), s.Checkpoints,
		res.Params.InitialInvestment.StringFixed(0), res.Params.MonthlyInvestment.StringFixed(0))

	if c.trajectory {
		c.printTrajectory(res.Checkpoints)
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Strategy final value", fmt.Sprintf("%.2f", s.FinalValue))
	table.Append("Strategy return", pct(s.FinalReturn))
	table.Append("Benchmark final value", fmt.Sprintf("%.2f", s.BenchmarkValue))
	table.Append("Benchmark return", pct(s.BenchmarkReturn))
	table.Append("Excess return", pct(s.ExcessReturn))
	table.Append("Contributed", fmt.Sprintf("%.2f", s.Contributed))
	table.Append("Withdrawn", fmt.Sprintf("%.2f", s.Withdrawn))
	table.Append("Visits", visits(s.Visits))
	table.Render()
}

func (c *Console) printTrajectory(cps []domain.Checkpoint) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Signal", "Spread", "Price", "Amount", "Shares", "Cash", "Value", "Benchmark")
	for _, cp := range cps {
		table.Append(
			cp.Date.Format(domain.DateLayout),
			cp.Signal.String(),
			pct(cp.Diff),
			cp.Price.StringFixed(4),
			cp.Amount.StringFixed(2),
			cp.Shares.StringFixed(2),
			cp.Cash.StringFixed(2),
			cp.PortfolioValue.StringFixed(2),
			cp.BenchmarkValue.StringFixed(2),
		)
	}
	table.Render()
}

// PrintRuns imprime el histórico de ejecuciones guardadas.
func (c *Console) PrintRuns(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no stored runs")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "At", "Pair", "N", "Signal", "Spread", "Strategy", "Benchmark", "Source")
	for _, r := range runs {
		strat, bench := "-", "-"
		if r.HasBacktest {
			strat, bench = pct(r.FinalReturn), pct(r.BenchmarkReturn)
		}
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.HLCode+"/"+r.BenchmarkCode,
			fmt.Sprintf("%d", r.Params.Period),
			r.Signal.String(),
			pct(r.LatestDiff),
			strat,
			bench,
			r.Source,
		)
	}
	table.Render()
}

// PrintDateCounts imprime cuántos códigos hay guardados por fecha.
func (c *Console) PrintDateCounts(counts []ports.DateCount) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Codes")
	for _, dc := range counts {
		table.Append(dc.Date.Format(domain.DateLayout), fmt.Sprintf("%d", dc.Codes))
	}
	table.Render()
}

// PrintSweep imprime la cuadrícula de parámetros ordenada por exceso de retorno.
func (c *Console) PrintSweep(rows []domain.SweepResult) {
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "no valid parameter combinations")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "N", "Buy", "Sell", "Signal", "Strategy", "Benchmark", "Excess", "B/H/S")
	for i, r := range rows {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", r.Params.Period),
			pct(r.Params.Buy),
			pct(r.Params.Sell),
			r.Signal.String(),
			pct(r.FinalReturn),
			pct(r.BenchmarkReturn),
			pct(r.ExcessReturn),
			fmt.Sprintf("%d/%d/%d", r.Visits[domain.SignalBuy], r.Visits[domain.SignalHold], r.Visits[domain.SignalSell]),
		)
	}
	table.Render()
}

func (c *Console) label(code, name string) string {
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s %s", code, name)
}

func pct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func visits(m map[domain.Signal]int) string {
	parts := make([]string, 0, len(domain.AllSignals))
	for _, s := range domain.AllSignals {
		parts = append(parts, fmt.Sprintf("%s %d", s, m[s]))
	}
	return strings.Join(parts, " / ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
