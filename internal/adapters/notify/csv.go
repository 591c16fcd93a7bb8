package notify

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// WriteCheckpointsCSVFile escribe la trayectoria del backtest en path.
func WriteCheckpointsCSVFile(path string, cps []domain.Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("notify.WriteCheckpointsCSVFile: create %q: %w", path, err)
	}
	defer f.Close()

	if err := WriteCheckpointsCSV(f, cps); err != nil {
		return fmt.Errorf("notify.WriteCheckpointsCSVFile: %w", err)
	}
	return f.Close()
}

// WriteCheckpointsCSV escribe una fila por checkpoint a cualquier io.Writer.
func WriteCheckpointsCSV(w io.Writer, cps []domain.Checkpoint) error {
	cw := csv.NewWriter(w)

	header := []string{
		"date",
		"signal",
		"spread",
		"price",
		"benchmark_price",
		"amount", // >0 invertido, <0 retirado
		"shares_delta",
		"shares",
		"cash",
		"portfolio_value",
		"benchmark_value",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, cp := range cps {
		record := []string{
			cp.Date.Format(domain.DateLayout),
			cp.Signal.String(),
			fmt.Sprintf("%.6f", cp.Diff),
			cp.Price.String(),
			cp.BenchmarkPrice.String(),
			cp.Amount.StringFixed(2),
			cp.SharesDelta.StringFixed(4),
			cp.Shares.StringFixed(4),
			cp.Cash.StringFixed(2),
			cp.PortfolioValue.StringFixed(2),
			cp.BenchmarkValue.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", cp.Date.Format(domain.DateLayout), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
