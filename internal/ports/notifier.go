package ports

import (
	"context"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// Reporter presenta la señal y el backtest al usuario.
type Reporter interface {
	// Report imprime la señal actual; result es nil si no se ejecutó backtest.
	Report(ctx context.Context, report domain.SignalReport, result *domain.BacktestResult, summary domain.Summary) error
}
