package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CheckpointMode selecciona cómo se eligen los puntos mensuales del backtest.
type CheckpointMode string

const (
	// CheckpointLastTradingDay usa el último día de negociación de cada mes.
	CheckpointLastTradingDay CheckpointMode = "last_trading_day"
	// CheckpointExactMonthEnd solo evalúa meses cuyo último día calendario cotizó.
	// Los meses que terminan en fin de semana o festivo se saltan.
	CheckpointExactMonthEnd CheckpointMode = "exact"
)

// DefaultMinHistory es el número mínimo de observaciones alineadas para simular.
const DefaultMinHistory = 100

// BacktestParams configura la política de inversión mensual.
type BacktestParams struct {
	InitialInvestment decimal.Decimal
	MonthlyInvestment decimal.Decimal
	MinHistory        int
	Mode              CheckpointMode
}

// DefaultBacktestParams devuelve 10.000 iniciales y 1.000 mensuales.
func DefaultBacktestParams() BacktestParams {
	return BacktestParams{
		InitialInvestment: decimal.NewFromInt(10000),
		MonthlyInvestment: decimal.NewFromInt(1000),
		MinHistory:        DefaultMinHistory,
		Mode:              CheckpointLastTradingDay,
	}
}

// Validate comprueba importes positivos y modo conocido.
func (p BacktestParams) Validate() error {
	if !p.InitialInvestment.IsPositive() {
		return fmt.Errorf("initial investment %s must be > 0: %w", p.InitialInvestment, ErrInvalidParams)
	}
	if !p.MonthlyInvestment.IsPositive() {
		return fmt.Errorf("monthly investment %s must be > 0: %w", p.MonthlyInvestment, ErrInvalidParams)
	}
	if p.MinHistory <= 0 {
		return fmt.Errorf("min history %d must be > 0: %w", p.MinHistory, ErrInvalidParams)
	}
	switch p.Mode {
	case CheckpointLastTradingDay, CheckpointExactMonthEnd:
	default:
		return fmt.Errorf("unknown checkpoint mode %q: %w", p.Mode, ErrInvalidParams)
	}
	return nil
}

// PortfolioState es la posición de la estrategia. Solo el simulador la muta.
// Cash puede ser negativo: es el neto entre la inversión inicial y las
// aportaciones financiadas desde fuera.
type PortfolioState struct {
	Cash   decimal.Decimal
	Shares decimal.Decimal
}

// Value devuelve cash + shares × price.
func (p PortfolioState) Value(price decimal.Decimal) decimal.Decimal {
	return p.Cash.Add(p.Shares.Mul(price))
}

// Checkpoint es una evaluación mensual del backtest.
type Checkpoint struct {
	Date           time.Time
	Price          decimal.Decimal
	BenchmarkPrice decimal.Decimal
	Diff           float64
	Signal         Signal
	Amount         decimal.Decimal // importe invertido (>0) o retirado (<0) en este punto
	SharesDelta    decimal.Decimal
	Cash           decimal.Decimal
	Shares         decimal.Decimal
	PortfolioValue decimal.Decimal
	BenchmarkValue decimal.Decimal
}

// BacktestResult es la trayectoria completa de una simulación. Solo lectura.
type BacktestResult struct {
	Params          BacktestParams
	Checkpoints     []Checkpoint
	FinalValue      decimal.Decimal
	BenchmarkValue  decimal.Decimal
	FinalReturn     decimal.Decimal // FinalValue/Initial - 1
	BenchmarkReturn decimal.Decimal // BenchmarkValue/Initial - 1
	SignalCounts    map[Signal]int
	Contributed     decimal.Decimal // total comprado en BUY/HOLD
	Withdrawn       decimal.Decimal // total recibido en SELL
}

// ExcessReturn es FinalReturn - BenchmarkReturn.
func (r BacktestResult) ExcessReturn() decimal.Decimal {
	return r.FinalReturn.Sub(r.BenchmarkReturn)
}

// Start devuelve la fecha del primer checkpoint.
func (r BacktestResult) Start() time.Time {
	if len(r.Checkpoints) == 0 {
		return time.Time{}
	}
	return r.Checkpoints[0].Date
}

// End devuelve la fecha del último checkpoint.
func (r BacktestResult) End() time.Time {
	if len(r.Checkpoints) == 0 {
		return time.Time{}
	}
	return r.Checkpoints[len(r.Checkpoints)-1].Date
}
