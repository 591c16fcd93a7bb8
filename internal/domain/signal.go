package domain

import (
	"fmt"
	"strings"
)

// Signal es la acción derivada del diferencial de retornos.
type Signal int

const (
	SignalHold Signal = iota // diferencial dentro del rango razonable
	SignalBuy                // instrumento relativamente barato: duplicar aportación
	SignalSell               // instrumento relativamente caro: vender gradualmente
)

// AllSignals lista las clases en orden de presentación.
var AllSignals = []Signal{SignalBuy, SignalHold, SignalSell}

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Action es la etiqueta corta de la operación que sugiere la señal.
func (s Signal) Action() string {
	switch s {
	case SignalBuy:
		return "double DCA buy"
	case SignalSell:
		return "gradual sell"
	default:
		return "hold"
	}
}

// Advice devuelve las recomendaciones concretas para la señal.
func (s Signal) Advice() []string {
	switch s {
	case SignalBuy:
		return []string{
			"raise the monthly contribution to twice the usual amount",
			"consider building the position in batches",
			"stay patient and wait for mean reversion",
		}
	case SignalSell:
		return []string{
			"reduce the position gradually to lock in profit",
			"consider selling part of the holding",
			"keep a base position for the next opportunity",
		}
	default:
		return []string{
			"keep the regular DCA plan",
			"leave the current position unchanged",
			"watch the return spread closely",
		}
	}
}

// ParseSignal acepta BUY, HOLD o SELL sin distinguir mayúsculas.
func ParseSignal(s string) (Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SignalBuy, nil
	case "SELL":
		return SignalSell, nil
	case "HOLD":
		return SignalHold, nil
	}
	return SignalHold, fmt.Errorf("domain.ParseSignal: unknown signal %q", s)
}

// Thresholds son los umbrales fijos de clasificación. Ambos inclusivos.
type Thresholds struct {
	Buy  float64 // diff <= Buy → BUY
	Sell float64 // diff >= Sell → SELL
}

// Validate exige Buy <= 0 < Sell.
func (t Thresholds) Validate() error {
	if t.Buy > 0 {
		return fmt.Errorf("buy threshold %.4f must be <= 0: %w", t.Buy, ErrInvalidParams)
	}
	if t.Sell <= 0 {
		return fmt.Errorf("sell threshold %.4f must be > 0: %w", t.Sell, ErrInvalidParams)
	}
	if t.Buy >= t.Sell {
		return fmt.Errorf("buy threshold %.4f must be below sell threshold %.4f: %w", t.Buy, t.Sell, ErrInvalidParams)
	}
	return nil
}

// Classify es una función escalón del diferencial.
// En el borde exacto gana la acción (BUY/SELL) sobre HOLD.
func Classify(diff float64, t Thresholds) Signal {
	if diff <= t.Buy {
		return SignalBuy
	}
	if diff >= t.Sell {
		return SignalSell
	}
	return SignalHold
}

// Rationale explica en una línea por qué el diferencial produjo la señal.
func Rationale(sig Signal, diff float64, t Thresholds) string {
	switch sig {
	case SignalBuy:
		return fmt.Sprintf("return spread %.2f%% <= %.2f%%: the dividend low-vol ETF is relatively undervalued, a good time to add",
			diff*100, t.Buy*100)
	case SignalSell:
		return fmt.Sprintf("return spread %.2f%% >= %.2f%%: the dividend low-vol ETF is relatively overvalued, consider taking profit gradually",
			diff*100, t.Sell*100)
	default:
		return fmt.Sprintf("return spread %.2f%% is between %.2f%% and %.2f%%: valuation is in a reasonable range",
			diff*100, t.Buy*100, t.Sell*100)
	}
}

// Params es la configuración inmutable de la regla de señal.
type Params struct {
	Period int // ventana N de retornos en días de negociación
	Thresholds
}

// DefaultParams devuelve N=40, BUY <= -1%, SELL >= 10%.
func DefaultParams() Params {
	return Params{
		Period:     40,
		Thresholds: Thresholds{Buy: -0.01, Sell: 0.10},
	}
}

// Validate comprueba periodo y umbrales.
func (p Params) Validate() error {
	if p.Period <= 0 {
		return fmt.Errorf("return period %d must be > 0: %w", p.Period, ErrInvalidParams)
	}
	return p.Thresholds.Validate()
}

// SignalStats resume la distribución histórica de señales.
type SignalStats struct {
	Counts     map[Signal]int
	Total      int
	Current    Signal
	CurrentRun int // días consecutivos con la señal actual, terminando en el último punto
}

// Percent devuelve el porcentaje (0-100) de días con la señal dada.
func (s SignalStats) Percent(sig Signal) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Counts[sig]) / float64(s.Total) * 100
}

// SignalHistory clasifica todos los diferenciales definidos y mide la racha actual.
func SignalHistory(diffs []ReturnDiffPoint, t Thresholds) SignalStats {
	stats := SignalStats{Counts: make(map[Signal]int, len(AllSignals))}

	var classes []Signal
	for _, d := range diffs {
		if !d.Valid {
			continue
		}
		sig := Classify(d.Diff, t)
		stats.Counts[sig]++
		classes = append(classes, sig)
	}
	stats.Total = len(classes)
	if stats.Total == 0 {
		return stats
	}

	stats.Current = classes[len(classes)-1]
	for i := len(classes) - 1; i >= 0 && classes[i] == stats.Current; i-- {
		stats.CurrentRun++
	}
	return stats
}
