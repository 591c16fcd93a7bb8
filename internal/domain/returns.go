package domain

import (
	"math"
	"time"
)

// Return es un retorno simple punto a punto. Valid=false para los primeros N puntos.
type Return struct {
	Value float64
	Valid bool
}

// RollingReturns calcula price[i]/price[i-n] - 1 para i >= n.
// Los primeros n índices quedan indefinidos. No compone ni anualiza.
func RollingReturns(prices []float64, n int) []Return {
	out := make([]Return, len(prices))
	if n <= 0 {
		return out
	}
	for i := n; i < len(prices); i++ {
		base := prices[i-n]
		if !ValidPrice(base) || !ValidPrice(prices[i]) {
			continue
		}
		r := prices[i]/base - 1
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out[i] = Return{Value: r, Valid: true}
	}
	return out
}

// ReturnDiffPoint es el diferencial de retornos de N días en una fecha.
type ReturnDiffPoint struct {
	Date    time.Time
	ReturnA float64
	ReturnB float64
	Diff    float64 // ReturnA - ReturnB
	Valid   bool    // false si alguno de los dos retornos está indefinido
}

// ReturnDiffs calcula los retornos de N días de ambas columnas y su diferencia.
// El resultado tiene la misma longitud y orden que series.
func ReturnDiffs(series AlignedSeries, n int) []ReturnDiffPoint {
	ra := RollingReturns(series.PricesA(), n)
	rb := RollingReturns(series.PricesB(), n)

	out := make([]ReturnDiffPoint, len(series))
	for i, p := range series {
		out[i] = ReturnDiffPoint{Date: p.Date}
		if !ra[i].Valid || !rb[i].Valid {
			continue
		}
		out[i].ReturnA = ra[i].Value
		out[i].ReturnB = rb[i].Value
		out[i].Diff = ra[i].Value - rb[i].Value
		out[i].Valid = true
	}
	return out
}

// ValidDiffs filtra los puntos con diferencial definido.
func ValidDiffs(diffs []ReturnDiffPoint) []ReturnDiffPoint {
	out := make([]ReturnDiffPoint, 0, len(diffs))
	for _, d := range diffs {
		if d.Valid {
			out = append(out, d)
		}
	}
	return out
}

// LatestDiff resuelve el diferencial más reciente.
// Si el último punto está indefinido retrocede hasta el último definido;
// si no hay ninguno devuelve (0, -1), lo que clasifica como HOLD.
func LatestDiff(diffs []ReturnDiffPoint) (float64, int) {
	for i := len(diffs) - 1; i >= 0; i-- {
		if diffs[i].Valid {
			return diffs[i].Diff, i
		}
	}
	return 0, -1
}
