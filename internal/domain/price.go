package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// PricePoint es el cierre de un instrumento en un día de negociación.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Bar es una fila diaria OHLC tal como se guarda en daily_price.
type Bar struct {
	Code   string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Amount float64 // volumen negociado en moneda
}

// Point devuelve el PricePoint del bar con la fecha normalizada.
func (b Bar) Point() PricePoint {
	return PricePoint{Date: TradingDay(b.Date), Close: b.Close}
}

// Points convierte bars a PricePoints preservando el orden.
func Points(bars []Bar) []PricePoint {
	out := make([]PricePoint, len(bars))
	for i, b := range bars {
		out[i] = b.Point()
	}
	return out
}

// ValidPrice reporta si un cierre es utilizable: finito y estrictamente positivo.
func ValidPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// ParsePrice convierte un campo de precio a float64.
// Un valor no numérico devuelve NaN: la fila se trata como ausente, nunca como cero.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// TradingDay normaliza t a la medianoche UTC de su día calendario.
func TradingDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateLayout es el formato de fecha usado en storage, CSV y la API de klines.
const DateLayout = "2006-01-02"

// AlignedPoint es un día presente en ambas series.
type AlignedPoint struct {
	Date   time.Time
	PriceA float64 // instrumento seguido (ETF dividendo / baja volatilidad)
	PriceB float64 // benchmark
}

// AlignedSeries está ordenada por fecha estrictamente creciente y ambos
// precios son finitos y positivos en cada entrada.
type AlignedSeries []AlignedPoint

// PricesA devuelve la columna del instrumento seguido.
func (s AlignedSeries) PricesA() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.PriceA
	}
	return out
}

// PricesB devuelve la columna del benchmark.
func (s AlignedSeries) PricesB() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.PriceB
	}
	return out
}

// First devuelve la primera fecha, o zero time si la serie está vacía.
func (s AlignedSeries) First() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// Last devuelve la última fecha, o zero time si la serie está vacía.
func (s AlignedSeries) Last() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}
