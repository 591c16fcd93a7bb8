package strategy_test

import (
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdays devuelve los días laborables en [from, to].
func weekdays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// series construye una serie alineada con precios dados por índice.
func series(dates []time.Time, priceA, priceB func(i int) float64) domain.AlignedSeries {
	out := make(domain.AlignedSeries, len(dates))
	for i, d := range dates {
		out[i] = domain.AlignedPoint{Date: d, PriceA: priceA(i), PriceB: priceB(i)}
	}
	return out
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func points(dates []time.Time, price func(i int) float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(dates))
	for i, d := range dates {
		out[i] = domain.PricePoint{Date: d, Close: price(i)}
	}
	return out
}
