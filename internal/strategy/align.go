package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// Align hace el inner join de dos series diarias por fecha.
//
// Antes del join descarta los cierres inutilizables de cada lado (se tratan
// como ausentes, nunca como cero). Si una serie repite fecha gana la última
// fila. Devuelve ErrInsufficientData si quedan menos de minLen filas.
func Align(a, b []domain.PricePoint, minLen int) (domain.AlignedSeries, domain.AlignStats, error) {
	var stats domain.AlignStats

	pa, droppedA := cleanSeries(a)
	pb, droppedB := cleanSeries(b)
	stats.DroppedA = droppedA
	stats.DroppedB = droppedB

	dates := make([]time.Time, 0, len(pa))
	for d := range pa {
		if _, ok := pb[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	stats.Unmatched = len(pa) + len(pb) - 2*len(dates)

	if stats.DroppedA > 0 || stats.DroppedB > 0 {
		slog.Warn("dropped unusable price rows",
			"dropped_a", stats.DroppedA,
			"dropped_b", stats.DroppedB,
		)
	}

	if len(dates) < minLen {
		return nil, stats, fmt.Errorf("strategy.Align: %d aligned rows, need %d: %w",
			len(dates), minLen, domain.ErrInsufficientData)
	}

	series := make(domain.AlignedSeries, len(dates))
	for i, d := range dates {
		series[i] = domain.AlignedPoint{Date: d, PriceA: pa[d], PriceB: pb[d]}
	}

	slog.Debug("series aligned",
		"rows", len(series),
		"unmatched", stats.Unmatched,
		"from", series.First().Format(domain.DateLayout),
		"to", series.Last().Format(domain.DateLayout),
	)
	return series, stats, nil
}

// cleanSeries indexa por día normalizado y descarta cierres inválidos.
func cleanSeries(points []domain.PricePoint) (map[time.Time]float64, int) {
	out := make(map[time.Time]float64, len(points))
	dropped := 0
	for _, p := range points {
		if p.Date.IsZero() || !domain.ValidPrice(p.Close) {
			dropped++
			continue
		}
		out[domain.TradingDay(p.Date)] = p.Close
	}
	return out, dropped
}
