package strategy

import (
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// MonthlyCheckpoints devuelve los índices de dates (ordenadas) que actúan como
// punto de evaluación mensual.
//
// CheckpointLastTradingDay: el último día disponible de cada mes calendario.
// El mes final solo cuenta si ya cerró, es decir, si no queda ningún día
// laborable entre la última observación y fin de mes.
//
// CheckpointExactMonthEnd: solo los días que coinciden con el último día
// calendario del mes.
func MonthlyCheckpoints(dates []time.Time, mode domain.CheckpointMode) []int {
	if len(dates) == 0 {
		return nil
	}
	if mode == domain.CheckpointExactMonthEnd {
		return exactMonthEnds(dates)
	}

	var idx []int
	for i := range dates {
		if i+1 < len(dates) && sameMonth(dates[i], dates[i+1]) {
			continue
		}
		if i == len(dates)-1 && !monthClosed(dates[i]) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func exactMonthEnds(dates []time.Time) []int {
	var idx []int
	for i, d := range dates {
		if d.Equal(monthEnd(d)) {
			idx = append(idx, i)
		}
	}
	return idx
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// monthEnd devuelve el último día calendario del mes de d, en UTC.
func monthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// monthClosed reporta si no queda ningún día laborable después de d en su mes.
func monthClosed(d time.Time) bool {
	end := monthEnd(d)
	for day := domain.TradingDay(d).AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return false
		}
	}
	return true
}
