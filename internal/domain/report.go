package domain

import "time"

// AlignStats cuenta las filas descartadas durante la alineación.
type AlignStats struct {
	DroppedA  int // filas de A con cierre no numérico, no finito o <= 0
	DroppedB  int
	Unmatched int // fechas válidas presentes en una sola serie
}

// SignalReport es el resultado completo de evaluar la regla de señal.
type SignalReport struct {
	Params     Params
	Series     AlignedSeries
	Diffs      []ReturnDiffPoint // misma longitud que Series
	Align      AlignStats
	Signal     Signal
	Rationale  string
	LatestDiff float64
	LatestDate time.Time // fecha del diferencial usado; zero si no había ninguno definido
	Stats      SignalStats
}

// Summary agrega la señal y el backtest para presentación.
type Summary struct {
	Signal     Signal
	LatestDiff float64
	LatestDate time.Time
	Stats      SignalStats

	HasBacktest     bool
	Checkpoints     int
	Visits          map[Signal]int
	FinalValue      float64
	BenchmarkValue  float64
	FinalReturn     float64
	BenchmarkReturn float64
	ExcessReturn    float64
	Contributed     float64
	Withdrawn       float64
}
