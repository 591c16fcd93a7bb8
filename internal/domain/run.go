package domain

import "time"

// RunRecord es el resumen persistido de una ejecución de señal (y backtest opcional).
type RunRecord struct {
	ID            string
	CreatedAt     time.Time
	HLCode        string
	BenchmarkCode string
	Source        string // proveedor que sirvió los datos
	Params        Params
	LatestDate    time.Time
	LatestDiff    float64
	Signal        Signal
	Observations  int

	// Campos del backtest. Cero si HasBacktest es false.
	HasBacktest     bool
	Checkpoints     int
	FinalReturn     float64
	BenchmarkReturn float64
}

// ExcessReturn es FinalReturn - BenchmarkReturn.
func (r RunRecord) ExcessReturn() float64 {
	return r.FinalReturn - r.BenchmarkReturn
}

// SweepResult es una combinación de parámetros evaluada por el barrido.
type SweepResult struct {
	Params          Params
	Signal          Signal
	LatestDiff      float64
	FinalReturn     float64
	BenchmarkReturn float64
	ExcessReturn    float64
	Visits          map[Signal]int
}
