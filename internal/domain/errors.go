package domain

import "errors"

var (
	// ErrInsufficientData se devuelve cuando la serie alineada es más corta que
	// la ventana de retornos o que el historial mínimo del backtest.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParams indica parámetros de estrategia o backtest incoherentes.
	ErrInvalidParams = errors.New("invalid parameters")
)
