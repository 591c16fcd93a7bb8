package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// ErrUnavailable indica que una fuente no tiene datos para el instrumento.
// La cadena de fallback pasa a la siguiente fuente.
var ErrUnavailable = errors.New("price source unavailable")

// PriceProvider obtiene la serie diaria de un instrumento.
type PriceProvider interface {
	// Name identifica la fuente en logs y en los registros de ejecución.
	Name() string

	// FetchDaily devuelve las barras desde start (inclusive) en orden cronológico.
	FetchDaily(ctx context.Context, code string, start time.Time) ([]domain.Bar, error)
}
