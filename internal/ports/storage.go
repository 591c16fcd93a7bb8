package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
)

// PriceStore persiste barras diarias indexadas por (code, date).
// Guardar una fecha existente la reemplaza.
type PriceStore interface {
	// SaveBars hace upsert de las barras dadas.
	SaveBars(ctx context.Context, bars []domain.Bar) error

	// LoadBars devuelve las barras de code en [from, to], ordenadas por fecha.
	// Un to cero significa sin límite superior.
	LoadBars(ctx context.Context, code string, from, to time.Time) ([]domain.Bar, error)

	// LatestDate devuelve la fecha más reciente guardada para code (zero si no hay).
	LatestDate(ctx context.Context, code string) (time.Time, error)

	// DeleteDate borra todas las barras de una fecha y devuelve cuántas filas eliminó.
	DeleteDate(ctx context.Context, date time.Time) (int64, error)

	// DateCounts devuelve cuántos códigos hay guardados por fecha, más reciente primero.
	DateCounts(ctx context.Context, limit int) ([]DateCount, error)

	// Codes devuelve los códigos con al menos una barra guardada.
	Codes(ctx context.Context) ([]string, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

// DateCount es el número de instrumentos guardados en una fecha.
type DateCount struct {
	Date  time.Time
	Codes int
}

// RunStore persiste el resumen de cada ejecución.
type RunStore interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
