package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
)

// Source es un eslabón de la cadena de fallback.
type Source struct {
	Provider ports.PriceProvider

	// Substitutes mapea un código pedido al código que esta fuente usa en su lugar.
	Substitutes map[string]string

	// Persist indica si las barras de esta fuente se guardan en el store.
	Persist bool
}

// Chain prueba las fuentes en orden hasta que una devuelve una serie utilizable.
type Chain struct {
	sources []Source
}

// NewChain crea una cadena con las fuentes en orden de preferencia.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Fetched es la serie obtenida para un instrumento y de dónde salió.
type Fetched struct {
	Code        string // código pedido
	FetchedCode string // código realmente descargado (distinto si hubo sustituto)
	Source      string
	Persist     bool
	Bars        []domain.Bar
}

// Points devuelve los cierres de la serie.
func (f Fetched) Points() []domain.PricePoint {
	return domain.Points(f.Bars)
}

// Fetch devuelve la primera serie con al menos minLen cierres válidos.
// Una fuente con error, sin datos o con serie corta cuenta como fallida.
// Si todas fallan devuelve un error que envuelve ports.ErrUnavailable.
func (c *Chain) Fetch(ctx context.Context, code string, start time.Time, minLen int) (Fetched, error) {
	var lastErr error
	for _, src := range c.sources {
		name := src.Provider.Name()
		fetchCode := code
		if sub, ok := src.Substitutes[code]; ok && sub != "" {
			fetchCode = sub
		}

		bars, err := src.Provider.FetchDaily(ctx, fetchCode, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fetched{}, fmt.Errorf("pipeline.Chain.Fetch %s: %w", code, ctxErr)
		}
		if err != nil {
			slog.Warn("price source failed", "source", name, "code", fetchCode, "err", err)
			lastErr = err
			continue
		}

		valid := countValid(bars)
		if valid < minLen {
			slog.Warn("price source returned short series",
				"source", name, "code", fetchCode, "valid", valid, "need", minLen)
			lastErr = fmt.Errorf("%s: %d valid closes, need %d", name, valid, minLen)
			continue
		}

		slog.Info("prices fetched", "source", name, "code", code, "fetched_code", fetchCode, "bars", len(bars))
		return Fetched{
			Code:        code,
			FetchedCode: fetchCode,
			Source:      name,
			Persist:     src.Persist,
			Bars:        bars,
		}, nil
	}

	if lastErr == nil {
		return Fetched{}, fmt.Errorf("pipeline.Chain.Fetch %s: no sources configured: %w", code, ports.ErrUnavailable)
	}
	return Fetched{}, fmt.Errorf("pipeline.Chain.Fetch %s: all %d sources failed (last: %v): %w",
		code, len(c.sources), lastErr, ports.ErrUnavailable)
}

func countValid(bars []domain.Bar) int {
	n := 0
	for _, b := range bars {
		if domain.ValidPrice(b.Close) {
			n++
		}
	}
	return n
}
