package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
)

// StoreProvider sirve precios desde el store local como fuente de respaldo.
type StoreProvider struct {
	store ports.PriceStore
}

// NewStoreProvider envuelve un PriceStore como ports.PriceProvider.
func NewStoreProvider(store ports.PriceStore) *StoreProvider {
	return &StoreProvider{store: store}
}

// Name implementa ports.PriceProvider.
func (p *StoreProvider) Name() string { return "store" }

// FetchDaily devuelve lo guardado desde start. Sin filas devuelve ports.ErrUnavailable.
func (p *StoreProvider) FetchDaily(ctx context.Context, code string, start time.Time) ([]domain.Bar, error) {
	bars, err := p.store.LoadBars(ctx, code, start, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("storage.FetchDaily %s: %w", code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("storage.FetchDaily %s: no stored bars: %w", code, ports.ErrUnavailable)
	}
	return bars, nil
}

// Merge copia todas las barras de src a dst. Las fechas existentes en dst se reemplazan.
func Merge(ctx context.Context, dst, src ports.PriceStore) (int, error) {
	codes, err := src.Codes(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage.Merge: list codes: %w", err)
	}

	total := 0
	for _, code := range codes {
		bars, err := src.LoadBars(ctx, code, time.Time{}, time.Time{})
		if err != nil {
			return total, fmt.Errorf("storage.Merge: load %s: %w", code, err)
		}
		if err := dst.SaveBars(ctx, bars); err != nil {
			return total, fmt.Errorf("storage.Merge: save %s: %w", code, err)
		}
		total += len(bars)
		slog.Debug("merged code", "code", code, "bars", len(bars))
	}
	return total, nil
}

// LatestStoredDate devuelve la fecha más reciente entre todos los códigos
// guardados, o zero si el store está vacío.
func LatestStoredDate(ctx context.Context, store ports.PriceStore) (time.Time, error) {
	codes, err := store.Codes(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage.LatestStoredDate: list codes: %w", err)
	}
	var latest time.Time
	for _, code := range codes {
		d, err := store.LatestDate(ctx, code)
		if err != nil {
			return time.Time{}, fmt.Errorf("storage.LatestStoredDate: %s: %w", code, err)
		}
		if d.After(latest) {
			latest = d
		}
	}
	return latest, nil
}

// Rollback borra las barras de una fecha. "latest" resuelve la fecha más
// reciente guardada; si no hay datos no borra nada.
func Rollback(ctx context.Context, store ports.PriceStore, date string) (time.Time, int64, error) {
	var (
		d   time.Time
		err error
	)
	if date == "latest" {
		d, err = LatestStoredDate(ctx, store)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("storage.Rollback: %w", err)
		}
		if d.IsZero() {
			return time.Time{}, 0, nil
		}
	} else {
		d, err = time.Parse(domain.DateLayout, date)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("storage.Rollback: %w", err)
		}
	}

	n, err := store.DeleteDate(ctx, d)
	if err != nil {
		return d, n, fmt.Errorf("storage.Rollback: %w", err)
	}
	return d, n, nil
}
