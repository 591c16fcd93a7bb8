package storage

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/lowvolsignal/internal/ports"
)

// Store agrupa las dos capacidades que ofrece cada backend.
type Store interface {
	ports.PriceStore
	ports.RunStore
}

// Open devuelve el backend indicado por driver: sqlite, postgres o parquet.
func Open(ctx context.Context, driver, dsn, dataDir string) (Store, error) {
	switch driver {
	case "", "sqlite":
		s, err := NewSQLiteStorage(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStorage(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "parquet":
		return NewParquetStore(dataDir), nil
	}
	return nil, fmt.Errorf("storage.Open: unknown driver %q", driver)
}
