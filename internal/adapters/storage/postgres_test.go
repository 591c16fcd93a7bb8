package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/adapters/storage"
	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requiere una base de datos desechable: LOWVOL_TEST_PG_DSN=postgres://...
func newPostgres(t *testing.T) *storage.PostgresStorage {
	t.Helper()
	dsn := os.Getenv("LOWVOL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LOWVOL_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	db, err := storage.NewPostgresStorage(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresStorage_RoundTrip(t *testing.T) {
	db := newPostgres(t)
	ctx := context.Background()
	code := "T" + time.Now().Format("150405")
	d := day(2001, 2, 5)

	require.NoError(t, db.SaveBars(ctx, []domain.Bar{makeBar(code, d, 1.234)}))
	t.Cleanup(func() { db.DeleteDate(ctx, d) })

	bars, err := db.LoadBars(ctx, code, d, d)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.InDelta(t, 1.234, bars[0].Close, 1e-9)
	assert.Equal(t, d, bars[0].Date)

	latest, err := db.LatestDate(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, d, latest)
}
