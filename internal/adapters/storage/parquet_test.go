package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/adapters/storage"
	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetStore_SaveLoadAcrossYears(t *testing.T) {
	dir := t.TempDir()
	s := storage.NewParquetStore(dir)
	ctx := context.Background()

	require.NoError(t, s.SaveBars(ctx, []domain.Bar{
		makeBar("515450", day(2023, 12, 29), 0.99),
		makeBar("515450", day(2024, 1, 2), 1.00),
		makeBar("515450", day(2024, 1, 3), 1.01),
	}))
	assert.FileExists(t, filepath.Join(dir, "daily", "515450", "2023.parquet"))
	assert.FileExists(t, filepath.Join(dir, "daily", "515450", "2024.parquet"))

	bars, err := s.LoadBars(ctx, "515450", day(2023, 1, 1), time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, day(2023, 12, 29), bars[0].Date)
	assert.InDelta(t, 1.01, bars[2].Close, 1e-12)

	bars, err = s.LoadBars(ctx, "515450", day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	latest, err := s.LatestDate(ctx, "515450")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 3), latest)
}

func TestParquetStore_LatestDateSkipsEmptiedYear(t *testing.T) {
	s := storage.NewParquetStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveBars(ctx, []domain.Bar{
		makeBar("515450", day(2023, 12, 29), 0.99),
		makeBar("515450", day(2024, 1, 2), 1.00),
	}))
	n, err := s.DeleteDate(ctx, day(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := s.LatestDate(ctx, "515450")
	require.NoError(t, err)
	assert.Equal(t, day(2023, 12, 29), latest)
}

func TestParquetStore_MergeReplacesDate(t *testing.T) {
	s := storage.NewParquetStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveBars(ctx, []domain.Bar{makeBar("510210", day(2024, 1, 2), 3.0)}))
	require.NoError(t, s.SaveBars(ctx, []domain.Bar{
		makeBar("510210", day(2024, 1, 2), 3.3),
		makeBar("510210", day(2024, 1, 3), 3.4),
	}))

	bars, err := s.LoadBars(ctx, "510210", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 3.3, bars[0].Close, 1e-12)
}

func TestParquetStore_DeleteDateAndCounts(t *testing.T) {
	s := storage.NewParquetStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SaveBars(ctx, []domain.Bar{
		makeBar("515450", day(2024, 1, 2), 1.0),
		makeBar("515450", day(2024, 1, 3), 1.1),
		makeBar("510210", day(2024, 1, 3), 3.1),
	}))

	counts, err := s.DateCounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, day(2024, 1, 3), counts[0].Date)
	assert.Equal(t, 2, counts[0].Codes)

	n, err := s.DeleteDate(ctx, day(2024, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	bars, err := s.LoadBars(ctx, "515450", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	codes, err := s.Codes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"510210", "515450"}, codes)
}

func TestParquetStore_EmptyDir(t *testing.T) {
	s := storage.NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars, err := s.LoadBars(ctx, "515450", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, bars)

	latest, err := s.LatestDate(ctx, "515450")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestParquetStore_Runs(t *testing.T) {
	s := storage.NewParquetStore(t.TempDir())
	ctx := context.Background()

	run := domain.RunRecord{
		ID:            "33333333-3333-3333-3333-333333333333",
		CreatedAt:     time.Now().UTC(),
		HLCode:        "515450",
		BenchmarkCode: "510210",
		Params:        domain.DefaultParams(),
		Signal:        domain.SignalSell,
		LatestDate:    day(2024, 6, 28),
		LatestDiff:    0.12,
	}
	require.NoError(t, s.SaveRun(ctx, run))

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, domain.SignalSell, runs[0].Signal)
	assert.Equal(t, day(2024, 6, 28), runs[0].LatestDate)
	assert.Equal(t, 40, runs[0].Params.Period)
}
