package eastmoney_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/adapters/eastmoney"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDaily_Success(t *testing.T) {
	data, err := os.ReadFile("../../../testdata/fixtures/eastmoney_kline_515450.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/qt/stock/kline/get", r.URL.Path)
		assert.Equal(t, "1.515450", r.URL.Query().Get("secid"))
		assert.Equal(t, "2", r.URL.Query().Get("fqt"))
		assert.Equal(t, "20240101", r.URL.Query().Get("beg"))
		assert.Equal(t, "101", r.URL.Query().Get("klt"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	client := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustBackward)
	bars, err := client.FetchDaily(context.Background(), "515450", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 4)

	b := bars[0]
	assert.Equal(t, "515450", b.Code)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), b.Date)
	assert.InDelta(t, 1.020, b.Open, 1e-9)
	assert.InDelta(t, 1.031, b.Close, 1e-9)
	assert.InDelta(t, 1.035, b.High, 1e-9)
	assert.InDelta(t, 1.018, b.Low, 1e-9)
	assert.InDelta(t, 52731200.0, b.Amount, 1e-6)

	// Cierre "-" se conserva como NaN para que el alineador lo descarte.
	assert.True(t, math.IsNaN(bars[2].Close))
	assert.Equal(t, "eastmoney", client.Name())
}

func TestFetchDaily_ShenzhenSecID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0.159905", r.URL.Query().Get("secid"))
		assert.Equal(t, "0", r.URL.Query().Get("fqt"))
		w.Write([]byte(`{"rc":0,"data":{"code":"159905","klines":["2024-01-02,1,1,1,1,1,1"]}}`))
	}))
	defer srv.Close()

	bars, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "159905", time.Now())
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestFetchDaily_UnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rc":0,"data":null}`))
	}))
	defer srv.Close()

	_, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "515999", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnavailable)
}

func TestFetchDaily_InvalidCode(t *testing.T) {
	_, err := eastmoney.NewClient("http://127.0.0.1:1", 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "51", time.Now())
	assert.Error(t, err)
}

func TestFetchDaily_ClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "510210", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client error 400")
	assert.Equal(t, 1, calls, "4xx no se reintenta")
}

func TestFetchDaily_RetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rc":0,"data":{"code":"510210","klines":["2024-01-02,1,2,2,1,1,1"]}}`))
	}))
	defer srv.Close()

	bars, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "510210", time.Now())
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 2, calls)
	assert.InDelta(t, 2.0, bars[0].Close, 1e-9)
}

func TestFetchDaily_RetriesNonZeroRC(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"rc":102,"data":null}`))
			return
		}
		w.Write([]byte(`{"rc":0,"data":{"code":"510210","klines":["2024-01-02,1,2,2,1,1,1"]}}`))
	}))
	defer srv.Close()

	bars, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "510210", time.Now())
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchDaily_PersistentFailureIsUnavailable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"rc":102,"data":null}`))
	}))
	defer srv.Close()

	_, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(context.Background(), "510210", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Contains(t, err.Error(), "rc=102")
	assert.Equal(t, 4, calls)
}

func TestFetchDaily_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := eastmoney.NewClient(srv.URL, 100, eastmoney.AdjustNone).FetchDaily(ctx, "510210", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ports.ErrUnavailable)
}

func TestParseAdjust(t *testing.T) {
	a, err := eastmoney.ParseAdjust("HFQ")
	require.NoError(t, err)
	assert.Equal(t, eastmoney.AdjustBackward, a)

	a, err = eastmoney.ParseAdjust("none")
	require.NoError(t, err)
	assert.Equal(t, eastmoney.AdjustNone, a)

	_, err = eastmoney.ParseAdjust("split")
	assert.Error(t, err)
}
