package eastmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/ports"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://push2his.eastmoney.com"
	klinePath      = "/api/qt/stock/kline/get"

	// El endpoint de klines no documenta límites; 5 req/s es conservador
	// y sobra para dos instrumentos por ejecución.
	defaultRatePerSec = 5

	maxRetries    = 3
	baseRetryWait = 200 * time.Millisecond
)

// Client es el HTTP client del servicio de klines de Eastmoney con rate limiting y retries.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	adjust  Adjust
}

// NewClient crea un Client. baseURL vacío usa producción; ratePerSec <= 0 usa el default.
func NewClient(baseURL string, ratePerSec float64, adjust Adjust) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 2),
		adjust:  adjust,
	}
}

// transientError marca fallos que merece la pena reintentar: red, 429, 5xx
// o un payload con rc != 0.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// klines pide la serie al endpoint de klines con rate limiting y reintentos.
// Agotados los reintentos devuelve ports.ErrUnavailable para que la cadena
// pase a la siguiente fuente.
func (c *Client) klines(ctx context.Context, q url.Values) (*klineData, error) {
	endpoint := c.baseURL + klinePath + "?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		data, err := c.klinesOnce(ctx, endpoint)
		if err == nil {
			return data, nil
		}
		var te *transientError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastErr = err
		slog.Warn("kline request failed", "attempt", attempt+1, "err", err)
	}
	return nil, fmt.Errorf("%w: %d attempts: %w", ports.ErrUnavailable, maxRetries+1, lastErr)
}

func (c *Client) klinesOnce(ctx context.Context, endpoint string) (*klineData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, &transientError{fmt.Errorf("server status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
	}

	var kr klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// rc distinto de 0 es un error del servicio, normalmente pasajero.
	if kr.RC != 0 {
		return nil, &transientError{fmt.Errorf("kline rc=%d", kr.RC)}
	}
	return kr.Data, nil
}

// backoff duplica la espera en cada intento y corta si el contexto se cancela.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(baseRetryWait << (attempt - 1))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
