package eastmoney

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
)

// Adjust es el modo de ajuste por dividendos de la serie.
type Adjust string

const (
	AdjustNone     Adjust = ""
	AdjustForward  Adjust = "qfq"
	AdjustBackward Adjust = "hfq"
)

func (a Adjust) fqt() string {
	switch a {
	case AdjustForward:
		return "1"
	case AdjustBackward:
		return "2"
	default:
		return "0"
	}
}

// ParseAdjust acepta "", "none", "qfq" o "hfq".
func ParseAdjust(s string) (Adjust, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AdjustNone, nil
	case "qfq":
		return AdjustForward, nil
	case "hfq":
		return AdjustBackward, nil
	}
	return AdjustNone, fmt.Errorf("eastmoney.ParseAdjust: unknown adjust mode %q", s)
}

// Name implementa ports.PriceProvider.
func (c *Client) Name() string { return "eastmoney" }

// FetchDaily implementa ports.PriceProvider usando el endpoint de klines diarias.
// Un código desconocido devuelve ports.ErrUnavailable.
func (c *Client) FetchDaily(ctx context.Context, code string, start time.Time) ([]domain.Bar, error) {
	secid, err := secID(code)
	if err != nil {
		return nil, fmt.Errorf("eastmoney.FetchDaily: %w", err)
	}

	q := url.Values{}
	q.Set("secid", secid)
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	q.Set("klt", "101")
	q.Set("fqt", c.adjust.fqt())
	q.Set("beg", start.Format("20060102"))
	q.Set("end", "20500101")

	data, err := c.klines(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("eastmoney.FetchDaily %s: %w", code, err)
	}
	if data == nil || len(data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney.FetchDaily %s: empty kline payload: %w", code, ports.ErrUnavailable)
	}

	bars := make([]domain.Bar, 0, len(data.Klines))
	skipped := 0
	for _, line := range data.Klines {
		bar, ok := parseKline(code, line)
		if !ok {
			skipped++
			continue
		}
		bars = append(bars, bar)
	}
	if skipped > 0 {
		slog.Debug("skipped malformed klines", "code", code, "skipped", skipped)
	}

	slog.Debug("klines fetched", "code", code, "name", data.Name, "bars", len(bars))
	return bars, nil
}

// secID antepone el mercado: 1 = Shanghai (5xxxxx, 6xxxxx, 9xxxxx), 0 = Shenzhen.
func secID(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return "", fmt.Errorf("invalid instrument code %q", code)
	}
	switch code[0] {
	case '5', '6', '9':
		return "1." + code, nil
	default:
		return "0." + code, nil
	}
}

// parseKline interpreta "fecha,open,close,high,low,volumen,importe[,...]".
// Un precio no numérico queda como NaN; el alineador lo descarta después.
func parseKline(code, line string) (domain.Bar, bool) {
	f := strings.Split(line, ",")
	if len(f) < 7 {
		return domain.Bar{}, false
	}
	date, err := time.Parse(domain.DateLayout, f[0])
	if err != nil {
		return domain.Bar{}, false
	}
	return domain.Bar{
		Code:   code,
		Date:   date,
		Open:   domain.ParsePrice(f[1]),
		Close:  domain.ParsePrice(f[2]),
		High:   domain.ParsePrice(f[3]),
		Low:    domain.ParsePrice(f[4]),
		Amount: domain.ParsePrice(f[6]),
	}, true
}
