package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/httputil"
	"github.com/wonny/etfmomo/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrSymbolNotFound is returned when Yahoo has no chart for the symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo chart calls happen in this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new Yahoo client. An empty baseURL selects DefaultBaseURL.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}

	st := gobreaker.Settings{
		Name:     "yahoo-chart",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
		// an unknown symbol is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSymbolNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

// FetchDaily returns adjusted daily bars for symbol with dates in [from, to], oldest first.
// Close is the dividend/split adjusted close; open, high and low are scaled by the
// same factor. Rows without a close are skipped.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchChart(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}

	bars := out.([]contracts.Bar)
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// BreakerState exposes the breaker state for health reporting
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) chartURL(symbol string, from, to time.Time) string {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", dayStart(from).Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", dayStart(to).AddDate(0, 0, 1).Unix()))
	params.Set("events", "div,splits")
	params.Set("includeAdjustedClose", "true")

	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
}

func (c *Client) fetchChart(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	var resp chartResponse
	err := c.httpClient.GetJSON(ctx, c.chartURL(symbol, from, to), &resp)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("chart request for %s failed: %w", symbol, err)
	}

	bars, err := resp.bars()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return clip(bars, from, to), nil
}

// clip keeps bars dated within [from, to]
func clip(bars []contracts.Bar, from, to time.Time) []contracts.Bar {
	lo, hi := dayStart(from), dayStart(to)
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(lo) || b.Date.After(hi) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
