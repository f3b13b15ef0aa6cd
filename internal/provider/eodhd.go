package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/logger"
)

// SourceEODHD is the provider name of the EODHD HTTP source.
const SourceEODHD = "eodhd"

const (
	defaultEODHDBaseURL = "https://eodhd.com/api"
	defaultTimeout      = 30 * time.Second
	defaultRateLimit    = 10 // requests per second
)

// EODHD fetches bars from the EODHD REST API.
type EODHD struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// EODHDOption configures the client.
type EODHDOption func(*EODHD)

// WithBaseURL overrides the API base URL (mainly for tests).
func WithBaseURL(baseURL string) EODHDOption {
	return func(c *EODHD) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithRateLimit sets the request rate limit per second.
func WithRateLimit(requestsPerSecond int) EODHDOption {
	return func(c *EODHD) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(timeout time.Duration) EODHDOption {
	return func(c *EODHD) {
		c.httpClient.Timeout = timeout
	}
}

// NewEODHD creates an EODHD source.
func NewEODHD(apiToken string, opts ...EODHDOption) *EODHD {
	c := &EODHD{
		baseURL:  defaultEODHDBaseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EODHD) Name() string { return SourceEODHD }

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eodhd API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

type eodBarJSON struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        int64       `json:"volume"`
}

type intradayBarJSON struct {
	Timestamp int64       `json:"timestamp"`
	Open      flexFloat64 `json:"open"`
	High      flexFloat64 `json:"high"`
	Low       flexFloat64 `json:"low"`
	Close     flexFloat64 `json:"close"`
	Volume    int64       `json:"volume"`
}

// get performs a rate-limited GET request and decodes the JSON body.
func (c *EODHD) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiToken)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	logger.With("eodhd").Debug().Str("path", path).Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Daily retrieves end-of-day bars for [start, end].
func (c *EODHD) Daily(ctx context.Context, ticker string, start, end time.Time) (models.BarSeries, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", start.Format("2006-01-02"))
	params.Set("to", end.Format("2006-01-02"))

	var raw []eodBarJSON
	if err := c.get(ctx, "/eod/"+ticker, params, &raw); err != nil {
		return models.BarSeries{}, err
	}

	series := models.BarSeries{Ticker: ticker, Bars: make([]models.Bar, 0, len(raw))}
	for _, b := range raw {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return models.BarSeries{}, fmt.Errorf("parse bar date %q: %w", b.Date, err)
		}
		series.Bars = append(series.Bars, models.Bar{
			Date:     date.UTC(),
			Open:     float64(b.Open),
			High:     float64(b.High),
			Low:      float64(b.Low),
			Close:    float64(b.Close),
			AdjClose: float64(b.AdjustedClose),
			Volume:   b.Volume,
		})
	}
	sortBars(series.Bars)
	if err := series.Validate(); err != nil {
		return models.BarSeries{}, err
	}
	return series, nil
}

// Intraday retrieves interval bars for one trading day.
func (c *EODHD) Intraday(ctx context.Context, ticker string, day time.Time, interval string) (models.BarSeries, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("from", strconv.FormatInt(dayStart.Unix(), 10))
	params.Set("to", strconv.FormatInt(dayStart.AddDate(0, 0, 1).Unix(), 10))

	var raw []intradayBarJSON
	if err := c.get(ctx, "/intraday/"+ticker, params, &raw); err != nil {
		return models.BarSeries{}, err
	}

	series := models.BarSeries{Ticker: ticker, Bars: make([]models.Bar, 0, len(raw))}
	for _, b := range raw {
		ts := time.Unix(b.Timestamp, 0).UTC()
		series.Bars = append(series.Bars, models.Bar{
			Date:     ts,
			Open:     float64(b.Open),
			High:     float64(b.High),
			Low:      float64(b.Low),
			Close:    float64(b.Close),
			AdjClose: float64(b.Close),
			Volume:   b.Volume,
		})
	}
	sortBars(series.Bars)
	if err := series.Validate(); err != nil {
		return models.BarSeries{}, err
	}
	return series, nil
}

func sortBars(bars []models.Bar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}
