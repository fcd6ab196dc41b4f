package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/model"
	httpClient "github.com/Alias1177/Allocator/internal/platform/http"
)

// DefaultBaseURL is the public Yahoo Finance chart endpoint host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches daily adjusted close prices from the Yahoo Finance chart API
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Yahoo client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Yahoo Finance client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Name:            "yahoo",
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "yahoo_client").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchDaily fetches the daily adjusted close history of ticker between start and end.
// Null closes are kept as NaN gaps.
func (c *Client) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	c.logger.Debug().Str("ticker", ticker).Str("url", endpoint).Msg("Fetching daily prices")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; allocator/1.0)")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var data chartResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("ticker", ticker).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if e := data.Chart.Error; e != nil {
		return nil, fmt.Errorf("Yahoo API error for %s: %s: %s", ticker, e.Code, e.Description)
	}
	if len(data.Chart.Result) == 0 {
		c.logger.Warn().Str("ticker", ticker).Msg("No chart result in response")
		return nil, nil
	}

	points := parseResult(data.Chart.Result[0])
	c.logger.Debug().Str("ticker", ticker).Int("count", len(points)).Msg("Fetched daily prices")
	return points, nil
}

func parseResult(r chartResult) []model.PricePoint {
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	points := make([]model.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		v := math.NaN()
		if i < len(closes) && closes[i] != nil {
			v = *closes[i]
		}
		// exchange-local calendar date of the session
		date := model.TruncateDay(time.Unix(ts+r.Meta.GMTOffset, 0))
		if n := len(points); n > 0 && points[n-1].Date.Equal(date) {
			points[n-1].Close = v
			continue
		}
		points = append(points, model.PricePoint{Date: date, Close: v})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
