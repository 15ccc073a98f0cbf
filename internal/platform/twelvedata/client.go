// Package twelvedata is a REST client for the Twelve Data market data API,
// covering the quote, time series and indicator endpoints the market
// snapshot needs.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Client is the REST client for the Twelve Data API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Twelve Data REST client. baseURL may be empty to
// use the public API root.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetQuote returns the real-time quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{"symbol": {symbol}}

	var quote Quote
	if err := c.get(ctx, "/quote", params, &quote); err != nil {
		return Quote{}, fmt.Errorf("twelvedata: get quote %s: %w", symbol, err)
	}
	return quote, nil
}

// GetTimeSeries returns up to outputSize bars for the symbol at the given
// interval (e.g. "5min"), newest first.
func (c *Client) GetTimeSeries(ctx context.Context, symbol, interval string, outputSize int) ([]Candle, error) {
	params := url.Values{
		"symbol":   {symbol},
		"interval": {interval},
	}
	if outputSize > 0 {
		params.Set("outputsize", strconv.Itoa(outputSize))
	}

	var resp struct {
		Values []Candle `json:"values"`
	}
	if err := c.get(ctx, "/time_series", params, &resp); err != nil {
		return nil, fmt.Errorf("twelvedata: get time series %s: %w", symbol, err)
	}
	return resp.Values, nil
}

// GetRSI returns the latest RSI value for the symbol at the given interval.
func (c *Client) GetRSI(ctx context.Context, symbol, interval string) (IndicatorValue, error) {
	return c.latestIndicator(ctx, "/rsi", symbol, interval)
}

// GetVWAP returns the latest VWAP value for the symbol at the given interval.
func (c *Client) GetVWAP(ctx context.Context, symbol, interval string) (IndicatorValue, error) {
	return c.latestIndicator(ctx, "/vwap", symbol, interval)
}

// GetEMA returns the latest EMA for the symbol with the given period.
func (c *Client) GetEMA(ctx context.Context, symbol, interval string, period int) (IndicatorValue, error) {
	params := url.Values{
		"symbol":      {symbol},
		"interval":    {interval},
		"time_period": {strconv.Itoa(period)},
		"outputsize":  {"1"},
	}

	var resp struct {
		Values []IndicatorValue `json:"values"`
	}
	if err := c.get(ctx, "/ema", params, &resp); err != nil {
		return IndicatorValue{}, fmt.Errorf("twelvedata: get ema %s: %w", symbol, err)
	}
	if len(resp.Values) == 0 {
		return IndicatorValue{}, fmt.Errorf("twelvedata: get ema %s: empty series", symbol)
	}
	return resp.Values[0], nil
}

// GetMACD returns the latest MACD line, signal and histogram for the symbol.
func (c *Client) GetMACD(ctx context.Context, symbol, interval string) (IndicatorValue, error) {
	return c.latestIndicator(ctx, "/macd", symbol, interval)
}

func (c *Client) latestIndicator(ctx context.Context, path, symbol, interval string) (IndicatorValue, error) {
	params := url.Values{
		"symbol":     {symbol},
		"interval":   {interval},
		"outputsize": {"1"},
	}

	var resp struct {
		Values []IndicatorValue `json:"values"`
	}
	if err := c.get(ctx, path, params, &resp); err != nil {
		return IndicatorValue{}, fmt.Errorf("twelvedata: get %s %s: %w", path, symbol, err)
	}
	if len(resp.Values) == 0 {
		return IndicatorValue{}, fmt.Errorf("twelvedata: get %s %s: empty series", path, symbol)
	}
	return resp.Values[0], nil
}

// get sends a GET request and decodes the response into out. The API reports
// errors inside an HTTP 200 body, so the envelope is checked first.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("apikey", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Status == "error" {
		return fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
