package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/chart"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// Client talks to the upstream stock-data provider. It serves two roles:
// a remote chart.DataProvider when the API delegates chart assembly, and
// the bar source for the feed updater's backfill.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// NewClient creates a stock-data provider client
func NewClient(cfg *config.DataSourceConfig, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger.WithField("component", "datasource"),
	}
}

// ChartData fetches a fully assembled chart payload from the provider
func (c *Client) ChartData(ctx context.Context, symbol, period string, view chart.ViewType, indicators []string) (*models.ChartData, error) {
	params := url.Values{}
	params.Set("period", period)
	if view != "" {
		params.Set("view", string(view))
	}
	if len(indicators) > 0 {
		params.Set("indicators", strings.Join(indicators, ","))
	}

	var data models.ChartData
	endpoint := fmt.Sprintf("%s/%s/chart?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	if err := c.getJSON(ctx, endpoint, &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// History fetches daily bars for a symbol in [from, to)
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]*models.Bar, error) {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var payload struct {
		Symbol string       `json:"symbol"`
		Bars   []models.Bar `json:"bars"`
	}
	endpoint := fmt.Sprintf("%s/%s/history?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	bars := make([]*models.Bar, len(payload.Bars))
	for i := range payload.Bars {
		payload.Bars[i].Symbol = symbol
		bars[i] = &payload.Bars[i]
	}

	return bars, nil
}

// Quote fetches the latest quote for a symbol
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var quote models.Quote
	endpoint := fmt.Sprintf("%s/%s/quote", c.baseURL, url.PathEscape(symbol))
	if err := c.getJSON(ctx, endpoint, &quote); err != nil {
		return nil, err
	}

	return &quote, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d for %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
