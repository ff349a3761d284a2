package fareapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faresight/faresight-go/internal/cache"
	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/models"
)

// CachedFetcher serves GET requests through the response cache and its retry
// layer. Satisfied by *cache.ResponseCache.
type CachedFetcher interface {
	FetchWithCache(ctx context.Context, url string, opts *cache.RequestOptions, ttl time.Duration, forceRefresh bool) (json.RawMessage, error)
}

// Client is the HTTP client for the external fare-history aggregator.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	timeout    time.Duration
	fetcher    CachedFetcher
}

// NewClient creates a new aggregator client instance.
func NewClient(cfg *config.FareAPIConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout: timeout,
	}
}

// WithCache routes fare-history requests through the given cached fetcher.
// Health checks stay direct so outages are not masked by cached responses.
func (c *Client) WithCache(fetcher CachedFetcher) *Client {
	c.fetcher = fetcher
	return c
}

// HealthCheck checks if the aggregator service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	err := c.makeRequest(ctx, "GET", "/health", nil, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetFareHistory retrieves the trailing daily fare series for a route.
func (c *Client) GetFareHistory(ctx context.Context, origin, destination string, days int) (*FareHistoryResponse, error) {
	path := fmt.Sprintf("/api/fares/history/%s/%s", url.PathEscape(origin), url.PathEscape(destination))
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}

	var response FareHistoryResponse
	if c.fetcher != nil {
		header := http.Header{}
		header.Set("Accept", "application/json")
		header.Set("User-Agent", "Faresight-Go/1.0")
		payload, err := c.fetcher.FetchWithCache(ctx, c.BaseURL+path, &cache.RequestOptions{Header: header}, 0, false)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return &response, nil
	}

	err := c.makeRequest(ctx, "GET", path, nil, &response)
	return &response, err
}

// FetchDailyHistory implements the prediction engine's history source over
// the aggregator API. The returned series is ordered oldest to newest.
func (c *Client) FetchDailyHistory(ctx context.Context, origin, destination string, days int) ([]models.HistoricalFare, error) {
	response, err := c.GetFareHistory(ctx, origin, destination, days)
	if err != nil {
		return nil, err
	}

	history := make([]models.HistoricalFare, 0, len(response.Fares))
	for _, day := range response.Fares {
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid fare date %q: %w", day.Date, err)
		}
		if day.Price.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("non-positive fare price for %s: %s", day.Date, day.Price)
		}
		history = append(history, models.HistoricalFare{
			Date:         date,
			Price:        day.Price,
			Demand:       day.Demand,
			Availability: day.Availability,
		})
	}
	return history, nil
}

// makeRequest is a helper method to make HTTP requests to the aggregator.
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Faresight-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("fare service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("fare service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// Close closes the HTTP client (if needed for cleanup).
func (c *Client) Close() error {
	// HTTP client doesn't need explicit closing, but this method
	// is provided for interface compatibility
	return nil
}
