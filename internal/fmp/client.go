// Package fmp is a minimal Financial Modeling Prep client covering symbol search.
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the FMP stable API.
	DefaultBaseURL = "https://financialmodelingprep.com/stable"

	// DefaultTimeout bounds a symbol search. A slow search is treated as not found.
	DefaultTimeout = 7 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	// maxBodySize caps how much of a response is read.
	maxBodySize = 2 * 1024 * 1024
)

// Client is an FMP API client.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-search timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a new FMP API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = common.GetLogger()
	}

	return c
}

// NewClientFromConfig builds a client from the [fmp] configuration section.
func NewClientFromConfig(config *common.FMPConfig, logger arbor.ILogger) *Client {
	return NewClient(config.APIKey,
		WithBaseURL(config.BaseURL),
		WithTimeout(common.Duration(config.Timeout, DefaultTimeout)),
		WithRateLimit(config.RateLimit),
		WithLogger(logger),
	)
}

// Name identifies the source in logs.
func (c *Client) Name() string {
	return "fmp"
}

// Search calls /search-symbol and converts the rows into candidates.
// A payload that is not a JSON array is reported as an error.
func (c *Client) Search(ctx context.Context, query string) ([]models.SymbolCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)

	var results []SearchResult
	if err := c.get(ctx, "/search-symbol", params, &results); err != nil {
		return nil, err
	}

	candidates := make([]models.SymbolCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, models.SymbolCandidate{
			Symbol:   r.Symbol,
			Name:     r.Name,
			Exchange: r.Exchange,
		})
	}

	c.logger.Debug().
		Str("query", query).
		Int("candidates", len(candidates)).
		Msg("FMP symbol search completed")

	return candidates, nil
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", common.UserAgent())

	c.logger.Debug().
		Str("url", c.baseURL+path).
		Str("query", params.Get("query")).
		Msg("FMP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: time.Minute}
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	// FMP reports key and plan errors as a 200 with an object body
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "unexpected payload: " + truncate(string(trimmed), 200),
			Endpoint:   path,
		}
	}

	if err := json.Unmarshal(trimmed, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
