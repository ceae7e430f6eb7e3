package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/foodlog/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxAttempts  = 3
	maxBodyBytes = 4 << 20
	baseBackoff  = 500 * time.Millisecond
	defaultPage  = 10
	userAgent    = "FoodLog/1.0"
)

// Client handles communication with the USDA FoodData Central API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit replaces the default upstream rate limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 && burst > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new USDA API client
func NewClient(apiKey, baseURL string, opts ...Option) *Client {
	// USDA allows 1000 requests per hour
	// rate.Limit is requests per second, so 1000/3600 ≈ 0.278 requests/sec
	limiter := rate.NewLimiter(rate.Limit(0.278), 10)

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetDebug toggles verbose request logging.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...any) {
	if !c.debug {
		return
	}
	c.logger.Info(fmt.Sprintf(format, args...), zap.String("client", "usda"))
}

// exponentialBackoff returns the wait before retrying after the given attempt.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseBackoff * time.Duration(1<<(attempt-1))
}

func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	return resp, nil
}

// SearchFoods searches for foods in the USDA database
func (c *Client) SearchFoods(ctx context.Context, query string) (*SearchResponse, error) {
	c.debugLog("SearchFoods called with query: %q", query)

	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	params.Add("dataType", "Survey (FNDDS),Foundation,Branded")
	params.Add("pageSize", fmt.Sprint(defaultPage))

	reqURL := fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode())
	if _, err := url.Parse(reqURL); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.logger.Warn("usda request failed", zap.Int("attempt", attempt), zap.Error(err))
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			if attempt < maxAttempts {
				if err := sleepContext(ctx, exponentialBackoff(attempt)); err != nil {
					return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
				}
			}
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			c.debugLog("API error (attempt %d) status %d body %s", attempt, resp.StatusCode, string(body))
			switch {
			case resp.StatusCode == http.StatusNotFound:
				return nil, domain.ErrNotFound
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
				if attempt < maxAttempts {
					if err := sleepContext(ctx, exponentialBackoff(attempt)); err != nil {
						return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
					}
				}
				continue
			default:
				return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
			}
		}

		var searchResp SearchResponse
		if err := json.Unmarshal(body, &searchResp); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamFailure, err)
		}

		if len(searchResp.Foods) == 0 {
			c.debugLog("no foods found for query: %q", query)
			return nil, domain.ErrNotFound
		}

		c.debugLog("found %d foods for query: %q", len(searchResp.Foods), query)
		return &searchResp, nil
	}

	c.logger.Warn("usda retries exhausted", zap.String("query", query), zap.Error(lastErr))
	return nil, lastErr
}

// Lookup implements domain.DatabaseLookup. FoodData Central has no regional
// scopes, so region is ignored, and barcodes are not searched.
func (c *Client) Lookup(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
	if mode != domain.ModeText {
		return nil, domain.ErrNotFound
	}
	resp, err := c.SearchFoods(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrUpstreamTimeout) {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return nil, err
	}
	products := MapToRawProducts(resp.Foods)
	if len(products) == 0 {
		return nil, domain.ErrNotFound
	}
	return products, nil
}

var _ domain.DatabaseLookup = (*Client)(nil)
