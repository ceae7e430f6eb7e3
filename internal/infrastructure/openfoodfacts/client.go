package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/infrastructure/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	regionPlaceholder = "{cc}"
	maxBodyBytes      = 8 << 20
	defaultPageSize   = 5
)

// Config holds Open Food Facts client settings.
type Config struct {
	// BaseURL is the regional host template, e.g. https://{cc}.openfoodfacts.org
	BaseURL string
	// WorldURL is queried for the global scope.
	WorldURL  string
	Timeout   time.Duration
	UserAgent string
	PageSize  int
	// RatePerSecond and Burst bound outgoing requests; zero keeps the default.
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns settings for the public Open Food Facts hosts.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "https://{cc}.openfoodfacts.org",
		WorldURL:      "https://world.openfoodfacts.org",
		Timeout:       5 * time.Second,
		UserAgent:     "FoodLog/1.0",
		PageSize:      defaultPageSize,
		RatePerSecond: 1,
		Burst:         10,
	}
}

// Client queries Open Food Facts by barcode or by free text, region first.
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// NewClient creates an Open Food Facts client. Zero config fields fall back
// to DefaultConfig.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.WorldURL == "" {
		cfg.WorldURL = def.WorldURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		config:      cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker:     resilience.NewBreaker(resilience.DefaultBreakerConfig("openfoodfacts"), logger),
		logger:      logger,
	}
}

// host returns the API host for a region; empty means world.
func (c *Client) host(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" || region == "world" {
		return strings.TrimRight(c.config.WorldURL, "/")
	}
	return strings.TrimRight(strings.ReplaceAll(c.config.BaseURL, regionPlaceholder, region), "/")
}

// Lookup implements domain.DatabaseLookup.
func (c *Client) Lookup(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
	host := c.host(region)

	result, err := c.breaker.Execute(func() (any, error) {
		switch mode {
		case domain.ModeBarcode:
			p, err := c.GetProduct(ctx, host, query)
			if err != nil {
				return nil, err
			}
			return []Product{*p}, nil
		default:
			return c.Search(ctx, host, query)
		}
	})
	if err != nil {
		return nil, resilience.Unwrap(err)
	}

	products := MapToRawProducts(result.([]Product))
	if len(products) == 0 {
		return nil, domain.ErrNotFound
	}
	return products, nil
}

// GetProduct fetches one product by barcode.
func (c *Client) GetProduct(ctx context.Context, host, code string) (*Product, error) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", host, url.PathEscape(code))

	var resp productResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 1 || resp.Product == nil {
		return nil, domain.ErrNotFound
	}
	if resp.Product.Code == "" {
		resp.Product.Code = code
	}
	return resp.Product, nil
}

// Search runs a full-text product search.
func (c *Client) Search(ctx context.Context, host, terms string) ([]Product, error) {
	params := url.Values{}
	params.Set("search_terms", terms)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", fmt.Sprint(c.config.PageSize))
	reqURL := fmt.Sprintf("%s/cgi/search.pl?%s", host, params.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Products) == 0 {
		return nil, domain.ErrNotFound
	}
	return resp.Products, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("openfoodfacts request",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamFailure, err)
	}
	return nil
}

var _ domain.DatabaseLookup = (*Client)(nil)
