package estimator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/infrastructure/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Config holds the chat completion endpoint settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// Message is one chat message. Content is a string or a list of parts.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type Choice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Choices []Choice `json:"choices"`
}

// Client talks to an OpenAI compatible chat completions API.
type Client struct {
	config  Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates an estimator client. An empty API key yields a client
// whose every call fails with domain.ErrEstimatorDisabled.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewBreaker(resilience.DefaultBreakerConfig("estimator"), logger),
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// Estimate implements domain.GenerativeEstimator.
func (c *Client) Estimate(ctx context.Context, query string) (*domain.RawEstimate, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: textPrompt(query)},
	}

	content, err := c.Chat(ctx, c.config.Model, messages, 600, true)
	if err != nil {
		return nil, err
	}

	payload, err := parsePayload(content)
	if err != nil {
		c.logger.Warn("estimate not parseable", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	est := &domain.RawEstimate{
		Name:         stringField(payload, "name"),
		BaseQuantity: numberField(payload, "base_qty"),
		BaseUnit:     domain.ParseUnit(stringField(payload, "unit")),
		Payload:      payload,
	}
	return est, nil
}

// EstimateImage implements domain.ImageEstimator.
func (c *Client) EstimateImage(ctx context.Context, image []byte, contentType string) (*domain.ImageEstimate, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidRequest, contentType)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
	messages := []Message{
		{
			Role: "user",
			Content: []ContentPart{
				{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
				{Type: "text", Text: visionPrompt()},
			},
		},
	}

	content, err := c.Chat(ctx, c.config.VisionModel, messages, 500, false)
	if err != nil {
		return nil, err
	}

	payload, err := parsePayload(content)
	if err != nil {
		c.logger.Warn("vision estimate not parseable", zap.Error(err))
		return nil, err
	}

	return &domain.ImageEstimate{
		Name:            stringField(payload, "name"),
		EstimatedWeight: numberField(payload, "estimated_weight_g"),
		Payload:         payload,
	}, nil
}

// Chat sends one completion request and returns the first choice.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, maxTokens int, jsonMode bool) (string, error) {
	if !c.Enabled() {
		return "", domain.ErrEstimatorDisabled
	}

	reqBody := ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, jsonData)
	})
	if err != nil {
		return "", resilience.Unwrap(err)
	}
	return out.(string), nil
}

func (c *Client) do(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", domain.ErrUpstreamFailure, err)
	}

	c.logger.Debug("chat completion",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API error (status %d): %s", domain.ErrUpstreamFailure, resp.StatusCode, truncate(string(body), 200))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", domain.ErrUpstreamFailure, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices returned", domain.ErrMalformedEstimate)
	}
	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var (
	_ domain.GenerativeEstimator = (*Client)(nil)
	_ domain.ImageEstimator      = (*Client)(nil)
)
