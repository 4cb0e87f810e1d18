package generator

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
)

const (
	// DefaultEndpoint is the DeepAI cute creature generator.
	DefaultEndpoint = "https://api.deepai.org/api/cute-creature-generator"
	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 1 << 20
)

var (
	// ErrGenerationFailed reports a non-2xx answer or a failed request.
	ErrGenerationFailed = errors.New("generator: generation failed")
	// ErrGenerationUnparseable reports a response without a usable output URL.
	ErrGenerationUnparseable = errors.New("generator: unparseable response")
)

// StatusError carries the HTTP status of a rejected generation request.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generator: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("generator: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrGenerationFailed) match status failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Generator turns a prompt into an image URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the HTTP client.
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the image generation API.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient builds a Client, filling in defaults for empty settings.
func NewClient(cfg Config) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: endpoint, apiKey: cfg.APIKey, client: client}
}

type generateResponse struct {
	OutputURL string `json:"output_url"`
}

// Generate posts the prompt and returns the generated image URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	form := url.Values{}
	form.Set("text", prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload generateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnparseable, err)
	}
	if strings.TrimSpace(payload.OutputURL) == "" {
		return "", fmt.Errorf("%w: missing output_url", ErrGenerationUnparseable)
	}
	return payload.OutputURL, nil
}
