package tiledclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// API endpoint constants
const (
	// Base API path
	apiBasePath = "/api/v1"

	endpointMetadata  = apiBasePath + "/metadata"
	endpointSearch    = apiBasePath + "/search"
	endpointArrayFull = apiBasePath + "/array/full"

	// page size used when listing the children of a node
	searchPageSize = 300
)

// Client represents a Tiled API client
type Client struct {
	ctx        context.Context
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a new Tiled client. Requests are traced with the
// global OpenTelemetry provider.
func NewClient(baseURL string) *Client {
	// Ensure baseURL doesn't end with a slash
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		ctx:     context.Background(),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: httpClient,
		apiKey:     c.apiKey,
		logger:     c.logger,
	}
}

func (c *Client) WithContext(ctx context.Context) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		apiKey:     c.apiKey,
		logger:     c.logger,
	}
}

func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		apiKey:     c.apiKey,
		logger:     logger,
	}
}

// WithAPIKey authenticates requests with a Tiled API key.
func (c *Client) WithAPIKey(apiKey string) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		apiKey:     apiKey,
		logger:     c.logger,
	}
}

func (c *Client) GetLogger() *slog.Logger {
	return c.logger
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// nodePath escapes every segment of a node path.
func nodePath(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		for _, part := range strings.Split(strings.Trim(s, "/"), "/") {
			if part != "" {
				escaped = append(escaped, url.PathEscape(part))
			}
		}
	}
	return "/" + strings.Join(escaped, "/")
}

// doRequest performs a GET request to the Tiled API
func (c *Client) doRequest(endpoint string, query url.Values) ([]byte, error) {
	c.logger.Debug("Tiled request started", "endpoint", endpoint)

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Info("Tiled request errored", "endpoint", endpoint, "stage", "failed to create request", "error", err.Error())
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Info("Tiled request errored", "endpoint", endpoint, "stage", "failed to execute request", "error", err.Error())
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Info("Tiled request errored", "endpoint", endpoint, "stage", "failed to read response body", "error", err.Error())
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode:   resp.StatusCode,
			ResponseBody: string(respBody),
		}
		tiledError := TiledError{}
		if err := json.Unmarshal(respBody, &tiledError); err == nil && tiledError.Detail != nil {
			apiErr.TiledError = &tiledError
		}
		c.logger.Info("Tiled request failed", "endpoint", endpoint, "status", resp.StatusCode, "response", apiErr.ResponseBody)
		return nil, apiErr
	}

	c.logger.Debug("Tiled request successful", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(respBody))
	return respBody, nil
}

// unmarshalResponse unmarshals JSON response body into a value of type T
func unmarshalResponse[T any](respBody []byte) (*T, error) {
	var response T
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &response, nil
}
