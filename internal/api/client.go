package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

const (
	defaultTimeout = 300 * time.Second

	// maxBodySize caps non-streaming response bodies
	maxBodySize = 4 << 20

	// maxErrorBody caps how much of a failed response is kept for logs
	maxErrorBody = 4096
)

// Client talks to the docchat backend
type Client struct {
	httpClient         tls_client.HttpClient
	baseURL            string
	timeout            time.Duration
	proxy              string
	insecureSkipVerify bool
	mu                 sync.RWMutex
	closed             bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL sets the server base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds each request. Buffered endpoints must complete within
// it; the chat stream only has to start answering, and may then stream for
// as long as the server keeps sending.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithProxy routes requests through an HTTP or SOCKS proxy
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxy = proxyURL
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		c.insecureSkipVerify = skip
	}
}

// WithHTTPClient injects the underlying HTTP client
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		baseURL: models.DefaultServerURL,
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.baseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	if !strings.HasPrefix(client.baseURL, "http://") && !strings.HasPrefix(client.baseURL, "https://") {
		return nil, fmt.Errorf("server URL must start with http:// or https://: %s", client.baseURL)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			// Deadlines are set per request, see readBody and StreamChat.
			tls_client.WithTimeoutSeconds(0),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}
		if client.proxy != "" {
			options = append(options, tls_client.WithProxyUrl(client.proxy))
		}
		if client.insecureSkipVerify {
			options = append(options, tls_client.WithInsecureSkipVerify())
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections. Further requests fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// newRequest builds a request for path with the given headers. A non-nil
// body is encoded as JSON.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Request, error) {
	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// do sends req and returns the response once its status is a success.
// On failure the body is closed and a TransportError is returned.
func (c *Client) do(req *http.Request, path string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("component", "api").Str("endpoint", path).Msg("request failed")
		return nil, apierrors.NewNetworkError(path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		log.Debug().
			Str("component", "api").
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("request rejected")
		return nil, apierrors.NewTransportError(resp.StatusCode, path)
	}

	log.Debug().
		Str("component", "api").
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("response received")
	return resp, nil
}

// readBody performs a request and returns the full response body
func (c *Client) readBody(ctx context.Context, method, path string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body, models.DefaultHeaders())
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apierrors.NewNetworkError(path, err)
	}
	return data, nil
}
