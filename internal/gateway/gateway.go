// Package gateway is the REST boundary to the remote incentive compensation
// system. All higher layers speak to the remote exclusively through the
// Gateway interface, which keeps the orchestrator testable against a fake.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planlytics/planforge/internal/ctxlog"
)

// APIPath is the fixed REST resource path of the remote system. It is
// appended to the configured base URL; a base URL that already carries it is
// sanitized so the path never doubles.
const APIPath = "/fscmRestApi/resources/11.13.18.05"

// Gateway performs REST calls against the remote system. The returned map is
// the decoded JSON body (nil when the body is empty or not JSON), the int is
// the HTTP status. err is non-nil only for transport-level failures; HTTP
// error statuses pass through for the caller to interpret.
type Gateway interface {
	Get(ctx context.Context, endpoint string) (map[string]any, int, error)
	Post(ctx context.Context, endpoint string, body map[string]any) (map[string]any, int, error)
	Patch(ctx context.Context, endpoint string, body map[string]any) (map[string]any, int, error)
}

// Client is the production Gateway over net/http with basic auth.
type Client struct {
	baseURL      string
	username     string
	password     string
	httpClient   *http.Client
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option adjusts a Client.
type Option func(*Client)

// WithTimeouts overrides the per-call deadlines for reads (GET) and writes
// (POST, PATCH).
func WithTimeouts(read, write time.Duration) Option {
	return func(c *Client) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
	}
}

// NewClient builds a Client for the given base URL and credentials. A
// trailing APIPath on the base URL is stripped so URLs are always built the
// same way.
func NewClient(baseURL, username, password string, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	base = strings.TrimSuffix(base, APIPath)
	base = strings.TrimRight(base, "/")

	c := &Client{
		baseURL:      base,
		username:     username,
		password:     password,
		readTimeout:  30 * time.Second,
		writeTimeout: 120 * time.Second,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	// Endpoints written with the full resource path must not double it.
	endpoint = strings.TrimPrefix(endpoint, strings.TrimPrefix(APIPath, "/")+"/")
	return c.baseURL + APIPath + "/" + endpoint
}

// Get implements Gateway.
func (c *Client) Get(ctx context.Context, endpoint string) (map[string]any, int, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, c.readTimeout)
}

// Post implements Gateway.
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]any) (map[string]any, int, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, c.writeTimeout)
}

// Patch implements Gateway.
func (c *Client) Patch(ctx context.Context, endpoint string, body map[string]any) (map[string]any, int, error) {
	return c.do(ctx, http.MethodPatch, endpoint, body, c.writeTimeout)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body map[string]any, timeout time.Duration) (map[string]any, int, error) {
	logger := ctxlog.FromContext(ctx)
	url := c.buildURL(endpoint)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body for %s %s: %w", method, endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build %s request for %s: %w", method, endpoint, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("remote request", "method", method, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response of %s %s: %w", method, endpoint, err)
	}

	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			logger.Debug("remote response is not a JSON object", "method", method, "url", url, "status", resp.StatusCode)
			decoded = nil
		}
	}
	logger.Debug("remote response", "method", method, "url", url, "status", resp.StatusCode)
	return decoded, resp.StatusCode, nil
}
