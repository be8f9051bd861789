package upstream

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

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

// maxBodySize bounds how much of an upstream response is read
const maxBodySize = 16 << 20

// StatusError reports a non-2xx upstream response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Ensure Client implements interfaces.TableFetcher
var _ interfaces.TableFetcher = (*Client)(nil)

// Client fetches table pages from the admin API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for baseURL; every request is bounded by timeout
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("upstream base URL cannot be empty")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}

	return &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Fetch requests one page of entity and decodes the JSON body.
// authHeader is forwarded as-is so the upstream applies the caller's permissions.
func (c *Client) Fetch(ctx context.Context, entity string, query models.TableQuery, authHeader string) (any, error) {
	defer metrics.TimeUpstreamFetch(entity)()

	target := c.baseURL.JoinPath(entity)
	target.RawQuery = query.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Upstream returned error status",
			zap.String("entity", entity),
			zap.Int("status", resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}
