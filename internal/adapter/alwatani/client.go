// Package alwatani provides an HTTP client for the Alwatani wholesale
// portal. It implements the upstream port: token login plus paginated
// subscriber fetches. Progress reporting and cancellation belong to the
// caller.
package alwatani

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
)

// Client talks to the Alwatani portal API.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a portal client from config.
func NewClient(cfg config.Alwatani) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Login exchanges portal credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", body)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("unmarshal login: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login: portal returned empty token")
	}
	return result.Token, nil
}

// FetchSubscribers returns one page of subscribers. Pages are 1-based.
func (c *Client) FetchSubscribers(ctx context.Context, token string, page int) (*subscriber.Page, error) {
	path := "/api/v1/subscribers?page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(c.pageSize)
	data, err := c.doRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch subscribers page %d: %w", page, err)
	}

	var result subscriber.Page
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal subscribers page %d: %w", page, err)
	}
	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("portal returned %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
