// Package shortlink is the client for the external short-link service.
package shortlink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minpic/core/internal/models"
	"github.com/minpic/core/internal/pkg/metrics"
)

// ErrNotConfigured is returned when no usable short-link config is stored.
var ErrNotConfigured = errors.New("shortlink service is not configured")

// Link is a short link as reported by the remote service.
type Link struct {
	ShortCode    string     `json:"short_code"`
	ShortURL     string     `json:"short_url"`
	OriginalURL  string     `json:"original_url"`
	CreatedAt    string     `json:"created_at,omitempty"`
	ClickCount   int64      `json:"click_count"`
	LastAccessed *string    `json:"last_accessed"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// API is the remote capability the orchestrators depend on.
type API interface {
	Create(ctx context.Context, longURL, customCode string, expiresInHours int) (*Link, error)
	Delete(ctx context.Context, code string) error
	Info(ctx context.Context, code string) (*Link, error)
	List(ctx context.Context) ([]Link, error)
}

// Factory builds an API for the current config. Configs change at runtime so
// callers build a client per operation.
type Factory func(cfg models.ShortlinkConfig) API

// Client calls the service over HTTP, authenticating with X-API-Key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewFactory returns a Factory whose clients share httpClient.
func NewFactory(httpClient *http.Client) Factory {
	return func(cfg models.ShortlinkConfig) API {
		return NewClient(cfg, httpClient)
	}
}

func NewClient(cfg models.ShortlinkConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

type createRequest struct {
	URL       string `json:"url"`
	ShortCode string `json:"short_code,omitempty"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// Create shortens longURL. An empty customCode lets the service choose one;
// expiresInHours of 0 keeps the link permanent.
func (c *Client) Create(ctx context.Context, longURL, customCode string, expiresInHours int) (*Link, error) {
	body, err := json.Marshal(createRequest{URL: longURL, ShortCode: customCode, ExpiresIn: max(expiresInHours, 0)})
	if err != nil {
		return nil, err
	}
	var link Link
	err = c.do(ctx, http.MethodPost, "/api/shorten", bytes.NewReader(body), &link)
	metrics.ShortlinkCallsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("create shortlink: %w", err)
	}
	if link.ShortCode == "" {
		return nil, errors.New("create shortlink: response has no short_code")
	}
	return &link, nil
}

func (c *Client) Delete(ctx context.Context, code string) error {
	err := c.do(ctx, http.MethodDelete, "/api/"+url.PathEscape(code), nil, nil)
	metrics.ShortlinkCallsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete shortlink %q: %w", code, err)
	}
	return nil
}

func (c *Client) Info(ctx context.Context, code string) (*Link, error) {
	var link Link
	if err := c.do(ctx, http.MethodGet, "/api/info/"+url.PathEscape(code), nil, &link); err != nil {
		return nil, fmt.Errorf("shortlink info %q: %w", code, err)
	}
	return &link, nil
}

// List returns every link. The service answers with a bare array or with an
// object wrapping it in "links" or "data".
func (c *Client) List(ctx context.Context) ([]Link, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/list", nil, &raw); err != nil {
		return nil, fmt.Errorf("list shortlinks: %w", err)
	}
	return decodeList(raw)
}

func decodeList(raw json.RawMessage) ([]Link, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Link{}, nil
	}
	if trimmed[0] == '[' {
		var links []Link
		if err := json.Unmarshal(trimmed, &links); err != nil {
			return nil, fmt.Errorf("decode shortlink list: %w", err)
		}
		return links, nil
	}
	var wrapped struct {
		Links []Link `json:"links"`
		Data  []Link `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode shortlink list: %w", err)
	}
	if wrapped.Links != nil {
		return wrapped.Links, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return []Link{}, nil
}

// StatusError carries a non-2xx answer from the service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("shortlink service returned %d", e.Status)
	}
	return fmt.Sprintf("shortlink service returned %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	if c.baseURL == "" || c.apiKey == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
