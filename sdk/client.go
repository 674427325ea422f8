// Package notifier provides a Go client for the Batarya Kit notifier API.
//
// Usage:
//
//	client := notifier.New("http://localhost:8080", "your-api-key")
//
//	// Send a customer confirmation for a stored order, with the invoice attached
//	res, err := client.Orders.Notify(ctx, "ORD-1001", true)
//
//	// Send a single event
//	res, err := client.Notifications.Send(ctx, notifier.KindLowStock, map[string]any{
//	    "sku": "CELL-18650", "title": "18650 Hücre", "stock": 3, "threshold": 10,
//	})
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is the authenticated notifier API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	Notifications *NotificationsService
	Orders        *OrdersService
	Emails        *EmailsService
	Uploads       *UploadsService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a notifier client. baseURL is the server root
// (e.g. "http://localhost:8080"); apiKey is sent as a Bearer token and may be
// empty when the server runs without one.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	c.Notifications = &NotificationsService{c: c}
	c.Orders = &OrdersService{c: c}
	c.Emails = &EmailsService{c: c}
	c.Uploads = &UploadsService{c: c}
	return c
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// --- internal helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("notifier: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, expectedStatus int) (*T, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return do[T](c, req, expectedStatus)
}

func do[T any](c *Client, req *http.Request, expectedStatus int) (*T, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("notifier: decode response: %w", err)
	}
	return &out, nil
}

func parseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error, Kind: body.Kind}
}
