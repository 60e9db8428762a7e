package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ArtyProf/steam-card-idler/pkg/api"
)

// requestTimeout bounds every call to the daemon.
const requestTimeout = 10 * time.Second

// Client talks to a running daemon's admin API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at addr. A bare
// host:port is promoted to an http URL.
func NewClient(addr string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Status fetches the daemon summary.
func (c *Client) Status() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.get("/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Active fetches the active idling set.
func (c *Client) Active() (*api.ActiveResponse, error) {
	var resp api.ActiveResponse
	if err := c.get("/v1/active", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events fetches up to limit recent events, newest first.
func (c *Client) Events(limit int) (*api.EventsResponse, error) {
	path := "/v1/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp api.EventsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cache fetches the capability cache contents.
func (c *Client) Cache() (*api.CacheResponse, error) {
	var resp api.CacheResponse
	if err := c.get("/v1/cache", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh asks the daemon to run a refresh cycle.
func (c *Client) Refresh() error {
	return c.post("/v1/refresh")
}

// Reconnect asks the daemon to re-establish its session.
func (c *Client) Reconnect() error {
	return c.post("/v1/reconnect")
}

func (c *Client) get(path string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return apiError(resp)
	}
	return nil
}

// apiError turns a non-success response into an error, preferring
// the server's own message when one is present.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon refused: %s (%s)", body.Error, resp.Status)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}
