package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/loykin/webwatch/internal/server"
)

const defaultAPIURL = "http://127.0.0.1:8787/api"

// APIClient talks to the status API of a running webwatch daemon.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *APIClient) IsReachable() bool {
	resp, err := c.client.Get(c.baseURL + "/status")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode != http.StatusNotFound // Accept any response except 404
}

// GetStatus returns the daemon summary.
func (c *APIClient) GetStatus() (server.StatusResp, error) {
	var out server.StatusResp
	err := c.get("/status", &out)
	return out, err
}

// ListWatchers returns every watcher with its runtime state.
func (c *APIClient) ListWatchers() ([]server.WatcherView, error) {
	var out []server.WatcherView
	err := c.get("/watchers", &out)
	return out, err
}

// GetWatcher looks up one watcher by id or unique prefix.
func (c *APIClient) GetWatcher(id string) (server.WatcherView, error) {
	var out server.WatcherView
	err := c.get("/watchers/"+url.PathEscape(id), &out)
	return out, err
}

func (c *APIClient) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API error: %s", resp.Status)
		}
		return fmt.Errorf("API error: %s", errorResp.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
