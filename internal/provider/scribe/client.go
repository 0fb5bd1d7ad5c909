// Package scribe implements the TranscriptionProvider interface against the
// hosted transcription API's JSON surface.
package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forgemedia/portal/internal/metrics"
	"github.com/forgemedia/portal/internal/portal"
)

// Config captures connection parameters for the transcription API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// Client talks to the transcription API over HTTP. Every request carries a
// bounded timeout; failures surface as ErrProviderUnavailable and are never
// retried here.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// New creates a Client from Config.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	metrics.Init()
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

type startRequest struct {
	SourceURL   string `json:"source_url"`
	CallbackURL string `json:"callback_url"`
}

type startResponse struct {
	ID string `json:"id"`
}

type pollResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

// Start submits a transcription job for the source URL and returns the
// provider's handle. The provider will POST completion to callbackURL.
func (c *Client) Start(ctx context.Context, sourceURL, callbackURL string) (portal.StartResult, error) {
	body, err := json.Marshal(startRequest{SourceURL: sourceURL, CallbackURL: callbackURL})
	if err != nil {
		return portal.StartResult{}, fmt.Errorf("marshal start request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcripts", bytes.NewReader(body))
	if err != nil {
		return portal.StartResult{}, fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var resp startResponse
	if err := c.do(req, &resp); err != nil {
		metrics.ObserveProviderCall("start", "error")
		return portal.StartResult{}, err
	}
	metrics.ObserveProviderCall("start", "ok")
	if resp.ID == "" {
		return portal.StartResult{}, fmt.Errorf("%w: start response missing id", portal.ErrProviderUnavailable)
	}
	return portal.StartResult{Handle: resp.ID}, nil
}

// Poll fetches the current status of a started job.
func (c *Client) Poll(ctx context.Context, handle string) (portal.PollResult, error) {
	if handle == "" {
		return portal.PollResult{}, fmt.Errorf("handle is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcripts/"+handle, nil)
	if err != nil {
		return portal.PollResult{}, fmt.Errorf("build poll request: %w", err)
	}
	c.authorize(req)

	var resp pollResponse
	if err := c.do(req, &resp); err != nil {
		metrics.ObserveProviderCall("poll", "error")
		return portal.PollResult{}, err
	}
	metrics.ObserveProviderCall("poll", "ok")
	switch resp.Status {
	case string(portal.ProviderCompleted):
		return portal.PollResult{Status: portal.ProviderCompleted, Transcript: resp.Text}, nil
	default:
		return portal.PollResult{Status: portal.ProviderInProgress}, nil
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", portal.ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for log context without trusting it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", portal.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", portal.ErrProviderUnavailable, err)
	}
	return nil
}
