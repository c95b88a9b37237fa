package transelectrica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"energy-balance/internal/feed"
	"energy-balance/internal/observability/metrics"
)

const defaultBaseURL = "https://www.transelectrica.ro/sen-filter"

// defaultCandidateUnits is the superset of border unit keys extracted from
// the feed. Deliberately wider than the recognized roster: variant
// identifiers like BEKE115 show up in the payload and must be visible to
// the classifier so it can drop them.
var defaultCandidateUnits = []string{
	"MUKA", "ISPOZ", "IS", "UNGE", "CIOA", "GOTE", "VULC", "DOBR", "VARN",
	"KOZL1", "KOZL2", "DJER", "SIP_", "PANCEVO21", "PANCEVO22", "KIKI",
	"SAND", "BEKE1", "BEKE115",
}

// Client fetches the live national grid feed. It implements feed.LiveSource.
type Client struct {
	baseURL string
	units   []string
	client  *http.Client
}

// NewClient constructs a feed client.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		units:   defaultCandidateUnits,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.units) == 0 {
		return nil, errors.New("transelectrica: no candidate units")
	}
	return c, nil
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithCandidateUnits overrides the extracted border unit key set.
func WithCandidateUnits(units []string) ClientOption {
	return func(c *Client) {
		if len(units) > 0 {
			c.units = units
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// Fetch pulls the current snapshot. The upstream sits behind an aggressive
// cache, so every request carries cache-busting parameters and headers.
func (c *Client) Fetch(ctx context.Context) (feed.Snapshot, error) {
	buster := strconv.FormatInt(time.Now().UnixMilli(), 10)
	url := fmt.Sprintf("%s?_=%s&nocache=%s", c.baseURL, buster, buster)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return feed.Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncFeedFetch(metrics.ResultError)
		return feed.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.IncFeedFetch(metrics.ResultError)
		return feed.Snapshot{}, fmt.Errorf("transelectrica: http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncFeedFetch(metrics.ResultError)
		return feed.Snapshot{}, err
	}

	snapshot, err := ParseSnapshot(raw, c.units)
	if err != nil {
		metrics.IncFeedFetch(metrics.ResultError)
		return feed.Snapshot{}, err
	}
	metrics.IncFeedFetch(metrics.ResultSuccess)
	return snapshot, nil
}
