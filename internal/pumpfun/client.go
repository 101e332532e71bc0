// Package pumpfun talks to the launch platform's HTTP surfaces: off-chain
// token metadata and the King-of-the-Hill (peak) coin status.
package pumpfun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pump-agent/internal/domain"
)

// DefaultTimeout bounds each metadata/status request.
const DefaultTimeout = 15 * time.Second

// Client fetches token metadata and peak status.
type Client struct {
	apiURL string
	client *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a platform API client. apiURL is the coins endpoint
// base, e.g. "https://frontend-api.pump.fun".
func NewClient(apiURL string, opts ...ClientOption) *Client {
	c := &Client{
		apiURL: apiURL,
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// metadataPayload is the wire shape of off-chain token metadata.
type metadataPayload struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Website     string `json:"website"`
}

// FetchMetadata retrieves the metadata object at uri.
func (c *Client) FetchMetadata(ctx context.Context, uri string) (*domain.TokenMetadata, error) {
	body, err := c.get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	var payload metadataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return &domain.TokenMetadata{
		Name:        payload.Name,
		Symbol:      payload.Symbol,
		Description: payload.Description,
		Image:       payload.Image,
		Twitter:     payload.Twitter,
		Telegram:    payload.Telegram,
		Website:     payload.Website,
	}, nil
}

// coinPayload is the subset of the coins endpoint response we read.
type coinPayload struct {
	Mint                   string `json:"mint"`
	KingOfTheHillTimestamp int64  `json:"king_of_the_hill_timestamp"`
}

// PeakStatus reports whether the token currently holds the platform's
// King-of-the-Hill ranking.
func (c *Client) PeakStatus(ctx context.Context, mint string) (bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/coins/%s", c.apiURL, mint))
	if err != nil {
		return false, fmt.Errorf("peak status: %w", err)
	}

	var payload coinPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("unmarshal coin: %w", err)
	}

	return payload.KingOfTheHillTimestamp > 0, nil
}

// get performs one GET request and returns the response body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
