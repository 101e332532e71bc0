// Package solana provides a minimal JSON-RPC 2.0 client for the ledger
// queries the screening pipeline needs: largest token holders and token
// account ownership.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"pump-agent/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// CommitmentFinalized is the commitment level for holder queries.
// Finalized results are not subject to rollback.
const CommitmentFinalized = "finalized"

// HTTPClient is a Solana JSON-RPC client over HTTP.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetTokenLargestAccounts retrieves the 20 largest token accounts for a mint
// at finalized commitment, ranked by balance descending.
func (c *HTTPClient) GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenBalance, error) {
	params := []interface{}{
		mint,
		map[string]interface{}{"commitment": CommitmentFinalized},
	}

	var result tokenLargestAccountsResult
	if err := c.call(ctx, "getTokenLargestAccounts", params, &result); err != nil {
		return nil, err
	}

	balances := make([]TokenBalance, 0, len(result.Value))
	for _, v := range result.Value {
		whole, err := amountToWhole(v.Amount, v.Decimals)
		if err != nil {
			return nil, fmt.Errorf("parse amount for %s: %w", v.Address, err)
		}
		balances = append(balances, TokenBalance{
			Address:  v.Address,
			Amount:   whole,
			Decimals: v.Decimals,
		})
	}

	return balances, nil
}

// tokenLargestAccountsResult is the raw RPC response for getTokenLargestAccounts.
type tokenLargestAccountsResult struct {
	Value []tokenLargestAccountsValue `json:"value"`
}

type tokenLargestAccountsValue struct {
	Address  string `json:"address"`
	Amount   string `json:"amount"` // base units, stringified uint64
	Decimals int    `json:"decimals"`
}

// GetTokenAccountOwner resolves the owning wallet of an SPL token account.
// Returns empty string if the account does not exist.
func (c *HTTPClient) GetTokenAccountOwner(ctx context.Context, account string) (string, error) {
	params := []interface{}{
		account,
		map[string]interface{}{
			"encoding":   "jsonParsed",
			"commitment": CommitmentFinalized,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return "", err
	}

	if result.Value == nil {
		return "", nil
	}

	owner := result.Value.Data.Parsed.Info.Owner
	if owner == "" {
		return "", fmt.Errorf("account %s has no parsed owner", account)
	}

	return owner, nil
}

// getAccountInfoResult is the raw RPC response for getAccountInfo (jsonParsed).
type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports uint64            `json:"lamports"`
	Owner    string            `json:"owner"` // owning program, not the wallet
	Data     accountParsedData `json:"data"`
}

type accountParsedData struct {
	Parsed struct {
		Info struct {
			Owner string `json:"owner"` // wallet that owns the token account
			Mint  string `json:"mint"`
		} `json:"info"`
		Type string `json:"type"`
	} `json:"parsed"`
	Program string `json:"program"`
}

// amountToWhole converts a stringified base-unit amount to whole-token units.
func amountToWhole(amount string, decimals int) (uint64, error) {
	raw, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, err
	}
	div := uint64(1)
	for i := 0; i < decimals; i++ {
		div *= 10
	}
	return raw / div, nil
}
