// Package trading submits buy/sell orders to the trade endpoint. Orders
// are submitted exactly once: submission is not idempotent, so retrying
// here could double-spend - the caller decides what a failure means.
package trading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"pump-agent/internal/domain"
)

// DefaultTimeout bounds each trade submission request.
const DefaultTimeout = 30 * time.Second

// ErrSubmissionFailed marks a trade the endpoint rejected or never received.
var ErrSubmissionFailed = errors.New("trade submission failed")

// Executor submits trade orders over HTTP.
type Executor struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *log.Logger
}

// ExecutorOption configures Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ExecutorOption {
	return func(x *Executor) {
		x.client = client
	}
}

// WithLogger sets the executor's logger.
func WithLogger(logger *log.Logger) ExecutorOption {
	return func(x *Executor) {
		x.logger = logger
	}
}

// NewExecutor creates a trade executor for the given endpoint and API key.
func NewExecutor(endpoint, apiKey string, opts ...ExecutorOption) *Executor {
	x := &Executor{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// tradeRequest is the trade endpoint's submission shape. Amounts are
// token units, never SOL-denominated.
type tradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           float64 `json:"amount"`
	DenominatedInSol bool    `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
}

// tradeResponse is the trade endpoint's reply.
type tradeResponse struct {
	Signature string   `json:"signature"`
	Errors    []string `json:"errors"`
}

// Execute submits one order. The returned result always carries the
// computed protocol fee, whether or not the submission succeeded; the fee
// is informational - deduction is the endpoint's responsibility.
func (x *Executor) Execute(ctx context.Context, order domain.TradeOrder) (*domain.TradeResult, error) {
	if order.SlippagePct == 0 {
		order.SlippagePct = domain.DefaultSlippagePct
	}
	if order.PriorityFee == 0 {
		order.PriorityFee = domain.DefaultPriorityFee
	}

	result := &domain.TradeResult{Fee: domain.Fee(order.Quantity)}

	x.logger.Printf("submitting %s %f %s (slippage %.1f%%, fee %f)",
		order.Side, order.Quantity, order.Mint, order.SlippagePct, result.Fee)

	body, err := json.Marshal(tradeRequest{
		Action:           string(order.Side),
		Mint:             order.Mint,
		Amount:           order.Quantity,
		DenominatedInSol: false,
		Slippage:         order.SlippagePct,
		PriorityFee:      order.PriorityFee,
	})
	if err != nil {
		return result, fmt.Errorf("%w: marshal order: %v", ErrSubmissionFailed, err)
	}

	url := x.endpoint
	if x.apiKey != "" {
		url = fmt.Sprintf("%s?api-key=%s", x.endpoint, x.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("%w: create request: %v", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("%w: read response: %v", ErrSubmissionFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("%w: status %d: %s", ErrSubmissionFailed, resp.StatusCode, string(respBody))
	}

	var parsed tradeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return result, fmt.Errorf("%w: unmarshal response: %v", ErrSubmissionFailed, err)
	}

	if len(parsed.Errors) > 0 {
		return result, fmt.Errorf("%w: endpoint errors: %v", ErrSubmissionFailed, parsed.Errors)
	}
	if parsed.Signature == "" {
		return result, fmt.Errorf("%w: empty signature", ErrSubmissionFailed)
	}

	result.TxSignature = parsed.Signature
	x.logger.Printf("%s %s confirmed, tx %s", order.Side, order.Mint, result.TxSignature)
	return result, nil
}
