package domain

// Side is the direction of a trade order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade submission defaults. Slippage and priority fee are fixed for every
// order; the protocol fee is computed for reporting only - the endpoint
// deducts it, this code never does.
const (
	FeeRate            = 0.005 // 0.5% protocol fee
	DefaultSlippagePct = 5.0
	DefaultPriorityFee = 0.005 // SOL
)

// TradeOrder describes a single trade submission.
// Quantity is a token-unit amount, never SOL-denominated.
type TradeOrder struct {
	Mint        string
	Side        Side
	Quantity    float64
	SlippagePct float64
	PriorityFee float64
}

// TradeResult is the outcome of a trade submission.
type TradeResult struct {
	TxSignature string  // transaction id on success
	Fee         float64 // informational protocol fee, Quantity * FeeRate
}

// Fee returns the protocol fee for a given quantity.
func Fee(quantity float64) float64 {
	return quantity * FeeRate
}
