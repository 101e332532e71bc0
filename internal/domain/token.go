package domain

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// TotalSupply is the fixed pump.fun launch supply in whole-token units.
// Every launch mints exactly this amount; it is the denominator for all
// holder-share percentages and is never read from the ledger.
const TotalSupply uint64 = 1_000_000_000

// ErrMalformedEvent marks a stream event with missing or invalid fields.
// Malformed events are discarded, never retried.
var ErrMalformedEvent = errors.New("malformed token event")

// WalletShare is one entry of the wallet distribution declared by the
// launch platform for a new token.
type WalletShare struct {
	Address string  // wallet address (may be empty in stream payloads)
	Percent float64 // declared share of supply, 0-100
}

// TokenEvent represents a token-creation announcement from the stream.
// Immutable once received.
type TokenEvent struct {
	Mint               string        // token mint address (base58)
	Name               string        // human-readable token name
	Symbol             string        // ticker symbol
	Creator            string        // creator wallet address
	BondingCurve       string        // platform bonding-curve account (may be empty, derivable from mint)
	MetadataURI        string        // off-chain metadata location
	MarketCap          float64       // market cap reported at creation
	Volume             float64       // trade volume reported at creation
	WalletDistribution []WalletShare // declared wallet shares
	Timestamp          int64         // event time, Unix milliseconds
}

// Validate checks the fields the pipeline depends on.
// Returns ErrMalformedEvent (wrapped) for anything the pipeline cannot
// process; the caller treats such events as ineligible rather than crashing.
func (e *TokenEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if !ValidAddress(e.Mint) {
		return fmt.Errorf("%w: invalid mint %q", ErrMalformedEvent, e.Mint)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformedEvent)
	}
	if e.BondingCurve != "" && !ValidAddress(e.BondingCurve) {
		return fmt.Errorf("%w: invalid bonding curve %q", ErrMalformedEvent, e.BondingCurve)
	}
	for _, w := range e.WalletDistribution {
		if w.Percent < 0 || w.Percent > 100 {
			return fmt.Errorf("%w: wallet share %.2f out of range", ErrMalformedEvent, w.Percent)
		}
	}
	return nil
}

// ValidAddress reports whether s is a base58-encoded 32-byte account key.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}
