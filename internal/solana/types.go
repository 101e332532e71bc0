package solana

import "context"

// TokenBalance is one entry of a getTokenLargestAccounts response.
type TokenBalance struct {
	Address  string // token account address
	Amount   uint64 // balance in whole-token units
	Decimals int
}

// RPCClient abstracts the ledger queries used by holder resolution.
type RPCClient interface {
	// GetTokenLargestAccounts returns the largest token accounts for a mint,
	// ranked by balance descending. May return an empty slice.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenBalance, error)

	// GetTokenAccountOwner resolves the wallet owning an SPL token account.
	GetTokenAccountOwner(ctx context.Context, account string) (string, error)
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)
