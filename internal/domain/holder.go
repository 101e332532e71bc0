package domain

// HolderRecord is one resolved holder of a token: the token account that
// holds the balance and the wallet that owns the token account.
type HolderRecord struct {
	TokenAccount string // SPL token account address
	Owner        string // owning wallet address
	Balance      uint64 // balance in whole-token units
}

// HolderSet is an ordered set of holders ranked by balance descending.
// Size is bounded by the ledger's largest-accounts limit (20).
type HolderSet []HolderRecord

// SharePct returns the holder's share of the fixed total supply in percent.
func (h HolderRecord) SharePct() float64 {
	return float64(h.Balance) / float64(TotalSupply) * 100
}
