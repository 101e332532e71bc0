package domain

// TokenMetadata is the off-chain metadata fetched for a token.
// Only the social-link fields participate in eligibility; the rest is
// carried for logging.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Description string
	Image       string
	Twitter     string
	Telegram    string
	Website     string
}
