// Package eligibility holds the pure screening rules. The evaluator never
// retries and never calls external services; everything it needs is
// injected as already-resolved data.
package eligibility

import (
	"fmt"

	"pump-agent/internal/domain"
)

// Rule thresholds. Market-cap bounds are exclusive on both ends.
const (
	MarketCapMin      = 10_000.0
	MarketCapMax      = 20_000.0
	MaxWalletSharePct = 3.0
	VolumeMin         = 10.0
	MaxHolderSharePct = 4.0
)

// Evaluator evaluates eligibility rules.
type Evaluator struct{}

// NewEvaluator creates a new eligibility evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// CheckLaunch applies the cheap first-pass filter to the raw event, before
// any holder resolution is attempted: market cap strictly inside
// (10000, 20000), every declared wallet share strictly below 3%, volume
// strictly above 10.
func (e *Evaluator) CheckLaunch(ev *domain.TokenEvent) *Verdict {
	checks := make([]CheckResult, 3)

	checks[0] = CheckResult{
		Name:      "Market cap",
		Threshold: fmt.Sprintf("> %.0f and < %.0f", MarketCapMin, MarketCapMax),
		Actual:    fmt.Sprintf("%.2f", ev.MarketCap),
		Pass:      ev.MarketCap > MarketCapMin && ev.MarketCap < MarketCapMax,
	}

	maxShare := 0.0
	for _, w := range ev.WalletDistribution {
		if w.Percent > maxShare {
			maxShare = w.Percent
		}
	}
	checks[1] = CheckResult{
		Name:      "Wallet distribution",
		Threshold: fmt.Sprintf("every share < %.0f%%", MaxWalletSharePct),
		Actual:    fmt.Sprintf("max share %.2f%%", maxShare),
		Pass:      maxShare < MaxWalletSharePct,
	}

	checks[2] = CheckResult{
		Name:      "Volume",
		Threshold: fmt.Sprintf("> %.0f", VolumeMin),
		Actual:    fmt.Sprintf("%.2f", ev.Volume),
		Pass:      ev.Volume > VolumeMin,
	}

	return verdictFrom(checks)
}

// CheckConcentration applies the holder-concentration rule: excluding the
// record owned by the bonding-curve account, no holder may exceed 4% of
// the fixed total supply.
func (e *Evaluator) CheckConcentration(set domain.HolderSet, bondingCurve string) *Verdict {
	maxShare := 0.0
	maxOwner := ""
	for _, h := range set {
		if h.Owner == bondingCurve {
			continue
		}
		if share := h.SharePct(); share > maxShare {
			maxShare = share
			maxOwner = h.Owner
		}
	}

	actual := fmt.Sprintf("max non-curve share %.2f%%", maxShare)
	if maxOwner != "" {
		actual = fmt.Sprintf("max non-curve share %.2f%% (owner %s)", maxShare, maxOwner)
	}

	checks := []CheckResult{{
		Name:      "Holder concentration",
		Threshold: fmt.Sprintf("<= %.0f%% per holder", MaxHolderSharePct),
		Actual:    actual,
		Pass:      maxShare <= MaxHolderSharePct,
	}}

	return verdictFrom(checks)
}

// CheckSocials applies the social-presence rule: the metadata must carry
// non-empty twitter, telegram and website links.
func (e *Evaluator) CheckSocials(meta *domain.TokenMetadata) *Verdict {
	present := func(s string) string {
		if s == "" {
			return "missing"
		}
		return s
	}

	checks := []CheckResult{
		{
			Name:      "Twitter",
			Threshold: "non-empty",
			Actual:    present(meta.Twitter),
			Pass:      meta.Twitter != "",
		},
		{
			Name:      "Telegram",
			Threshold: "non-empty",
			Actual:    present(meta.Telegram),
			Pass:      meta.Telegram != "",
		},
		{
			Name:      "Website",
			Threshold: "non-empty",
			Actual:    present(meta.Website),
			Pass:      meta.Website != "",
		},
	}

	return verdictFrom(checks)
}
