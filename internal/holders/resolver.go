// Package holders resolves the current largest holders of a token and the
// wallets owning them, retrying until the ledger returns a usable set.
package holders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pump-agent/internal/domain"
	"pump-agent/internal/observability"
	"pump-agent/internal/solana"
)

// Default retry policy. Freshly launched tokens often have no finalized
// holder accounts yet, so resolution polls with a generous delay.
const (
	DefaultMaxAttempts    = 5
	DefaultDelay          = 10 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

// ErrNoHolders is returned when every attempt yielded an empty or failed
// result. Callers must treat it as "reject token", never "assume eligible".
var ErrNoHolders = errors.New("no holders resolved")

// Config configures the resolver's bounded retry policy.
type Config struct {
	// MaxAttempts bounds how many times the full holder set is fetched.
	MaxAttempts int
	// Delay is the wait between attempts.
	Delay time.Duration
	// RequestTimeout bounds each individual RPC call, independent of the
	// attempt loop, so a hung call cannot occupy an attempt slot forever.
	RequestTimeout time.Duration
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    DefaultMaxAttempts,
		Delay:          DefaultDelay,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Resolver resolves holder sets via the ledger RPC client.
type Resolver struct {
	client solana.RPCClient
	config Config
	logger *log.Logger
}

// NewResolver creates a Resolver with the given policy.
func NewResolver(client solana.RPCClient, config *Config, logger *log.Logger) *Resolver {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{client: client, config: cfg, logger: logger}
}

// Resolve fetches the largest holders for mint and resolves each holder's
// owning wallet. An empty set or any per-holder failure fails the whole
// attempt; attempts are retried up to MaxAttempts with Delay between them.
// Partial results from different attempts are never merged - ledger
// finality can change the holder set between attempts.
func (r *Resolver) Resolve(ctx context.Context, mint string) (domain.HolderSet, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		observability.DefaultMetrics.ResolveAttempts.Inc()
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.config.Delay):
			}
		}

		set, err := r.resolveOnce(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			r.logger.Printf("holder resolution attempt %d/%d for %s failed: %v",
				attempt, r.config.MaxAttempts, mint, err)
			continue
		}

		if len(set) == 0 {
			r.logger.Printf("holder resolution attempt %d/%d for %s: empty set",
				attempt, r.config.MaxAttempts, mint)
			continue
		}

		observability.DefaultMetrics.ResolveLatency.Observe(time.Since(start).Seconds())
		return set, nil
	}

	observability.DefaultMetrics.ResolveFailures.Inc()
	if lastErr != nil {
		return nil, fmt.Errorf("%w: mint %s after %d attempts, last error: %v",
			ErrNoHolders, mint, r.config.MaxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w: mint %s after %d attempts", ErrNoHolders, mint, r.config.MaxAttempts)
}

// resolveOnce performs a single full attempt: one largest-accounts fetch
// plus one concurrent owner lookup per holder. All lookups complete before
// the attempt is judged; one failed lookup fails the attempt but does not
// abort its siblings.
func (r *Resolver) resolveOnce(ctx context.Context, mint string) (domain.HolderSet, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	balances, err := r.client.GetTokenLargestAccounts(fetchCtx, mint)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("largest accounts: %w", err)
	}

	if len(balances) == 0 {
		return nil, nil
	}

	records := make(domain.HolderSet, len(balances))
	errs := make([]error, len(balances))

	var wg sync.WaitGroup
	for i, b := range balances {
		wg.Add(1)
		go func(i int, b solana.TokenBalance) {
			defer wg.Done()

			lookupCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
			defer cancel()

			owner, err := r.client.GetTokenAccountOwner(lookupCtx, b.Address)
			if err != nil {
				errs[i] = fmt.Errorf("owner of %s: %w", b.Address, err)
				return
			}
			if owner == "" {
				errs[i] = fmt.Errorf("owner of %s: account not found", b.Address)
				return
			}

			records[i] = domain.HolderRecord{
				TokenAccount: b.Address,
				Owner:        owner,
				Balance:      b.Amount,
			}
		}(i, b)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return records, nil
}
