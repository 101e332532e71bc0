// Package dispatch consumes token creation events and runs the full
// screening pipeline for each one on its own goroutine: launch filter,
// holder resolution, concentration and socials checks, then the buy and
// peak-watch registration for tokens that clear everything.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pump-agent/internal/domain"
	"pump-agent/internal/eligibility"
	"pump-agent/internal/observability"
	"pump-agent/internal/solana"
	"pump-agent/internal/storage"
)

// DefaultBuyQuantity is the token quantity bought when a mint clears
// screening, used when the configured quantity is zero.
const DefaultBuyQuantity = 100_000.0

// HolderResolver resolves the current holder set of a mint.
type HolderResolver interface {
	Resolve(ctx context.Context, mint string) (domain.HolderSet, error)
}

// MetadataFetcher retrieves off-chain token metadata.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, uri string) (*domain.TokenMetadata, error)
}

// Trader submits trade orders.
type Trader interface {
	Execute(ctx context.Context, order domain.TradeOrder) (*domain.TradeResult, error)
}

// Watcher registers bought positions for peak monitoring.
type Watcher interface {
	Watch(ctx context.Context, position domain.WatchedPosition) error
}

// Options configures the dispatcher's dependencies.
type Options struct {
	Resolver  HolderResolver
	Evaluator *eligibility.Evaluator
	Metadata  MetadataFetcher
	Trader    Trader
	Watcher   Watcher

	// Verdicts journals screening outcomes and deduplicates re-announced
	// mints. Optional; without it every announcement is screened.
	Verdicts storage.VerdictStore

	// BuyQuantity is the token amount bought per eligible mint.
	BuyQuantity float64

	Logger *log.Logger
}

// Dispatcher fans incoming events out to screening goroutines. A slow or
// stuck pipeline for one mint never delays another.
type Dispatcher struct {
	resolver    HolderResolver
	evaluator   *eligibility.Evaluator
	metadata    MetadataFetcher
	trader      Trader
	watcher     Watcher
	verdicts    storage.VerdictStore
	buyQuantity float64
	logger      *log.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher from options.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Resolver == nil {
		return nil, errors.New("dispatch: resolver is required")
	}
	if opts.Evaluator == nil {
		return nil, errors.New("dispatch: evaluator is required")
	}
	if opts.Metadata == nil {
		return nil, errors.New("dispatch: metadata fetcher is required")
	}
	if opts.Trader == nil {
		return nil, errors.New("dispatch: trader is required")
	}
	if opts.Watcher == nil {
		return nil, errors.New("dispatch: watcher is required")
	}
	if opts.BuyQuantity <= 0 {
		opts.BuyQuantity = DefaultBuyQuantity
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Dispatcher{
		resolver:    opts.Resolver,
		evaluator:   opts.Evaluator,
		metadata:    opts.Metadata,
		trader:      opts.Trader,
		watcher:     opts.Watcher,
		verdicts:    opts.Verdicts,
		buyQuantity: opts.BuyQuantity,
		logger:      opts.Logger,
	}, nil
}

// Run consumes events until the channel closes or the context is
// cancelled, then waits for in-flight screenings to finish.
func (d *Dispatcher) Run(ctx context.Context, events <-chan domain.TokenEvent) {
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.wg.Add(1)
			go func(ev domain.TokenEvent) {
				defer d.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						d.logger.Printf("screening %s panicked: %v", ev.Mint, r)
					}
				}()
				d.screen(ctx, &ev)
			}(ev)
		}
	}
}

// screen runs the pipeline for one event. Stages run in cost order; the
// first failing stage decides the verdict and nothing later runs.
func (d *Dispatcher) screen(ctx context.Context, ev *domain.TokenEvent) {
	observability.RecordEventReceived()

	if err := ev.Validate(); err != nil {
		observability.RecordEventMalformed()
		d.logger.Printf("dropping malformed event: %v", err)
		return
	}

	if d.alreadyScreened(ctx, ev.Mint) {
		return
	}

	observability.DefaultMetrics.ScreeningsStarted.Inc()
	d.logger.Printf("screening %s (%s): mc %.2f, vol %.2f", ev.Mint, ev.Name, ev.MarketCap, ev.Volume)

	if v := d.evaluator.CheckLaunch(ev); !v.Eligible {
		d.reject(ctx, ev, domain.StageLaunchFilter, v.Reasons())
		return
	}

	set, err := d.resolver.Resolve(ctx, ev.Mint)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.reject(ctx, ev, domain.StageHolders, []string{fmt.Sprintf("holder resolution: %v", err)})
		return
	}

	if v := d.evaluator.CheckConcentration(set, d.bondingCurve(ev)); !v.Eligible {
		d.reject(ctx, ev, domain.StageConcentration, v.Reasons())
		return
	}

	meta, err := d.fetchMetadata(ctx, ev)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.reject(ctx, ev, domain.StageSocials, []string{fmt.Sprintf("metadata fetch: %v", err)})
		return
	}
	if v := d.evaluator.CheckSocials(meta); !v.Eligible {
		d.reject(ctx, ev, domain.StageSocials, v.Reasons())
		return
	}

	d.buyAndWatch(ctx, ev)
}

// alreadyScreened reports whether the mint has a journaled verdict. A
// journal lookup failure is logged and screening proceeds; losing a
// dedup beats missing a token.
func (d *Dispatcher) alreadyScreened(ctx context.Context, mint string) bool {
	if d.verdicts == nil {
		return false
	}

	_, err := d.verdicts.GetByMint(ctx, mint)
	switch {
	case err == nil:
		observability.DefaultMetrics.DuplicatesSkipped.Inc()
		d.logger.Printf("%s already screened, skipping", mint)
		return true
	case errors.Is(err, storage.ErrNotFound):
		return false
	default:
		observability.RecordDBError("get_verdict")
		d.logger.Printf("verdict lookup for %s failed: %v", mint, err)
		return false
	}
}

// bondingCurve returns the event's bonding-curve account, deriving it
// from the mint when the stream payload omits it. Without a curve
// address no holder is excluded from the concentration rule.
func (d *Dispatcher) bondingCurve(ev *domain.TokenEvent) string {
	if ev.BondingCurve != "" {
		return ev.BondingCurve
	}

	curve, err := solana.BondingCurveAddress(ev.Mint)
	if err != nil {
		d.logger.Printf("bonding curve derivation for %s failed: %v", ev.Mint, err)
		return ""
	}
	return curve
}

// fetchMetadata retrieves the event's off-chain metadata. Events without
// a metadata URI get an empty document, which fails the socials check.
func (d *Dispatcher) fetchMetadata(ctx context.Context, ev *domain.TokenEvent) (*domain.TokenMetadata, error) {
	if ev.MetadataURI == "" {
		return &domain.TokenMetadata{}, nil
	}
	return d.metadata.FetchMetadata(ctx, ev.MetadataURI)
}

// buyAndWatch submits the buy for an eligible mint and, on success,
// registers the position for peak monitoring.
func (d *Dispatcher) buyAndWatch(ctx context.Context, ev *domain.TokenEvent) {
	order := domain.TradeOrder{
		Mint:     ev.Mint,
		Side:     domain.SideBuy,
		Quantity: d.buyQuantity,
	}

	result, err := d.trader.Execute(ctx, order)
	observability.RecordTrade(string(domain.SideBuy), err)
	if err != nil {
		d.logger.Printf("buy for %s failed: %v", ev.Mint, err)
		d.journal(ctx, ev, &domain.VerdictRecord{
			Eligible: true,
			Stage:    domain.StageTrade,
			Reasons:  []string{fmt.Sprintf("trade submission: %v", err)},
		})
		return
	}

	observability.RecordVerdict(true, domain.StageTrade)
	d.logger.Printf("bought %f %s, tx %s, fee %f", order.Quantity, ev.Mint, result.TxSignature, result.Fee)
	d.journal(ctx, ev, &domain.VerdictRecord{
		Eligible: true,
		Stage:    domain.StageTrade,
	})

	position := domain.WatchedPosition{
		Mint:     ev.Mint,
		Quantity: order.Quantity,
		OpenedAt: time.Now().UnixMilli(),
	}
	if err := d.watcher.Watch(ctx, position); err != nil {
		d.logger.Printf("watch registration for %s failed: %v", ev.Mint, err)
		return
	}
	observability.DefaultMetrics.ActiveWatchers.Inc()
}

// reject journals a failed verdict.
func (d *Dispatcher) reject(ctx context.Context, ev *domain.TokenEvent, stage string, reasons []string) {
	observability.RecordVerdict(false, stage)
	d.logger.Printf("rejected %s at %s: %v", ev.Mint, stage, reasons)
	d.journal(ctx, ev, &domain.VerdictRecord{
		Eligible: false,
		Stage:    stage,
		Reasons:  reasons,
	})
}

// journal writes the verdict record, filling in event identity and
// timestamps. Journal failures never affect the screening outcome.
func (d *Dispatcher) journal(ctx context.Context, ev *domain.TokenEvent, v *domain.VerdictRecord) {
	if d.verdicts == nil {
		return
	}

	v.Mint = ev.Mint
	v.Name = ev.Name
	v.ScreenedAt = time.Now().UnixMilli()

	err := d.verdicts.Insert(ctx, v)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		// Two announcements of the same mint raced; first write wins
	default:
		observability.RecordDBError("insert_verdict")
		d.logger.Printf("journal write for %s failed: %v", v.Mint, err)
	}
}
