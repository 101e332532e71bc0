// Package watch runs one long-lived peak monitor per held position and
// the registry that owns their lifecycles.
package watch

import (
	"context"
	"log"
	"sync"
	"time"

	"pump-agent/internal/domain"
	"pump-agent/internal/observability"
)

// DefaultPollInterval is the peak-status polling cadence.
const DefaultPollInterval = 60 * time.Second

// PeakSource reports whether a token currently holds peak status.
type PeakSource interface {
	PeakStatus(ctx context.Context, mint string) (bool, error)
}

// Seller submits sell orders for partial liquidation.
type Seller interface {
	Execute(ctx context.Context, order domain.TradeOrder) (*domain.TradeResult, error)
}

// Monitor watches one position for the peak signal. It acts on the rising
// edge only: entering peak status sells half the holdings once; the same
// contiguous peak interval never triggers again, but a re-entered peak
// does. The monitor never decides to stop - cancellation comes from the
// registry.
type Monitor struct {
	peaks    PeakSource
	seller   Seller
	interval time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	position *domain.WatchedPosition
}

func newMonitor(position *domain.WatchedPosition, peaks PeakSource, seller Seller, interval time.Duration, logger *log.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		peaks:    peaks,
		seller:   seller,
		interval: interval,
		logger:   logger,
		position: position,
	}
}

// Snapshot returns a copy of the monitored position.
func (m *Monitor) Snapshot() domain.WatchedPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.position
}

// run polls until the context is cancelled. Cancellation takes effect
// before the next scheduled poll.
func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll reads peak status once and reacts to edges. Poll failures leave
// the edge state unchanged and are retried on the next tick.
func (m *Monitor) poll(ctx context.Context) {
	m.mu.Lock()
	mint := m.position.Mint
	m.mu.Unlock()

	observability.DefaultMetrics.PeakPolls.Inc()
	peaked, err := m.peaks.PeakStatus(ctx, mint)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Printf("peak poll for %s failed: %v", mint, err)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !peaked {
		if m.position.PeakTriggered {
			// Peak epoch over; the next peak triggers again
			m.position.PeakTriggered = false
			m.logger.Printf("%s left peak status", mint)
		}
		return
	}

	if m.position.PeakTriggered {
		return // already acted on this peak epoch
	}

	// Rising edge: mark the epoch as handled before the sell resolves,
	// submission is not idempotent and must not repeat on the next tick
	m.position.PeakTriggered = true
	sellQty := m.position.Quantity / 2

	m.logger.Printf("%s reached peak, selling %f (half of %f)", mint, sellQty, m.position.Quantity)

	result, err := m.seller.Execute(ctx, domain.TradeOrder{
		Mint:     mint,
		Side:     domain.SideSell,
		Quantity: sellQty,
	})
	observability.RecordTrade(string(domain.SideSell), err)
	if err != nil {
		m.logger.Printf("peak sell for %s failed: %v", mint, err)
		return
	}
	observability.DefaultMetrics.PeakSells.Inc()

	// Holdings are not re-queried from the ledger; the executing context
	// updates the held quantity after a successful partial sell
	m.position.Quantity -= sellQty
	m.logger.Printf("peak sell for %s confirmed, tx %s, remaining %f",
		mint, result.TxSignature, m.position.Quantity)
}
