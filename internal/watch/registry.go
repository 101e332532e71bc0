package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pump-agent/internal/domain"
)

// ErrAlreadyWatched is returned when a mint is already under watch.
var ErrAlreadyWatched = errors.New("position already watched")

// Config holds registry tuning parameters.
type Config struct {
	PollInterval time.Duration
}

// DefaultConfig returns registry defaults.
func DefaultConfig() Config {
	return Config{PollInterval: DefaultPollInterval}
}

// watcher pairs a running monitor with its cancel handle.
type watcher struct {
	monitor *Monitor
	cancel  context.CancelFunc
}

// Registry owns one Monitor per watched position. Each Watch starts a
// goroutine; Unwatch or Close cancels it.
type Registry struct {
	peaks  PeakSource
	seller Seller
	config Config
	logger *log.Logger

	mu       sync.Mutex
	watchers map[string]*watcher
	wg       sync.WaitGroup
	closed   bool
}

// NewRegistry creates an empty watch registry.
func NewRegistry(peaks PeakSource, seller Seller, config Config, logger *log.Logger) *Registry {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		peaks:    peaks,
		seller:   seller,
		config:   config,
		logger:   logger,
		watchers: make(map[string]*watcher),
	}
}

// Watch starts monitoring a position. The monitor captures the position
// as passed in, so concurrent registrations never observe each other's
// state. Watching a mint twice is rejected.
func (r *Registry) Watch(ctx context.Context, position domain.WatchedPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("registry closed")
	}
	if _, ok := r.watchers[position.Mint]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, position.Mint)
	}

	if position.OpenedAt == 0 {
		position.OpenedAt = time.Now().UnixMilli()
	}

	mctx, cancel := context.WithCancel(ctx)
	m := newMonitor(&position, r.peaks, r.seller, r.config.PollInterval, r.logger)
	r.watchers[position.Mint] = &watcher{monitor: m, cancel: cancel}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		m.run(mctx)
	}()

	r.logger.Printf("watching %s (quantity %f, poll every %s)",
		position.Mint, position.Quantity, r.config.PollInterval)
	return nil
}

// Unwatch stops the monitor for mint. Returns false if it was not watched.
func (r *Registry) Unwatch(mint string) bool {
	r.mu.Lock()
	w, ok := r.watchers[mint]
	if ok {
		delete(r.watchers, mint)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	w.cancel()
	r.logger.Printf("stopped watching %s", mint)
	return true
}

// Position returns a snapshot of a watched position.
func (r *Registry) Position(mint string) (domain.WatchedPosition, bool) {
	r.mu.Lock()
	w, ok := r.watchers[mint]
	r.mu.Unlock()

	if !ok {
		return domain.WatchedPosition{}, false
	}
	return w.monitor.Snapshot(), true
}

// Len reports the number of watched positions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Close cancels every monitor and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for mint, w := range r.watchers {
		w.cancel()
		delete(r.watchers, mint)
	}
	r.mu.Unlock()

	r.wg.Wait()
}
