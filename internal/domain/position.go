package domain

// WatchedPosition is a held token under peak monitoring.
// Created when a buy succeeds, destroyed when the watch is cancelled.
// Only the position's own monitor mutates it after registration.
type WatchedPosition struct {
	Mint     string
	Quantity float64 // current holdings in token units

	// PeakTriggered is set when the monitor has acted on the current peak
	// epoch and cleared when the token leaves peak status, so a re-entered
	// peak triggers again but the same contiguous peak interval never does.
	PeakTriggered bool

	OpenedAt int64 // Unix milliseconds
}
