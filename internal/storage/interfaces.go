// Package storage defines the persistence interfaces for the screening
// journal and the shared error vocabulary its implementations return.
package storage

import (
	"context"

	"pump-agent/internal/domain"
)

// VerdictStore provides access to the screening verdict journal. The
// journal is append-only: one record per mint, written when screening
// concludes, never updated.
type VerdictStore interface {
	// Insert adds a new verdict. Returns ErrDuplicateKey if the mint
	// was already screened.
	Insert(ctx context.Context, v *domain.VerdictRecord) error

	// GetByMint retrieves the verdict for a mint. Returns ErrNotFound
	// if the mint was never screened.
	GetByMint(ctx context.Context, mint string) (*domain.VerdictRecord, error)

	// ListRecent retrieves the most recent verdicts, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.VerdictRecord, error)
}
