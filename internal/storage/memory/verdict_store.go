// Package memory provides in-memory storage implementations, used in
// tests and when the agent runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pump-agent/internal/domain"
	"pump-agent/internal/storage"
)

// VerdictStore is an in-memory implementation of storage.VerdictStore.
type VerdictStore struct {
	mu     sync.RWMutex
	byMint map[string]*domain.VerdictRecord
}

// NewVerdictStore creates a new in-memory verdict store.
func NewVerdictStore() *VerdictStore {
	return &VerdictStore{
		byMint: make(map[string]*domain.VerdictRecord),
	}
}

// Insert adds a new verdict. Returns ErrDuplicateKey if the mint was
// already screened.
func (s *VerdictStore) Insert(_ context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint[v.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	vCopy := *v
	vCopy.Reasons = append([]string(nil), v.Reasons...)
	if vCopy.CreatedAt == 0 {
		vCopy.CreatedAt = time.Now().UnixMilli()
	}
	s.byMint[v.Mint] = &vCopy
	return nil
}

// GetByMint retrieves the verdict for a mint. Returns ErrNotFound if the
// mint was never screened.
func (s *VerdictStore) GetByMint(_ context.Context, mint string) (*domain.VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	vCopy := *v
	vCopy.Reasons = append([]string(nil), v.Reasons...)
	return &vCopy, nil
}

// ListRecent retrieves the most recent verdicts, newest first.
func (s *VerdictStore) ListRecent(_ context.Context, limit int) ([]*domain.VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.VerdictRecord, 0, len(s.byMint))
	for _, v := range s.byMint {
		vCopy := *v
		vCopy.Reasons = append([]string(nil), v.Reasons...)
		out = append(out, &vCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScreenedAt > out[j].ScreenedAt
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ storage.VerdictStore = (*VerdictStore)(nil)
