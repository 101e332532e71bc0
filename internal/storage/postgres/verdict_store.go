package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pump-agent/internal/domain"
	"pump-agent/internal/storage"
)

// VerdictStore implements storage.VerdictStore using PostgreSQL.
type VerdictStore struct {
	pool *Pool
}

// NewVerdictStore creates a new VerdictStore.
func NewVerdictStore(pool *Pool) *VerdictStore {
	return &VerdictStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)

// Insert adds a new verdict. Returns ErrDuplicateKey if the mint was
// already screened.
func (s *VerdictStore) Insert(ctx context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO verdicts (
			mint, name, eligible, stage, reasons, screened_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		v.Mint,
		v.Name,
		v.Eligible,
		v.Stage,
		v.Reasons,
		v.ScreenedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// GetByMint retrieves the verdict for a mint. Returns ErrNotFound if the
// mint was never screened.
func (s *VerdictStore) GetByMint(ctx context.Context, mint string) (*domain.VerdictRecord, error) {
	query := `
		SELECT mint, name, eligible, stage, reasons, screened_at, created_at
		FROM verdicts
		WHERE mint = $1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	v, err := scanVerdict(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get verdict by mint: %w", err)
	}
	return v, nil
}

// ListRecent retrieves the most recent verdicts, newest first.
func (s *VerdictStore) ListRecent(ctx context.Context, limit int) ([]*domain.VerdictRecord, error) {
	query := `
		SELECT mint, name, eligible, stage, reasons, screened_at, created_at
		FROM verdicts
		ORDER BY screened_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent verdicts: %w", err)
	}
	defer rows.Close()

	var out []*domain.VerdictRecord
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}

// scanVerdict scans a single row into a VerdictRecord.
func scanVerdict(row pgx.Row) (*domain.VerdictRecord, error) {
	var v domain.VerdictRecord

	err := row.Scan(
		&v.Mint,
		&v.Name,
		&v.Eligible,
		&v.Stage,
		&v.Reasons,
		&v.ScreenedAt,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
