package memory

import (
	"context"
	"errors"
	"testing"

	"pump-agent/internal/domain"
	"pump-agent/internal/storage"
)

func TestVerdictStore_InsertAndGetByMint(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := &domain.VerdictRecord{
		Mint:       "mint1",
		Name:       "TestToken",
		Eligible:   false,
		Stage:      domain.StageLaunchFilter,
		Reasons:    []string{"market cap: 9000.00 (want >10000, <20000)"},
		ScreenedAt: 1704067200000,
	}

	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if result.Name != "TestToken" {
		t.Errorf("Name mismatch: got %s, want TestToken", result.Name)
	}
	if result.Eligible {
		t.Error("expected Eligible=false")
	}
	if result.Stage != domain.StageLaunchFilter {
		t.Errorf("Stage mismatch: got %s", result.Stage)
	}
	if len(result.Reasons) != 1 {
		t.Errorf("expected 1 reason, got %d", len(result.Reasons))
	}
	if result.CreatedAt == 0 {
		t.Error("expected CreatedAt to be set")
	}
}

func TestVerdictStore_InsertDuplicate(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := &domain.VerdictRecord{Mint: "mint1", Stage: domain.StageTrade, Eligible: true}

	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, v)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestVerdictStore_InsertInvalid(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.VerdictRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty mint, got %v", err)
	}
}

func TestVerdictStore_GetByMintNotFound(t *testing.T) {
	store := NewVerdictStore()

	_, err := store.GetByMint(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerdictStore_ListRecent(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	for i, mint := range []string{"m1", "m2", "m3"} {
		v := &domain.VerdictRecord{
			Mint:       mint,
			Stage:      domain.StageSocials,
			ScreenedAt: int64(1704067200000 + i*1000),
		}
		if err := store.Insert(ctx, v); err != nil {
			t.Fatalf("Insert %s failed: %v", mint, err)
		}
	}

	result, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result))
	}
	if result[0].Mint != "m3" || result[1].Mint != "m2" {
		t.Errorf("expected newest first (m3, m2), got (%s, %s)", result[0].Mint, result[1].Mint)
	}
}

func TestVerdictStore_InsertReturnsCopy(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := &domain.VerdictRecord{
		Mint:    "mint1",
		Stage:   domain.StageConcentration,
		Reasons: []string{"holder concentration: 5.00% (want <=4%)"},
	}
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's record must not affect the stored one
	v.Name = "mutated"
	v.Reasons[0] = "mutated"

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if result.Name == "mutated" {
		t.Error("stored record shares memory with caller's struct")
	}
	if result.Reasons[0] == "mutated" {
		t.Error("stored record shares the caller's Reasons slice")
	}
}
