package memory

import (
	"context"
	"testing"

	"gastos/internal/core"
)

func TestStoreUpsertAndClear(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.UpsertMonth(ctx, 1, "2025-01", core.Month{Luz: core.Money{Cents: 123}})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	ref, err = s.UpsertMonth(ctx, 2, "2025-01", core.Month{})
	if err != nil || ref != "mem:3" {
		t.Fatalf("unexpected second upsert: ref=%q err=%v", ref, err)
	}
	ref, _ = s.UpsertMonth(ctx, 1, "2025-01", core.Month{Luz: core.Money{Cents: 5}})
	if ref != "mem:2" {
		t.Fatalf("row ref should be stable, got %q", ref)
	}

	months, _ := s.ReadMonths(ctx, 1)
	if len(months) != 1 || months["2025-01"].Luz.Cents != 5 {
		t.Fatalf("unexpected months: %+v", months)
	}

	if err := s.ClearMonth(ctx, 1, "2025-01"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.ClearMonth(ctx, 1, "2030-01"); err != nil {
		t.Fatalf("clear missing: %v", err)
	}
	if got := s.Keys(); len(got) != 1 || got[0] != "2:2025-01" {
		t.Fatalf("unexpected keys: %v", got)
	}
	if s.Writes() != 4 {
		t.Fatalf("writes = %d, want 4", s.Writes())
	}
}

func TestStoreRejectsNegativeAmounts(t *testing.T) {
	_, err := New().UpsertMonth(context.Background(), 1, "2025-01", core.Month{Gas: core.Money{Cents: -1}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
