package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"portfel/internal/core"
)

func TestStoreWriteReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := []core.LedgerRow{{Name: "a", Amount: decimal.NewFromInt(1)}, {Name: "b", Amount: decimal.NewFromInt(2)}}
	if err := s.WriteLedger(ctx, "1 Home", first); err != nil {
		t.Fatal(err)
	}
	first[0].Name = "mutated"

	got, ok := s.Ledger("1 Home")
	if !ok || len(got) != 2 || got[0].Name != "a" {
		t.Fatalf("unexpected ledger: %v %v", got, ok)
	}

	if err := s.WriteLedger(ctx, "1 Home", first[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Ledger("1 Home")
	if len(got) != 1 {
		t.Errorf("write should replace, got %d rows", len(got))
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}

	if _, ok := s.Ledger("missing"); ok {
		t.Error("unknown sheet should not be found")
	}
}
