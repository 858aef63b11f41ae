package bridge

import (
	"errors"
	"testing"
)

func TestLedgerIncreaseAndTotal(t *testing.T) {
	l := NewLockedLedger(2)

	if err := l.Increase(testAsset, 40); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if err := l.Increase(testAsset, 60); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if got := l.TotalLocked(testAsset); got != 100 {
		t.Errorf("expected 100 locked, got %d", got)
	}

	if l.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", l.Len())
	}

	if got := l.TotalLocked(Asset{ID: 99}); got != 0 {
		t.Errorf("expected 0 for unknown asset, got %d", got)
	}
}

func TestLedgerRejectsReservedAsset(t *testing.T) {
	l := NewLockedLedger(2)

	err := l.Increase(Asset{ID: 0}, 1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if l.Len() != 0 {
		t.Errorf("expected no entry, got %d", l.Len())
	}
}

// TestLedgerCapacity verifies a full ledger still accepts known assets.
func TestLedgerCapacity(t *testing.T) {
	l := NewLockedLedger(2)

	for id := uint64(1); id <= 2; id++ {
		if err := l.Increase(Asset{ID: id}, 1); err != nil {
			t.Fatalf("increase %d: %v", id, err)
		}
	}

	if err := l.CanIncrease(Asset{ID: 3}, 1); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	if err := l.Increase(Asset{ID: 1}, 5); err != nil {
		t.Fatalf("increase known asset on full ledger: %v", err)
	}

	if got := l.TotalLocked(Asset{ID: 1}); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestLedgerKindMismatch(t *testing.T) {
	l := NewLockedLedger(2)

	if err := l.Increase(testAsset, 1); err != nil {
		t.Fatalf("increase: %v", err)
	}

	other := testAsset
	other.Kind = TokenNonFungible

	if err := l.Increase(other, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLedgerOverflow(t *testing.T) {
	l := NewLockedLedger(1)

	if err := l.Increase(testAsset, ^uint64(0)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if err := l.Increase(testAsset, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}

	if got := l.TotalLocked(testAsset); got != ^uint64(0) {
		t.Errorf("balance changed on rejected increase: %d", got)
	}
}

// TestLedgerDecreaseSaturates verifies an uncovered decrease clamps to zero and reports it.
func TestLedgerDecreaseSaturates(t *testing.T) {
	l := NewLockedLedger(1)

	if err := l.Increase(testAsset, 10); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if !l.Decrease(testAsset, 4) {
		t.Fatal("covered decrease reported inconsistency")
	}

	if l.Decrease(testAsset, 7) {
		t.Fatal("uncovered decrease reported success")
	}

	if got := l.TotalLocked(testAsset); got != 0 {
		t.Errorf("expected saturation at 0, got %d", got)
	}

	if l.Len() != 1 {
		t.Errorf("zero entry should be kept, got %d entries", l.Len())
	}

	if l.Decrease(Asset{ID: 42}, 1) {
		t.Error("decrease of unknown asset reported success")
	}
}

func TestLedgerRestore(t *testing.T) {
	l := NewLockedLedger(2)

	entries := []LockedBalance{{Asset: testAsset, Amount: 5}, {Asset: Asset{ID: 9}, Amount: 0}}
	if err := l.restore(entries); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := l.TotalLocked(testAsset); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}

	dup := NewLockedLedger(2)
	if err := dup.restore([]LockedBalance{{Asset: testAsset}, {Asset: testAsset}}); err == nil {
		t.Error("expected error for duplicate entries")
	}
}
