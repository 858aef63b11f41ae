package bridge

import "fmt"

// LockedLedger tracks the amount currently held in escrow per asset.
// Entries live in a fixed-capacity table allocated up front and are never
// removed; a zero amount is a valid steady state.
type LockedLedger struct {
	entries []LockedBalance // entries in creation order, cap fixed at construction
	index   map[uint64]int  // index maps asset ID to position in entries
}

// NewLockedLedger creates a ledger able to track capacity distinct assets.
func NewLockedLedger(capacity int) *LockedLedger {
	return &LockedLedger{
		entries: make([]LockedBalance, 0, capacity),
		index:   make(map[uint64]int, capacity),
	}
}

// Capacity returns the maximum number of tracked assets.
func (l *LockedLedger) Capacity() int {
	return cap(l.entries)
}

// Len returns the number of tracked assets.
func (l *LockedLedger) Len() int {
	return len(l.entries)
}

// CanIncrease reports whether Increase(asset, amount) would succeed,
// without changing anything.
func (l *LockedLedger) CanIncrease(asset Asset, amount uint64) error {
	if asset.ID == 0 {
		return fmt.Errorf("%w: asset id 0 is reserved", ErrInvalidInput)
	}

	i, ok := l.index[asset.ID]
	if !ok {
		if len(l.entries) == cap(l.entries) {
			return fmt.Errorf("%w: asset ledger full (%d assets)", ErrCapacityExceeded, cap(l.entries))
		}

		return nil
	}

	e := l.entries[i]
	if e.Asset != asset {
		return fmt.Errorf("%w: %s conflicts with tracked %s", ErrInvalidInput, asset, e.Asset)
	}

	if e.Amount+amount < e.Amount {
		return fmt.Errorf("%w: locked amount overflow for %s", ErrInvalidInput, asset)
	}

	return nil
}

// Increase adds amount to the asset's locked balance, creating the entry if absent.
func (l *LockedLedger) Increase(asset Asset, amount uint64) error {
	if err := l.CanIncrease(asset, amount); err != nil {
		return err
	}

	if i, ok := l.index[asset.ID]; ok {
		l.entries[i].Amount += amount
		return nil
	}

	l.index[asset.ID] = len(l.entries)
	l.entries = append(l.entries, LockedBalance{Asset: asset, Amount: amount})

	return nil
}

// Decrease subtracts amount from the asset's locked balance, saturating at zero.
// It returns false when the balance could not cover amount (or the asset is
// unknown): the caller must treat that as an accounting inconsistency.
func (l *LockedLedger) Decrease(asset Asset, amount uint64) bool {
	i, ok := l.index[asset.ID]
	if !ok {
		return amount == 0
	}

	e := &l.entries[i]
	if e.Amount < amount {
		e.Amount = 0
		return false
	}

	e.Amount -= amount

	return true
}

// TotalLocked returns the asset's locked balance, or zero if unknown.
func (l *LockedLedger) TotalLocked(asset Asset) uint64 {
	return l.lockedByID(asset.ID)
}

// lockedByID returns the locked balance for an asset ID.
func (l *LockedLedger) lockedByID(id uint64) uint64 {
	if i, ok := l.index[id]; ok {
		return l.entries[i].Amount
	}

	return 0
}

// entry returns the tracked entry for an asset ID.
func (l *LockedLedger) entry(id uint64) (LockedBalance, bool) {
	i, ok := l.index[id]
	if !ok {
		return LockedBalance{}, false
	}

	return l.entries[i], true
}

// Entries returns a copy of every tracked entry in creation order.
func (l *LockedLedger) Entries() []LockedBalance {
	out := make([]LockedBalance, len(l.entries))
	copy(out, l.entries)

	return out
}

// restore replaces the ledger contents. The receiver must be empty.
func (l *LockedLedger) restore(entries []LockedBalance) error {
	if len(entries) > cap(l.entries) {
		return fmt.Errorf("%w: %d entries for capacity %d", ErrCapacityExceeded, len(entries), cap(l.entries))
	}

	for _, e := range entries {
		if e.Asset.ID == 0 {
			return fmt.Errorf("%w: restored entry with asset id 0", ErrInvalidInput)
		}

		if _, dup := l.index[e.Asset.ID]; dup {
			return fmt.Errorf("%w: duplicate entry for asset %d", ErrInvalidInput, e.Asset.ID)
		}

		l.index[e.Asset.ID] = len(l.entries)
		l.entries = append(l.entries, e)
	}

	return nil
}

// ledgerMark is one entry and the table size captured before a call.
type ledgerMark struct {
	assetID uint64
	size    int
	entry   LockedBalance
	found   bool
}

// mark captures the entry for assetID and the current table size.
func (l *LockedLedger) mark(assetID uint64) ledgerMark {
	e, found := l.entry(assetID)
	return ledgerMark{assetID: assetID, size: len(l.entries), entry: e, found: found}
}

// reset drops entries created after m and restores the marked entry.
func (l *LockedLedger) reset(m ledgerMark) {
	for _, e := range l.entries[m.size:] {
		delete(l.index, e.Asset.ID)
	}
	l.entries = l.entries[:m.size]

	if m.found {
		l.entries[l.index[m.assetID]] = m.entry
	}
}
