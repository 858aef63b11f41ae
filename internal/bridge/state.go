package bridge

import "fmt"

// State is the single owned bridge state: transaction log, locked ledger,
// pause flag and counters. A Machine holds it exclusively; nothing else
// mutates it.
type State struct {
	log    *TransactionLog
	ledger *LockedLedger
	paused bool
	stats  Stats
}

// NewState allocates an empty state sized by limits.
func NewState(limits Limits) *State {
	return &State{
		log:    NewTransactionLog(limits.MaxTransactions),
		ledger: NewLockedLedger(limits.MaxAssets),
	}
}

// RestoreState rebuilds a state from a full image.
func RestoreState(limits Limits, img Image) (*State, error) {
	s := NewState(limits)

	if err := s.log.restore(img.Meta.NextID, img.Meta.OldestUnresolved, img.Transactions); err != nil {
		return nil, fmt.Errorf("restore transaction log:\n%w", err)
	}

	if err := s.ledger.restore(img.Locked); err != nil {
		return nil, fmt.Errorf("restore locked ledger:\n%w", err)
	}

	s.paused = img.Meta.Paused
	s.stats = img.Meta.Stats

	return s, nil
}

// Image returns a full copy of the state.
func (s *State) Image() Image {
	return Image{
		Meta:         s.meta(),
		Transactions: s.log.Live(),
		Locked:       s.ledger.Entries(),
	}
}

// meta returns the scalar part of the state.
func (s *State) meta() Meta {
	return Meta{
		NextID:           s.log.NextID(),
		OldestUnresolved: s.log.OldestUnresolved(),
		Paused:           s.paused,
		Stats:            s.stats,
	}
}

// savepoint is the part of the state one call may change.
type savepoint struct {
	log    logMark
	ledger ledgerMark
	paused bool
	stats  Stats
}

// save captures what a call touching txID and assetID can modify.
func (s *State) save(txID, assetID uint64) savepoint {
	return savepoint{
		log:    s.log.mark(txID),
		ledger: s.ledger.mark(assetID),
		paused: s.paused,
		stats:  s.stats,
	}
}

// rewind undoes every change made since sp was taken.
func (s *State) rewind(sp savepoint) {
	s.log.reset(sp.log)
	s.ledger.reset(sp.ledger)
	s.paused = sp.paused
	s.stats = sp.stats
}

// Journal persists the entries one call touched. Commit receives a delta
// image and must apply it atomically.
type Journal interface {
	Commit(delta Image) error
}

// delta records which entries a call touched.
type delta struct {
	txIDs    []uint64
	assetIDs []uint64
}

// touchTx marks a transaction as modified.
func (d *delta) touchTx(id uint64) {
	d.txIDs = append(d.txIDs, id)
}

// touchAsset marks a ledger entry as modified.
func (d *delta) touchAsset(id uint64) {
	d.assetIDs = append(d.assetIDs, id)
}

// image materializes the touched entries from s.
func (d *delta) image(s *State) Image {
	img := Image{Meta: s.meta()}

	for _, id := range d.txIDs {
		if tx, err := s.log.Get(id); err == nil {
			img.Transactions = append(img.Transactions, tx)
		}
	}

	for _, id := range d.assetIDs {
		if e, ok := s.ledger.entry(id); ok {
			img.Locked = append(img.Locked, e)
		}
	}

	return img
}
