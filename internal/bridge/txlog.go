package bridge

import "fmt"

// TransactionLog is a fixed ring of bridge transactions indexed by id mod capacity.
//
// Ids start at 1 and are never reused. The watermark oldest is the smallest id
// that has not reached a terminal status (or nextID when every transaction is
// resolved). Every id in [oldest, nextID) is still addressable, so a slot is
// never overwritten while its transaction is unresolved: Append refuses once
// nextID-oldest reaches capacity.
type TransactionLog struct {
	slots  []Transaction // slots holds the ring; ID 0 marks an empty slot
	nextID uint64        // nextID is the id the next Append assigns
	oldest uint64        // oldest is the oldest unresolved id
}

// NewTransactionLog creates a log with the given ring capacity.
func NewTransactionLog(capacity int) *TransactionLog {
	return &TransactionLog{
		slots:  make([]Transaction, capacity),
		nextID: 1,
		oldest: 1,
	}
}

// Capacity returns the ring size.
func (l *TransactionLog) Capacity() int {
	return len(l.slots)
}

// NextID returns the id the next Append will assign.
func (l *TransactionLog) NextID() uint64 {
	return l.nextID
}

// OldestUnresolved returns the watermark. Equal to NextID when nothing is unresolved.
func (l *TransactionLog) OldestUnresolved() uint64 {
	return l.oldest
}

// Unresolved returns how many slots are pinned by the watermark.
func (l *TransactionLog) Unresolved() int {
	return int(l.nextID - l.oldest)
}

// CanAppend reports whether Append would succeed.
func (l *TransactionLog) CanAppend() error {
	if l.nextID-l.oldest >= uint64(len(l.slots)) {
		return fmt.Errorf("%w: transaction %d still unresolved, ring of %d is full",
			ErrCapacityExceeded, l.oldest, len(l.slots))
	}

	return nil
}

// Append assigns the next id to tx, stores it as Pending and returns the id.
// Existing slots are left unchanged when the ring is full.
func (l *TransactionLog) Append(tx Transaction) (uint64, error) {
	if tx.Amount == 0 {
		return 0, fmt.Errorf("%w: transaction amount is zero", ErrInvalidInput)
	}

	if err := l.CanAppend(); err != nil {
		return 0, err
	}

	id := l.nextID
	tx = tx.clone()
	tx.ID = id
	tx.Status = StatusPending

	l.slots[l.slot(id)] = tx
	l.nextID++

	return id, nil
}

// logMark is the ring position and one slot captured before a call.
type logMark struct {
	id     uint64
	nextID uint64
	oldest uint64
	slot   Transaction
}

// mark captures the watermarks and the slot that id maps to.
func (l *TransactionLog) mark(id uint64) logMark {
	return logMark{
		id:     id,
		nextID: l.nextID,
		oldest: l.oldest,
		slot:   l.slots[l.slot(id)].clone(),
	}
}

// reset puts the log back to m, undoing an Append or status change of m.id.
func (l *TransactionLog) reset(m logMark) {
	l.slots[l.slot(m.id)] = m.slot
	l.nextID = m.nextID
	l.oldest = m.oldest
}

// Get returns a copy of the transaction with the given id.
// Fails with ErrNotFound if id was never assigned or its slot was reused.
func (l *TransactionLog) Get(id uint64) (Transaction, error) {
	tx, err := l.lookup(id)
	if err != nil {
		return Transaction{}, err
	}

	return tx.clone(), nil
}

// SetStatus moves a transaction forward. Backward moves, moves out of a
// terminal status and same-status moves fail with ErrInvalidTransition.
func (l *TransactionLog) SetStatus(id uint64, status Status, tick uint64) error {
	tx, err := l.lookup(id)
	if err != nil {
		return err
	}

	if !canTransition(tx.Status, status) {
		return fmt.Errorf("%w: transaction %d %s -> %s", ErrInvalidTransition, id, tx.Status, status)
	}

	tx.Status = status
	tx.UpdatedAtTick = tick

	if status.Terminal() {
		l.advance()
	}

	return nil
}

// SetConfirmations records the attestation confirmation count.
func (l *TransactionLog) SetConfirmations(id uint64, confirmations uint64) error {
	tx, err := l.lookup(id)
	if err != nil {
		return err
	}

	tx.Confirmations = confirmations

	return nil
}

// AttachSignatures stores the quorum that authorized a transaction.
func (l *TransactionLog) AttachSignatures(id uint64, sigs []ValidatorSignature) error {
	tx, err := l.lookup(id)
	if err != nil {
		return err
	}

	tx.Signatures = make([]ValidatorSignature, len(sigs))
	copy(tx.Signatures, sigs)

	return nil
}

// Live returns copies of every addressable transaction, oldest id first.
func (l *TransactionLog) Live() []Transaction {
	first := uint64(1)
	if l.nextID > uint64(len(l.slots)) {
		first = l.nextID - uint64(len(l.slots))
	}

	out := make([]Transaction, 0, l.nextID-first)
	for id := first; id < l.nextID; id++ {
		if tx := &l.slots[l.slot(id)]; tx.ID == id {
			out = append(out, tx.clone())
		}
	}

	return out
}

// lookup returns a pointer to the slot holding id.
func (l *TransactionLog) lookup(id uint64) (*Transaction, error) {
	if id == 0 || id >= l.nextID {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	tx := &l.slots[l.slot(id)]
	if tx.ID != id {
		return nil, fmt.Errorf("%w: id %d overwritten by %d", ErrNotFound, id, tx.ID)
	}

	return tx, nil
}

// advance moves the watermark past every resolved transaction.
func (l *TransactionLog) advance() {
	for l.oldest < l.nextID && l.slots[l.slot(l.oldest)].Status.Terminal() {
		l.oldest++
	}
}

// slot maps an id to its ring index.
func (l *TransactionLog) slot(id uint64) int {
	return int(id % uint64(len(l.slots)))
}

// restore loads a previously exported log. The receiver must be fresh.
func (l *TransactionLog) restore(nextID, oldest uint64, txs []Transaction) error {
	if nextID == 0 || oldest == 0 || oldest > nextID {
		return fmt.Errorf("%w: watermark %d / next id %d", ErrInvalidInput, oldest, nextID)
	}

	if nextID-oldest > uint64(len(l.slots)) {
		return fmt.Errorf("%w: %d unresolved transactions for capacity %d",
			ErrCapacityExceeded, nextID-oldest, len(l.slots))
	}

	for _, tx := range txs {
		if tx.ID == 0 || tx.ID >= nextID {
			return fmt.Errorf("%w: restored id %d outside [1, %d)", ErrInvalidInput, tx.ID, nextID)
		}

		if nextID-tx.ID > uint64(len(l.slots)) {
			continue
		}

		l.slots[l.slot(tx.ID)] = tx.clone()
	}

	for id := oldest; id < nextID; id++ {
		if l.slots[l.slot(id)].ID != id {
			return fmt.Errorf("%w: unresolved transaction %d missing from image", ErrInvalidInput, id)
		}
	}

	l.nextID = nextID
	l.oldest = oldest
	l.advance()

	return nil
}
