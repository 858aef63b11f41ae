// Package ledger is a Pebble-backed host ledger the bridge daemon settles against.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/storage"
)

// Key prefixes for storage.
var (
	prefixBalance = []byte("b:")        // b:<address> -> balance u64 BE
	keyTick       = []byte("k:tick")    // k:tick -> current tick u64 BE
	keyGenesis    = []byte("k:genesis") // k:genesis -> set once genesis balances are credited
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOverflow is returned when a credit would overflow a balance.
	ErrOverflow = errors.New("balance overflow")
)

// Ledger holds account balances and the tick counter.
// It is safe for concurrent access.
type Ledger struct {
	mu      sync.Mutex
	db      *storage.Storage
	custody bridge.Address
	tick    uint64
}

// New opens the ledger stored in db. custody receives minted amounts.
func New(db *storage.Storage, custody bridge.Address) (*Ledger, error) {
	l := &Ledger{db: db, custody: custody}

	raw, err := db.Get(keyTick)
	if err != nil {
		return nil, fmt.Errorf("read tick:\n%w", err)
	}

	if len(raw) == 8 {
		l.tick = binary.BigEndian.Uint64(raw)
	}

	return l, nil
}

// Genesis credits the initial balances once. Later calls are no-ops and
// return false.
func (l *Ledger) Genesis(balances map[bridge.Address]uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	done, err := l.db.Get(keyGenesis)
	if err != nil {
		return false, fmt.Errorf("read genesis marker:\n%w", err)
	}

	if done != nil {
		return false, nil
	}

	ops := make([]storage.Op, 0, len(balances)+1)
	for account, amount := range balances {
		ops = append(ops, storage.Op{Key: balanceKey(account), Value: encodeUint64(amount)})
	}
	ops = append(ops, storage.Op{Key: keyGenesis, Value: []byte{1}})

	if err := l.db.Apply(ops, true); err != nil {
		return false, fmt.Errorf("write genesis balances:\n%w", err)
	}

	return true, nil
}

// Custody returns the account minted amounts are credited to.
func (l *Ledger) Custody() bridge.Address {
	return l.custody
}

// BalanceOf returns the balance of account, or zero if unknown or unreadable.
func (l *Ledger) BalanceOf(account bridge.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, _ := l.balance(account)
	return balance
}

// Burn removes amount from account.
func (l *Ledger) Burn(from bridge.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.balance(from)
	if err != nil {
		return err
	}

	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, burn %d", ErrInsufficientFunds, from, balance, amount)
	}

	return l.db.Apply([]storage.Op{{Key: balanceKey(from), Value: encodeUint64(balance - amount)}}, true)
}

// Mint credits amount to the custody account.
func (l *Ledger) Mint(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.balance(l.custody)
	if err != nil {
		return err
	}

	if balance+amount < balance {
		return fmt.Errorf("%w: custody", ErrOverflow)
	}

	return l.db.Apply([]storage.Op{{Key: balanceKey(l.custody), Value: encodeUint64(balance + amount)}}, true)
}

// Transfer moves amount from custody to to in one batch.
func (l *Ledger) Transfer(to bridge.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, err := l.balance(l.custody)
	if err != nil {
		return err
	}

	if from < amount {
		return fmt.Errorf("%w: custody holds %d, transfer %d", ErrInsufficientFunds, from, amount)
	}

	if to == l.custody {
		return nil
	}

	dest, err := l.balance(to)
	if err != nil {
		return err
	}

	if dest+amount < dest {
		return fmt.Errorf("%w: %s", ErrOverflow, to)
	}

	return l.db.Apply([]storage.Op{
		{Key: balanceKey(l.custody), Value: encodeUint64(from - amount)},
		{Key: balanceKey(to), Value: encodeUint64(dest + amount)},
	}, true)
}

// CurrentTick returns the current tick.
func (l *Ledger) CurrentTick() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.tick
}

// Advance increments and persists the tick, returning the new value.
func (l *Ledger) Advance() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.Set(keyTick, encodeUint64(l.tick+1)); err != nil {
		return l.tick, fmt.Errorf("write tick:\n%w", err)
	}

	l.tick++

	return l.tick, nil
}

// balance reads a balance. Caller must hold mu.
func (l *Ledger) balance(account bridge.Address) (uint64, error) {
	raw, err := l.db.Get(balanceKey(account))
	if err != nil {
		return 0, fmt.Errorf("read balance:\n%w", err)
	}

	if len(raw) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(raw), nil
}

// balanceKey creates the key for an account balance.
func balanceKey(account bridge.Address) []byte {
	key := make([]byte, len(prefixBalance)+bridge.AddressSize)
	copy(key, prefixBalance)
	copy(key[len(prefixBalance):], account[:])

	return key
}

// encodeUint64 encodes v as 8 big-endian bytes.
func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)

	return buf[:]
}
