package store

import (
	"encoding/binary"
	"fmt"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/codec"
	"QuantumLink/internal/storage"
)

// Key prefixes for storage.
var (
	prefixTx     = []byte("t:")     // t:<id u64 BE> -> bridge record
	prefixLocked = []byte("l:")     // l:<asset id u64 BE> -> ledger entry
	keyMeta      = []byte("m:meta") // m:meta -> bridge meta
)

// Journal persists bridge state in Pebble. Each Commit is one atomic batch,
// so a crash never leaves a half-applied call on disk.
type Journal struct {
	db       *storage.Storage
	capacity uint64 // capacity is the ring size; older records are pruned
	durable  bool   // durable waits for the WAL on every commit
}

// New creates a journal for a transaction ring of the given capacity.
func New(db *storage.Storage, capacity int, durable bool) *Journal {
	return &Journal{db: db, capacity: uint64(capacity), durable: durable}
}

// Commit writes the entries of a delta image and prunes the record each new
// transaction displaced from the ring.
func (j *Journal) Commit(delta bridge.Image) error {
	ops := make([]storage.Op, 0, 2*len(delta.Transactions)+len(delta.Locked)+1)

	for i := range delta.Transactions {
		tx := &delta.Transactions[i]
		ops = append(ops, storage.Op{Key: txKey(tx.ID), Value: codec.EncodeRecord(tx)})

		if tx.ID > j.capacity {
			ops = append(ops, storage.Op{Key: txKey(tx.ID - j.capacity), Delete: true})
		}
	}

	for _, e := range delta.Locked {
		ops = append(ops, storage.Op{Key: lockedKey(e.Asset.ID), Value: codec.EncodeLocked(e)})
	}

	ops = append(ops, storage.Op{Key: keyMeta, Value: codec.EncodeMeta(delta.Meta)})

	if err := j.db.Apply(ops, j.durable); err != nil {
		return fmt.Errorf("commit journal batch:\n%w", err)
	}

	return nil
}

// Reset replaces the stored state with a full image in one batch.
func (j *Journal) Reset(img bridge.Image) error {
	var ops []storage.Op

	for _, prefix := range [][]byte{prefixTx, prefixLocked} {
		err := j.db.IteratePrefix(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			ops = append(ops, storage.Op{Key: k, Delete: true})
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan %q:\n%w", prefix, err)
		}
	}

	for i := range img.Transactions {
		tx := &img.Transactions[i]
		ops = append(ops, storage.Op{Key: txKey(tx.ID), Value: codec.EncodeRecord(tx)})
	}

	for _, e := range img.Locked {
		ops = append(ops, storage.Op{Key: lockedKey(e.Asset.ID), Value: codec.EncodeLocked(e)})
	}

	ops = append(ops, storage.Op{Key: keyMeta, Value: codec.EncodeMeta(img.Meta)})

	if err := j.db.Apply(ops, true); err != nil {
		return fmt.Errorf("reset journal:\n%w", err)
	}

	return nil
}

// Image reads the full stored image. found is false on an empty database.
func (j *Journal) Image() (img bridge.Image, found bool, err error) {
	raw, err := j.db.Get(keyMeta)
	if err != nil {
		return img, false, fmt.Errorf("read meta:\n%w", err)
	}

	if raw == nil {
		return img, false, nil
	}

	if img.Meta, err = codec.DecodeMeta(raw); err != nil {
		return img, false, err
	}

	err = j.db.IteratePrefix(prefixTx, func(key, value []byte) error {
		tx, err := codec.DecodeRecord(value)
		if err != nil {
			return fmt.Errorf("decode record %x:\n%w", key, err)
		}

		img.Transactions = append(img.Transactions, tx)
		return nil
	})
	if err != nil {
		return img, false, err
	}

	err = j.db.IteratePrefix(prefixLocked, func(key, value []byte) error {
		e, err := codec.DecodeLocked(value)
		if err != nil {
			return fmt.Errorf("decode ledger entry %x:\n%w", key, err)
		}

		img.Locked = append(img.Locked, e)
		return nil
	})
	if err != nil {
		return img, false, err
	}

	return img, true, nil
}

// Load rebuilds the bridge state from storage, or returns a fresh state
// when nothing was stored yet.
func (j *Journal) Load(limits bridge.Limits) (*bridge.State, error) {
	img, found, err := j.Image()
	if err != nil {
		return nil, err
	}

	if !found {
		return bridge.NewState(limits), nil
	}

	state, err := bridge.RestoreState(limits, img)
	if err != nil {
		return nil, fmt.Errorf("restore stored state:\n%w", err)
	}

	return state, nil
}

// txKey creates the key for a transaction record.
func txKey(id uint64) []byte {
	key := make([]byte, len(prefixTx)+8)
	copy(key, prefixTx)
	binary.BigEndian.PutUint64(key[len(prefixTx):], id)

	return key
}

// lockedKey creates the key for a ledger entry.
func lockedKey(assetID uint64) []byte {
	key := make([]byte, len(prefixLocked)+8)
	copy(key, prefixLocked)
	binary.BigEndian.PutUint64(key[len(prefixLocked):], assetID)

	return key
}
