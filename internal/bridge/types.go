package bridge

import (
	"encoding/hex"
	"fmt"
)

const (
	// MaxBridgeTransactions is the default and upper bound for concurrently
	// addressable bridge transactions (ring capacity).
	MaxBridgeTransactions = 10000

	// MaxAssets is the default and upper bound for tracked asset identities.
	MaxAssets = 1000

	// MaxValidators is the upper bound for the validator set and for the
	// number of signatures accepted by UnlockAssets.
	MaxValidators = 100

	// MinValidatorSignatures is the lowest quorum threshold M the bridge accepts.
	MinValidatorSignatures = 3

	// AddressSize is the size of an account address in bytes.
	AddressSize = 32

	// SignatureSize is the size of a validator signature in bytes.
	SignatureSize = 64
)

// Address is an opaque 32-byte account identifier on either chain.
type Address [AddressSize]byte

// String returns the hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// PublicKey is a validator's 32-byte signing key.
type PublicKey [32]byte

// String returns a short hex prefix for logging.
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:8])
}

// ChainID identifies one side of the bridge.
type ChainID uint8

const (
	ChainQubic  ChainID = 1
	ChainSolana ChainID = 2
)

// TokenKind is the asset kind tag.
type TokenKind uint8

const (
	TokenNative      TokenKind = 0
	TokenFungible    TokenKind = 1
	TokenNonFungible TokenKind = 2
)

// Valid reports whether k is a known token kind.
func (k TokenKind) Valid() bool {
	return k <= TokenNonFungible
}

// Asset identifies a bridged asset. ID 0 is reserved as the unknown-asset sentinel.
type Asset struct {
	ID       uint64    // ID is the opaque asset identifier
	Kind     TokenKind // Kind is native, fungible or non-fungible
	Decimals uint8     // Decimals is the asset's display precision
}

// String formats the asset for logs and errors.
func (a Asset) String() string {
	return fmt.Sprintf("asset(%d/%d/%d)", a.ID, a.Kind, a.Decimals)
}

// Status is the lifecycle state of a bridge transaction.
type Status uint8

const (
	StatusPending   Status = 0
	StatusConfirmed Status = 1
	StatusCompleted Status = 2
	StatusFailed    Status = 3
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// canTransition reports whether from -> to respects the forward-only ordering.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusFailed
	case StatusConfirmed:
		return to == StatusCompleted
	default:
		return false
	}
}

// ValidatorSignature is one validator's signature over a transaction.
type ValidatorSignature struct {
	PublicKey PublicKey           // PublicKey identifies the signing validator
	Signature [SignatureSize]byte // Signature is over CanonicalBytes(tx)
}

// Transaction is a single cross-chain transfer intent.
type Transaction struct {
	ID                 uint64
	Asset              Asset
	Amount             uint64
	SourceChain        ChainID
	DestinationChain   ChainID
	SourceAddress      Address
	DestinationAddress Address
	CreatedAtTick      uint64
	UpdatedAtTick      uint64
	Status             Status
	Confirmations      uint64
	Signatures         []ValidatorSignature // Signatures are the counted quorum on completion
}

// clone returns a deep copy so callers never alias log storage.
func (tx Transaction) clone() Transaction {
	if tx.Signatures != nil {
		sigs := make([]ValidatorSignature, len(tx.Signatures))
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	return tx
}

// LockedBalance is one LockedAssetLedger entry.
type LockedBalance struct {
	Asset  Asset
	Amount uint64
}

// Stats are cumulative bridge counters.
type Stats struct {
	TotalLocked           uint64 // TotalLocked is the volume ever locked
	TotalUnlocked         uint64 // TotalUnlocked is the volume released by UnlockAssets
	TotalRefunded         uint64 // TotalRefunded is the volume returned by failed transactions
	TotalTransfers        uint64 // TotalTransfers is the number of LockAssets calls that succeeded
	TotalValidatorActions uint64 // TotalValidatorActions counts confirmations, failures and unlocks
}

// Meta is the scalar part of the bridge state.
type Meta struct {
	NextID           uint64
	OldestUnresolved uint64
	Paused           bool
	Stats            Stats
}

// Image is a flat copy of bridge state. A full image describes the whole
// state; a delta image carries only the entries touched by one call.
type Image struct {
	Meta         Meta
	Transactions []Transaction
	Locked       []LockedBalance
}

// Limits are the capacity and threshold bounds of one bridge instance.
type Limits struct {
	MaxTransactions int // MaxTransactions is the ring capacity
	MaxAssets       int // MaxAssets is the locked ledger capacity
	MaxValidators   int // MaxValidators bounds the validator set and signature lists
	MinQuorum       int // MinQuorum is the lowest accepted threshold M
}

// DefaultLimits returns the reference capacities.
func DefaultLimits() Limits {
	return Limits{
		MaxTransactions: MaxBridgeTransactions,
		MaxAssets:       MaxAssets,
		MaxValidators:   MaxValidators,
		MinQuorum:       MinValidatorSignatures,
	}
}

// Validate checks the limits are positive and within the hard bounds.
func (l Limits) Validate() error {
	if l.MaxTransactions <= 0 || l.MaxTransactions > MaxBridgeTransactions {
		return fmt.Errorf("max transactions must be in [1, %d], got %d", MaxBridgeTransactions, l.MaxTransactions)
	}

	if l.MaxAssets <= 0 || l.MaxAssets > MaxAssets {
		return fmt.Errorf("max assets must be in [1, %d], got %d", MaxAssets, l.MaxAssets)
	}

	if l.MaxValidators <= 0 || l.MaxValidators > MaxValidators {
		return fmt.Errorf("max validators must be in [1, %d], got %d", MaxValidators, l.MaxValidators)
	}

	if l.MinQuorum < MinValidatorSignatures || l.MinQuorum > l.MaxValidators {
		return fmt.Errorf("min quorum must be in [%d, %d], got %d", MinValidatorSignatures, l.MaxValidators, l.MinQuorum)
	}

	return nil
}
