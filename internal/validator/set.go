package validator

import (
	"errors"
	"fmt"
	"sync"

	"QuantumLink/internal/bridge"
)

const (
	// quorumPercent is the share of validators the suggested threshold requires (67%).
	quorumPercent = 67

	// BLSPublicKeySize is the size of a compressed BLS public key in bytes.
	BLSPublicKeySize = 48
)

var (
	// ErrDuplicate is returned when a signing key appears twice.
	ErrDuplicate = errors.New("duplicate validator")

	// ErrSetFull is returned when the set would exceed bridge.MaxValidators.
	ErrSetFull = errors.New("validator set full")
)

// Member is one bridge validator.
type Member struct {
	Key bridge.PublicKey       // Key is the ed25519 key unlock signatures are checked against
	BLS [BLSPublicKeySize]byte // BLS is the compressed key used for attestation certificates
}

// Set holds the active validators in a fixed order.
// It is safe for concurrent access.
type Set struct {
	mu      sync.RWMutex
	members []Member
	index   map[bridge.PublicKey]int
	limit   int
}

// NewSet creates a validator set bounded by limit members.
func NewSet(members []Member, limit int) (*Set, error) {
	if limit <= 0 || limit > bridge.MaxValidators {
		return nil, fmt.Errorf("max validators must be in [1, %d], got %d", bridge.MaxValidators, limit)
	}

	s := &Set{
		members: make([]Member, 0, len(members)),
		index:   make(map[bridge.PublicKey]int, len(members)),
		limit:   limit,
	}

	for _, m := range members {
		if err := s.Add(m); err != nil {
			return nil, fmt.Errorf("add validator %s:\n%w", m.Key, err)
		}
	}

	return s, nil
}

// Add appends a validator. Positions of existing members never change.
func (s *Set) Add(m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[m.Key]; exists {
		return ErrDuplicate
	}

	if len(s.members) >= s.limit {
		return fmt.Errorf("%w: %d members", ErrSetFull, len(s.members))
	}

	s.index[m.Key] = len(s.members)
	s.members = append(s.members, m)

	return nil
}

// Contains checks if a key is in the set.
func (s *Set) Contains(key bridge.PublicKey) bool {
	return s.Index(key) >= 0
}

// Index returns the position of a validator in the set, or -1 if not found.
func (s *Set) Index(key bridge.PublicKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, exists := s.index[key]; exists {
		return idx
	}

	return -1
}

// Len returns the number of validators.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.members)
}

// Member returns the validator at position i.
func (s *Set) Member(i int) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.members) {
		return Member{}, false
	}

	return s.members[i], true
}

// SuggestedThreshold returns 67% of the set, never below bridge.MinValidatorSignatures.
func (s *Set) SuggestedThreshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return max((len(s.members)*quorumPercent+99)/100, bridge.MinValidatorSignatures)
}
