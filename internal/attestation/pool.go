package attestation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"QuantumLink/internal/bridge"
)

var (
	// ErrUnknownSigner is returned for a vote from outside the validator set.
	ErrUnknownSigner = errors.New("unknown attestation signer")

	// ErrBadVote is returned when a vote's signature does not verify.
	ErrBadVote = errors.New("bad attestation vote")

	// ErrPoolFull is returned when a validator has votes open on too many transactions.
	ErrPoolFull = errors.New("attestation pool full")
)

// Vote is one validator's BLS signature on a verdict.
type Vote struct {
	BridgeID      uint64
	Verdict       Verdict
	Confirmations uint64
	Signer        bridge.PublicKey // Signer is the validator's ed25519 identity
	Signature     []byte           // Signature is the BLS signature over Message
}

// tallyKey identifies the exact statement votes are collected for.
type tallyKey struct {
	id            uint64
	verdict       Verdict
	confirmations uint64
}

// Pool collects individual votes and applies a certificate once a verdict
// reaches the threshold.
//
// A validator holds one vote per transaction: a new statement on the same
// transaction replaces its previous one. The limit applies to each validator
// separately, so no single signer can crowd out the others.
type Pool struct {
	processor *Processor
	limit     int // limit bounds the transactions one validator has open votes on

	mu      sync.Mutex
	tallies map[tallyKey]map[int][]byte // tallies holds signature per validator position
	latest  map[int]map[uint64]tallyKey // latest is each validator's current statement per transaction
}

// NewPool creates a vote pool where each validator may have votes open on at
// most limit transactions.
func NewPool(processor *Processor, limit int) *Pool {
	return &Pool{
		processor: processor,
		limit:     limit,
		tallies:   make(map[tallyKey]map[int][]byte),
		latest:    make(map[int]map[uint64]tallyKey),
	}
}

// Add verifies and records a vote. When the verdict reaches the threshold
// the aggregated certificate is applied and returned.
func (p *Pool) Add(v Vote) (*Certificate, error) {
	idx := p.processor.validators.Index(v.Signer)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSigner, v.Signer)
	}

	member, _ := p.processor.validators.Member(idx)

	state, err := p.processor.target.GetBridgeState(v.BridgeID)
	if err != nil {
		return nil, err
	}

	key := tallyKey{id: v.BridgeID, verdict: v.Verdict, confirmations: v.Confirmations}

	if state.Status != bridge.StatusPending {
		p.drop(v.BridgeID)
		return nil, fmt.Errorf("%w: transaction %d is %s", bridge.ErrInvalidState, v.BridgeID, state.Status)
	}

	msg := Message(&state.Transaction, v.Verdict, v.Confirmations)
	if !Verify(v.Signature, msg, member.BLS[:]) {
		return nil, fmt.Errorf("%w: from %s", ErrBadVote, v.Signer)
	}

	cert, err := p.record(key, idx, v.Signature)
	if err != nil || cert == nil {
		return nil, err
	}

	if err := p.processor.Apply(cert); err != nil {
		return nil, err
	}

	p.drop(v.BridgeID)

	return cert, nil
}

// record stores a verified vote and builds a certificate once the threshold is reached.
func (p *Pool) record(key tallyKey, idx int, sig []byte) (*Certificate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	votes := p.latest[idx]
	if votes == nil {
		votes = make(map[uint64]tallyKey)
		p.latest[idx] = votes
	}

	prev, voted := votes[key.id]
	if !voted && len(votes) >= p.limit {
		return nil, fmt.Errorf("%w: validator %d has votes on %d transactions", ErrPoolFull, idx, len(votes))
	}

	if voted && prev != key {
		p.retract(prev, idx)
	}

	tally, ok := p.tallies[key]
	if !ok {
		tally = make(map[int][]byte)
		p.tallies[key] = tally
	}

	tally[idx] = sig
	votes[key.id] = key

	if len(tally) < p.processor.threshold {
		return nil, nil
	}

	indices := make([]int, 0, len(tally))
	for i := range tally {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	sigs := make([][]byte, len(indices))
	for i, signer := range indices {
		sigs[i] = tally[signer]
	}

	agg, err := AggregateSignatures(sigs)
	if err != nil {
		return nil, fmt.Errorf("aggregate votes:\n%w", err)
	}

	return &Certificate{
		BridgeID:      key.id,
		Verdict:       key.verdict,
		Confirmations: key.confirmations,
		Signers:       BuildSignerBitmap(indices, p.processor.validators.Len()),
		Signature:     agg,
	}, nil
}

// retract removes a validator's vote from a tally, deleting the tally once empty.
func (p *Pool) retract(key tallyKey, idx int) {
	tally := p.tallies[key]
	delete(tally, idx)

	if len(tally) == 0 {
		delete(p.tallies, key)
	}
}

// drop removes every tally and vote for a transaction.
func (p *Pool) drop(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.tallies {
		if key.id == id {
			delete(p.tallies, key)
		}
	}

	for idx, votes := range p.latest {
		delete(votes, id)

		if len(votes) == 0 {
			delete(p.latest, idx)
		}
	}
}

// Pending returns the number of open tallies.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.tallies)
}
