package bridge

// SignatureVerifier checks one signature. Implementations must be pure.
type SignatureVerifier interface {
	Verify(message, signature, publicKey []byte) bool
}

// ValidatorSet is the read-only view of the current validator set.
type ValidatorSet interface {
	// Index returns the validator's position in the set, or -1 if not a member.
	Index(pubkey PublicKey) int
	// Len returns the number of validators.
	Len() int
}

// QuorumResult describes how a signature set was evaluated.
type QuorumResult struct {
	Threshold     int                  // Threshold is the M the set was checked against
	Counted       []ValidatorSignature // Counted are the distinct, valid member signatures
	Duplicates    int                  // Duplicates were from a validator already counted
	NonMembers    int                  // NonMembers were from keys outside the set
	BadSignatures int                  // BadSignatures failed cryptographic verification
}

// Met reports whether the distinct valid count reaches the threshold.
func (r QuorumResult) Met() bool {
	return r.Threshold > 0 && len(r.Counted) >= r.Threshold
}

// QuorumVerifier decides whether a signature set is a valid quorum for a transaction.
type QuorumVerifier struct {
	verifier  SignatureVerifier
	minQuorum int
}

// NewQuorumVerifier creates a verifier that never accepts a threshold below minQuorum.
func NewQuorumVerifier(verifier SignatureVerifier, minQuorum int) *QuorumVerifier {
	return &QuorumVerifier{verifier: verifier, minQuorum: minQuorum}
}

// Verify reports whether sigs hold at least threshold distinct valid signatures over tx.
func (q *QuorumVerifier) Verify(tx *Transaction, sigs []ValidatorSignature, set ValidatorSet, threshold int) bool {
	return q.Check(tx, sigs, set, threshold).Met()
}

// Check evaluates every signature and reports the breakdown.
// A validator signing more than once is counted once.
func (q *QuorumVerifier) Check(tx *Transaction, sigs []ValidatorSignature, set ValidatorSet, threshold int) QuorumResult {
	result := QuorumResult{Threshold: threshold}

	if threshold < q.minQuorum || threshold > set.Len() || len(sigs) < threshold {
		result.Threshold = max(threshold, q.minQuorum)
		return result
	}

	message := CanonicalBytes(tx)
	result.Counted = make([]ValidatorSignature, 0, threshold)

	// seen is indexed by validator position; the set never exceeds MaxValidators.
	var seen [(MaxValidators + 63) / 64]uint64

	for i := range sigs {
		sig := &sigs[i]

		idx := set.Index(sig.PublicKey)
		if idx < 0 || idx >= MaxValidators {
			result.NonMembers++
			continue
		}

		word, bit := idx/64, uint64(1)<<(idx%64)
		if seen[word]&bit != 0 {
			result.Duplicates++
			continue
		}

		if !q.verifier.Verify(message, sig.Signature[:], sig.PublicKey[:]) {
			result.BadSignatures++
			continue
		}

		seen[word] |= bit
		result.Counted = append(result.Counted, *sig)
	}

	return result
}
