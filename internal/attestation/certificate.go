package attestation

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/logger"
	"QuantumLink/internal/validator"
)

// attestDomain separates attestation messages from unlock signatures.
const attestDomain = "quantumlink-attest-v1"

var (
	// ErrBadCertificate is returned for malformed or unverifiable certificates.
	ErrBadCertificate = errors.New("bad attestation certificate")

	// ErrNotEnoughSigners is returned when fewer than the threshold signed.
	ErrNotEnoughSigners = errors.New("not enough attestation signers")
)

// Verdict is what the validators attest about a Pending transaction.
type Verdict uint8

const (
	// VerdictConfirm marks the lock as observed and final.
	VerdictConfirm Verdict = 1
	// VerdictFail marks the lock as rejected; the locker is refunded.
	VerdictFail Verdict = 2
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictConfirm:
		return "confirm"
	case VerdictFail:
		return "fail"
	default:
		return fmt.Sprintf("verdict(%d)", uint8(v))
	}
}

// Certificate is an aggregated BLS attestation from a validator quorum.
type Certificate struct {
	BridgeID      uint64  // BridgeID is the attested transaction
	Verdict       Verdict // Verdict is confirm or fail
	Confirmations uint64  // Confirmations is the source-chain depth observed (confirm only)
	Signers       []byte  // Signers is a bitmap of validator positions
	Signature     []byte  // Signature is the aggregated BLS signature (96 bytes)
}

// Message returns the digest validators sign for a verdict on tx.
// Format: BLAKE3(domain || verdict u8 || confirmations u64 LE || CanonicalBytes(tx)).
func Message(tx *bridge.Transaction, verdict Verdict, confirmations uint64) []byte {
	h := blake3.New()
	h.Write([]byte(attestDomain))

	var buf [9]byte
	buf[0] = byte(verdict)
	binary.LittleEndian.PutUint64(buf[1:], confirmations)
	h.Write(buf[:])
	h.Write(bridge.CanonicalBytes(tx))

	var digest [32]byte
	h.Sum(digest[:0])

	return digest[:]
}

// Target is the state machine attestations are applied to.
type Target interface {
	GetBridgeState(id uint64) (bridge.BridgeState, error)
	Confirm(id uint64, confirmations uint64) error
	Fail(id uint64) error
}

// Processor verifies certificates and applies them.
type Processor struct {
	validators *validator.Set
	threshold  int
	target     Target
}

// NewProcessor creates a processor requiring threshold distinct signers.
func NewProcessor(validators *validator.Set, threshold int, target Target) *Processor {
	return &Processor{validators: validators, threshold: threshold, target: target}
}

// Apply verifies cert against the current transaction and moves it to
// Confirmed or Failed.
func (p *Processor) Apply(cert *Certificate) error {
	state, err := p.target.GetBridgeState(cert.BridgeID)
	if err != nil {
		return err
	}

	if err := p.Verify(cert, &state.Transaction); err != nil {
		return err
	}

	switch cert.Verdict {
	case VerdictConfirm:
		err = p.target.Confirm(cert.BridgeID, cert.Confirmations)
	case VerdictFail:
		err = p.target.Fail(cert.BridgeID)
	}

	if err != nil {
		return err
	}

	logger.Info("attestation applied",
		"id", cert.BridgeID,
		"verdict", cert.Verdict.String(),
		"signers", len(ParseSignerBitmap(cert.Signers)),
	)

	return nil
}

// Verify checks that cert carries threshold distinct member signatures over tx.
func (p *Processor) Verify(cert *Certificate, tx *bridge.Transaction) error {
	if cert.Verdict != VerdictConfirm && cert.Verdict != VerdictFail {
		return fmt.Errorf("%w: unknown verdict %d", ErrBadCertificate, cert.Verdict)
	}

	total := p.validators.Len()
	if len(cert.Signers) != (total+7)/8 {
		return fmt.Errorf("%w: bitmap of %d bytes for %d validators", ErrBadCertificate, len(cert.Signers), total)
	}

	indices := ParseSignerBitmap(cert.Signers)
	if len(indices) < p.threshold {
		return fmt.Errorf("%w: %d of %d", ErrNotEnoughSigners, len(indices), p.threshold)
	}

	keys := make([][]byte, 0, len(indices))
	for _, idx := range indices {
		m, ok := p.validators.Member(idx)
		if !ok {
			return fmt.Errorf("%w: signer %d outside set of %d", ErrBadCertificate, idx, total)
		}

		keys = append(keys, m.BLS[:])
	}

	if !VerifyAggregated(cert.Signature, Message(tx, cert.Verdict, cert.Confirmations), keys) {
		return fmt.Errorf("%w: aggregate signature does not verify", ErrBadCertificate)
	}

	return nil
}
