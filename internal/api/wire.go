package api

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
)

// requestDomain separates request digests from every other signed message.
const requestDomain = "quantumlink-request-v1"

// Op identifies the operation a signed request authorizes.
type Op uint8

const (
	OpLock    Op = 1
	OpUnlock  Op = 2
	OpPause   Op = 3
	OpUnpause Op = 4
)

// Envelope authenticates a mutating request.
type Envelope struct {
	Signer    string `json:"signer"`    // Signer is the hex ed25519 key; for lock and unlock it is the invocator
	Expires   int64  `json:"expires"`   // Expires is a unix time in seconds after which the request is void
	Signature string `json:"signature"` // Signature is the hex ed25519 signature over Digest
}

// AssetJSON is the wire form of bridge.Asset.
type AssetJSON struct {
	ID       uint64 `json:"id"`
	Kind     uint8  `json:"kind"`
	Decimals uint8  `json:"decimals"`
}

// SignatureJSON is the wire form of a validator signature.
type SignatureJSON struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// LockBody is the POST /lock request.
type LockBody struct {
	Envelope
	Asset       AssetJSON `json:"asset"`
	Amount      uint64    `json:"amount"`
	Destination string    `json:"destination"`
}

// UnlockBody is the POST /unlock request.
type UnlockBody struct {
	Envelope
	Asset          AssetJSON       `json:"asset"`
	Amount         uint64          `json:"amount"`
	BridgeID       uint64          `json:"bridgeId"`
	Signatures     []SignatureJSON `json:"signatures"`
	SignatureCount int             `json:"signatureCount"`
}

// AdminBody is the POST /admin/* request.
type AdminBody struct {
	Envelope
}

// CertificateJSON is the POST /attest request.
type CertificateJSON struct {
	BridgeID      uint64 `json:"bridgeId"`
	Verdict       string `json:"verdict"`
	Confirmations uint64 `json:"confirmations"`
	Signers       string `json:"signers"`   // Signers is the hex signer bitmap
	Signature     string `json:"signature"` // Signature is the hex aggregated BLS signature
}

// VoteJSON is the POST /attest/vote request.
type VoteJSON struct {
	BridgeID      uint64 `json:"bridgeId"`
	Verdict       string `json:"verdict"`
	Confirmations uint64 `json:"confirmations"`
	Signer        string `json:"signer"`    // Signer is the validator's hex ed25519 key
	Signature     string `json:"signature"` // Signature is the hex BLS signature
}

// TransactionJSON is the wire form of bridge.Transaction.
type TransactionJSON struct {
	ID                 uint64          `json:"id"`
	Asset              AssetJSON       `json:"asset"`
	Amount             uint64          `json:"amount"`
	SourceChain        uint8           `json:"sourceChain"`
	DestinationChain   uint8           `json:"destinationChain"`
	SourceAddress      string          `json:"sourceAddress"`
	DestinationAddress string          `json:"destinationAddress"`
	CreatedAtTick      uint64          `json:"createdAtTick"`
	UpdatedAtTick      uint64          `json:"updatedAtTick"`
	Status             string          `json:"status"`
	Confirmations      uint64          `json:"confirmations"`
	Signatures         []SignatureJSON `json:"signatures,omitempty"`
}

// Digest returns BLAKE3(domain || op || signer || expires LE || payload).
func Digest(op Op, signer bridge.PublicKey, expires int64, payload []byte) [32]byte {
	h := blake3.New()
	h.Write([]byte(requestDomain))
	h.Write([]byte{byte(op)})
	h.Write(signer[:])

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(expires))
	h.Write(buf[:])
	h.Write(payload)

	var digest [32]byte
	h.Sum(digest[:0])

	return digest
}

// LockPayload encodes the signed fields of a lock request.
func LockPayload(asset bridge.Asset, amount uint64, destination bridge.Address) []byte {
	buf := make([]byte, 0, 8+1+1+8+bridge.AddressSize)
	buf = appendAsset(buf, asset)
	buf = binary.LittleEndian.AppendUint64(buf, amount)

	return append(buf, destination[:]...)
}

// UnlockPayload encodes the signed fields of an unlock request.
func UnlockPayload(asset bridge.Asset, amount, bridgeID uint64, sigs []bridge.ValidatorSignature, count int) []byte {
	buf := make([]byte, 0, 8+1+1+8+8+4+len(sigs)*(32+bridge.SignatureSize))
	buf = appendAsset(buf, asset)
	buf = binary.LittleEndian.AppendUint64(buf, amount)
	buf = binary.LittleEndian.AppendUint64(buf, bridgeID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(count))

	for _, s := range sigs {
		buf = append(buf, s.PublicKey[:]...)
		buf = append(buf, s.Signature[:]...)
	}

	return buf
}

// appendAsset appends id LE, kind and decimals.
func appendAsset(buf []byte, a bridge.Asset) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, a.ID)
	return append(buf, byte(a.Kind), a.Decimals)
}

// Seal fills env for op and payload, signed by priv.
func Seal(env *Envelope, priv ed25519.PrivateKey, op Op, expires int64, payload []byte) {
	var signer bridge.PublicKey
	copy(signer[:], priv.Public().(ed25519.PublicKey))

	digest := Digest(op, signer, expires, payload)

	env.Signer = hex.EncodeToString(signer[:])
	env.Expires = expires
	env.Signature = hex.EncodeToString(ed25519.Sign(priv, digest[:]))
}

// open decodes the envelope and checks its signature over payload.
func (e *Envelope) open(op Op, payload []byte) (bridge.PublicKey, [32]byte, error) {
	signer, err := decodeKey(e.Signer, "signer")
	if err != nil {
		return signer, [32]byte{}, err
	}

	sig, err := hex.DecodeString(e.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return signer, [32]byte{}, fmt.Errorf("malformed request signature")
	}

	digest := Digest(op, signer, e.Expires, payload)
	if !ed25519.Verify(signer[:], digest[:], sig) {
		return signer, digest, fmt.Errorf("request signature does not verify")
	}

	return signer, digest, nil
}

// EncodeAsset converts to wire form.
func EncodeAsset(a bridge.Asset) AssetJSON {
	return AssetJSON{ID: a.ID, Kind: uint8(a.Kind), Decimals: a.Decimals}
}

// asset converts from wire form.
func (a AssetJSON) asset() bridge.Asset {
	return bridge.Asset{ID: a.ID, Kind: bridge.TokenKind(a.Kind), Decimals: a.Decimals}
}

// EncodeSignatures converts validator signatures to wire form.
func EncodeSignatures(sigs []bridge.ValidatorSignature) []SignatureJSON {
	if len(sigs) == 0 {
		return nil
	}

	out := make([]SignatureJSON, len(sigs))
	for i, s := range sigs {
		out[i] = SignatureJSON{
			PublicKey: hex.EncodeToString(s.PublicKey[:]),
			Signature: hex.EncodeToString(s.Signature[:]),
		}
	}

	return out
}

// decodeSignatures converts validator signatures from wire form.
func decodeSignatures(in []SignatureJSON) ([]bridge.ValidatorSignature, error) {
	out := make([]bridge.ValidatorSignature, len(in))

	for i, s := range in {
		key, err := decodeKey(s.PublicKey, "validator key")
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}

		out[i].PublicKey = key

		if err := decodeInto(out[i].Signature[:], s.Signature, "validator signature"); err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
	}

	return out, nil
}

// EncodeTransaction converts a transaction to wire form.
func EncodeTransaction(tx *bridge.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:                 tx.ID,
		Asset:              EncodeAsset(tx.Asset),
		Amount:             tx.Amount,
		SourceChain:        uint8(tx.SourceChain),
		DestinationChain:   uint8(tx.DestinationChain),
		SourceAddress:      tx.SourceAddress.String(),
		DestinationAddress: tx.DestinationAddress.String(),
		CreatedAtTick:      tx.CreatedAtTick,
		UpdatedAtTick:      tx.UpdatedAtTick,
		Status:             tx.Status.String(),
		Confirmations:      tx.Confirmations,
		Signatures:         EncodeSignatures(tx.Signatures),
	}
}

// ParseVerdict decodes a verdict name.
func ParseVerdict(s string) (attestation.Verdict, error) {
	switch s {
	case attestation.VerdictConfirm.String():
		return attestation.VerdictConfirm, nil
	case attestation.VerdictFail.String():
		return attestation.VerdictFail, nil
	default:
		return 0, fmt.Errorf("unknown verdict %q", s)
	}
}

// decodeCertificate converts a certificate from wire form.
func decodeCertificate(in *CertificateJSON) (*attestation.Certificate, error) {
	verdict, err := ParseVerdict(in.Verdict)
	if err != nil {
		return nil, err
	}

	signers, err := hex.DecodeString(in.Signers)
	if err != nil {
		return nil, fmt.Errorf("malformed signer bitmap")
	}

	sig, err := hex.DecodeString(in.Signature)
	if err != nil || len(sig) != attestation.SignatureSize {
		return nil, fmt.Errorf("malformed aggregate signature")
	}

	return &attestation.Certificate{
		BridgeID:      in.BridgeID,
		Verdict:       verdict,
		Confirmations: in.Confirmations,
		Signers:       signers,
		Signature:     sig,
	}, nil
}

// decodeVote converts a vote from wire form.
func decodeVote(in *VoteJSON) (attestation.Vote, error) {
	verdict, err := ParseVerdict(in.Verdict)
	if err != nil {
		return attestation.Vote{}, err
	}

	signer, err := decodeKey(in.Signer, "signer")
	if err != nil {
		return attestation.Vote{}, err
	}

	sig, err := hex.DecodeString(in.Signature)
	if err != nil || len(sig) != attestation.SignatureSize {
		return attestation.Vote{}, fmt.Errorf("malformed vote signature")
	}

	return attestation.Vote{
		BridgeID:      in.BridgeID,
		Verdict:       verdict,
		Confirmations: in.Confirmations,
		Signer:        signer,
		Signature:     sig,
	}, nil
}

// decodeKey decodes a hex 32-byte key or address.
func decodeKey(s, what string) ([32]byte, error) {
	var out [32]byte

	if err := decodeInto(out[:], s, what); err != nil {
		return out, err
	}

	return out, nil
}

// decodeInto decodes hex s into dst, which it must fill exactly.
func decodeInto(dst []byte, s, what string) error {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(dst) {
		return fmt.Errorf("malformed %s", what)
	}

	copy(dst, b)

	return nil
}
