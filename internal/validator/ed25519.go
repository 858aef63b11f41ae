package validator

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"QuantumLink/internal/bridge"
)

// Ed25519Verifier checks unlock signatures with ed25519.
type Ed25519Verifier struct{}

// Verify reports whether signature is a valid ed25519 signature of message by publicKey.
func (Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, message, signature)
}

// Sign produces a validator signature over the transaction's canonical bytes.
func Sign(priv ed25519.PrivateKey, tx *bridge.Transaction) bridge.ValidatorSignature {
	var sig bridge.ValidatorSignature

	copy(sig.PublicKey[:], priv.Public().(ed25519.PublicKey))
	copy(sig.Signature[:], ed25519.Sign(priv, bridge.CanonicalBytes(tx)))

	return sig
}

// ParsePublicKey decodes a hex ed25519 public key.
func ParsePublicKey(s string) (bridge.PublicKey, error) {
	var key bridge.PublicKey

	b, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decode public key:\n%w", err)
	}

	if len(b) != len(key) {
		return key, fmt.Errorf("public key must be %d bytes, got %d", len(key), len(b))
	}

	copy(key[:], b)

	return key, nil
}

// ParseBLSKey decodes a hex compressed BLS public key.
func ParseBLSKey(s string) ([BLSPublicKeySize]byte, error) {
	var key [BLSPublicKeySize]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decode bls key:\n%w", err)
	}

	if len(b) != len(key) {
		return key, fmt.Errorf("bls key must be %d bytes, got %d", len(key), len(b))
	}

	copy(key[:], b)

	return key, nil
}
