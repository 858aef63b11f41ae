// Package client talks to a QuantumLink bridge node over HTTP.
package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"QuantumLink/internal/api"
	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
)

// requestTTL is how long a signed request stays valid.
const requestTTL = time.Minute

// Client connects to a bridge node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// Wallet holds the ed25519 key that signs requests. Its public key is the
// account address on the bridge.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
}

// BridgeState is a transaction as reported by the node.
type BridgeState struct {
	Transaction   api.TransactionJSON
	Status        string
	Confirmations uint64
}

// NewClient creates a client for the node at nodeAddr.
func NewClient(nodeAddr string) *Client {
	return &Client{nodeAddr: nodeAddr}
}

// NewWallet creates a new wallet with a random Ed25519 keypair.
func NewWallet() *Wallet {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)

	return &Wallet{privKey: priv}
}

// WalletFromKey wraps an existing key.
func WalletFromKey(priv ed25519.PrivateKey) *Wallet {
	return &Wallet{privKey: priv}
}

// Address returns the wallet's account address.
func (w *Wallet) Address() bridge.Address {
	var a bridge.Address
	copy(a[:], w.privKey.Public().(ed25519.PublicKey))

	return a
}

// url builds an endpoint URL.
func (c *Client) url(path string) string {
	return "http://" + c.nodeAddr + path
}

// Health checks that the node answers.
func (c *Client) Health() error {
	var resp struct {
		Status string `json:"status"`
	}

	if err := httpGet(c.url("/health"), &resp); err != nil {
		return err
	}

	if resp.Status != "ok" {
		return fmt.Errorf("node status %q", resp.Status)
	}

	return nil
}

// Lock locks amount of asset from the wallet for destination and returns
// the bridge id and creation tick.
func (c *Client) Lock(w *Wallet, asset bridge.Asset, amount uint64, destination bridge.Address) (id, tick uint64, err error) {
	body := api.LockBody{
		Asset:       api.EncodeAsset(asset),
		Amount:      amount,
		Destination: hex.EncodeToString(destination[:]),
	}
	api.Seal(&body.Envelope, w.privKey, api.OpLock, expiry(), api.LockPayload(asset, amount, destination))

	var resp struct {
		BridgeID  uint64 `json:"bridgeId"`
		Timestamp uint64 `json:"timestamp"`
	}

	if err := httpPostJSON(c.url("/lock"), &body, &resp); err != nil {
		return 0, 0, fmt.Errorf("lock:\n%w", err)
	}

	return resp.BridgeID, resp.Timestamp, nil
}

// Unlock releases bridge transaction id to the wallet, which must be its
// destination address. All of sigs are counted.
func (c *Client) Unlock(w *Wallet, asset bridge.Asset, amount, id uint64, sigs []bridge.ValidatorSignature) (tick uint64, err error) {
	body := api.UnlockBody{
		Asset:          api.EncodeAsset(asset),
		Amount:         amount,
		BridgeID:       id,
		Signatures:     api.EncodeSignatures(sigs),
		SignatureCount: len(sigs),
	}
	api.Seal(&body.Envelope, w.privKey, api.OpUnlock, expiry(),
		api.UnlockPayload(asset, amount, id, sigs, len(sigs)))

	var resp struct {
		Timestamp uint64 `json:"timestamp"`
	}

	if err := httpPostJSON(c.url("/unlock"), &body, &resp); err != nil {
		return 0, fmt.Errorf("unlock %d:\n%w", id, err)
	}

	return resp.Timestamp, nil
}

// BridgeState fetches a bridge transaction.
func (c *Client) BridgeState(id uint64) (*BridgeState, error) {
	var resp struct {
		Transaction   api.TransactionJSON `json:"transaction"`
		Status        string              `json:"status"`
		Confirmations uint64              `json:"confirmations"`
	}

	if err := httpGet(c.url("/bridge/"+strconv.FormatUint(id, 10)), &resp); err != nil {
		return nil, fmt.Errorf("bridge state %d:\n%w", id, err)
	}

	return &BridgeState{
		Transaction:   resp.Transaction,
		Status:        resp.Status,
		Confirmations: resp.Confirmations,
	}, nil
}

// TotalLocked returns the amount of an asset held in escrow.
func (c *Client) TotalLocked(assetID uint64) (uint64, error) {
	var resp struct {
		Amount uint64 `json:"amount"`
	}

	if err := httpGet(c.url("/locked/"+strconv.FormatUint(assetID, 10)), &resp); err != nil {
		return 0, fmt.Errorf("total locked %d:\n%w", assetID, err)
	}

	return resp.Amount, nil
}

// Info returns the node's bridge statistics.
func (c *Client) Info() (map[string]any, error) {
	var resp map[string]any

	if err := httpGet(c.url("/info"), &resp); err != nil {
		return nil, fmt.Errorf("info:\n%w", err)
	}

	return resp, nil
}

// Attest submits an aggregated certificate.
func (c *Client) Attest(cert *attestation.Certificate) error {
	body := api.CertificateJSON{
		BridgeID:      cert.BridgeID,
		Verdict:       cert.Verdict.String(),
		Confirmations: cert.Confirmations,
		Signers:       hex.EncodeToString(cert.Signers),
		Signature:     hex.EncodeToString(cert.Signature),
	}

	if err := httpPostJSON(c.url("/attest"), &body, nil); err != nil {
		return fmt.Errorf("attest %d:\n%w", cert.BridgeID, err)
	}

	return nil
}

// Vote submits one validator's attestation vote. applied reports whether it
// completed a certificate.
func (c *Client) Vote(v attestation.Vote) (applied bool, err error) {
	body := api.VoteJSON{
		BridgeID:      v.BridgeID,
		Verdict:       v.Verdict.String(),
		Confirmations: v.Confirmations,
		Signer:        hex.EncodeToString(v.Signer[:]),
		Signature:     hex.EncodeToString(v.Signature),
	}

	var resp struct {
		Applied bool `json:"applied"`
	}

	if err := httpPostJSON(c.url("/attest/vote"), &body, &resp); err != nil {
		return false, fmt.Errorf("vote %d:\n%w", v.BridgeID, err)
	}

	return resp.Applied, nil
}

// Pause halts lock and unlock. The wallet must hold the admin key.
func (c *Client) Pause(admin *Wallet) error {
	return c.admin(admin, api.OpPause, "/admin/pause")
}

// Unpause resumes lock and unlock. The wallet must hold the admin key.
func (c *Client) Unpause(admin *Wallet) error {
	return c.admin(admin, api.OpUnpause, "/admin/unpause")
}

// admin sends a signed admin request.
func (c *Client) admin(w *Wallet, op api.Op, path string) error {
	var body api.AdminBody
	api.Seal(&body.Envelope, w.privKey, op, expiry(), nil)

	if err := httpPostJSON(c.url(path), &body, nil); err != nil {
		return fmt.Errorf("POST %s:\n%w", path, err)
	}

	return nil
}

// Snapshot downloads the node's latest compressed snapshot and its tick.
func (c *Client) Snapshot() ([]byte, uint64, error) {
	data, header, err := httpGetRaw(c.url("/snapshot"))
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot:\n%w", err)
	}

	tick, err := strconv.ParseUint(header.Get("X-Snapshot-Tick"), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot tick header:\n%w", err)
	}

	return data, tick, nil
}

// expiry returns the expiry for a request signed now.
func expiry() int64 {
	return time.Now().Add(requestTTL).Unix()
}
