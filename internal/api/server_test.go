package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
	"QuantumLink/internal/ledger"
	"QuantumLink/internal/storage"
	"QuantumLink/internal/validator"
)

var testAsset = bridge.Asset{ID: 7, Kind: bridge.TokenFungible, Decimals: 8}

// testEnv is a full bridge behind the API, settled on an in-memory ledger.
type testEnv struct {
	server     *Server
	handler    http.Handler
	machine    *bridge.Machine
	gateway    *ledger.Ledger
	set        *validator.Set
	validators []ed25519.PrivateKey
	bls        []*attestation.KeyPair
	alice      ed25519.PrivateKey // alice locks
	bob        ed25519.PrivateKey // bob is the destination and unlocks
	admin      ed25519.PrivateKey
}

// newTestEnv creates four validators with threshold 3 and funds alice with 1000.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		alice: newKey(t),
		bob:   newKey(t),
		admin: newKey(t),
	}

	var custody bridge.Address
	custody[0] = 0xCC

	env.gateway, err = ledger.New(db, custody)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}

	if _, err := env.gateway.Genesis(map[bridge.Address]uint64{address(env.alice): 1000}); err != nil {
		t.Fatalf("genesis: %v", err)
	}

	members := make([]validator.Member, 4)
	for i := range members {
		priv := newKey(t)
		env.validators = append(env.validators, priv)

		kp, err := attestation.DeriveFromED25519(priv)
		if err != nil {
			t.Fatalf("derive bls: %v", err)
		}
		env.bls = append(env.bls, kp)

		members[i] = validator.Member{Key: bridge.PublicKey(address(priv)), BLS: kp.PublicKey()}
	}

	env.set, err = validator.NewSet(members, bridge.MaxValidators)
	if err != nil {
		t.Fatalf("validator set: %v", err)
	}

	cfg := bridge.Config{
		Limits:           bridge.DefaultLimits(),
		Threshold:        3,
		SourceChain:      bridge.ChainQubic,
		DestinationChain: bridge.ChainSolana,
		Custody:          custody,
	}

	env.machine, err = bridge.NewMachine(cfg, bridge.NewState(cfg.Limits), env.gateway, env.set, validator.Ed25519Verifier{})
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	processor := attestation.NewProcessor(env.set, cfg.Threshold, env.machine)
	pool := attestation.NewPool(processor, 64)

	env.server = New(":0", env.machine,
		WithAttestation(processor, pool),
		WithAdmin(bridge.PublicKey(address(env.admin))),
	)
	t.Cleanup(func() { env.server.Stop() })

	env.handler = env.server.Handler()

	return env
}

func newKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

// address returns the account address of a key.
func address(priv ed25519.PrivateKey) bridge.Address {
	var a bridge.Address
	copy(a[:], priv.Public().(ed25519.PublicKey))

	return a
}

func expiry() int64 {
	return time.Now().Add(time.Minute).Unix()
}

// do sends a request and decodes the JSON response into a map.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()

	e.handler.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v (%s)", err, w.Body.String())
		}
	}

	return w.Code, resp
}

// lockBody builds a lock request from alice to bob.
func (e *testEnv) lockBody(amount uint64) *LockBody {
	dest := address(e.bob)

	body := &LockBody{
		Asset:       EncodeAsset(testAsset),
		Amount:      amount,
		Destination: hex.EncodeToString(dest[:]),
	}
	Seal(&body.Envelope, e.alice, OpLock, expiry(), LockPayload(testAsset, amount, dest))

	return body
}

// lock locks amount and returns the bridge id.
func (e *testEnv) lock(t *testing.T, amount uint64) uint64 {
	t.Helper()

	code, resp := e.do(t, "POST", "/lock", e.lockBody(amount))
	if code != http.StatusOK {
		t.Fatalf("lock: status %d: %v", code, resp)
	}

	return uint64(resp["bridgeId"].(float64))
}

// certificate signs a verdict with the validators at the given positions.
func (e *testEnv) certificate(t *testing.T, id uint64, verdict attestation.Verdict, signers ...int) *CertificateJSON {
	t.Helper()

	state, err := e.machine.GetBridgeState(id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	msg := attestation.Message(&state.Transaction, verdict, 6)

	sigs := make([][]byte, len(signers))
	for i, idx := range signers {
		sigs[i] = e.bls[idx].Sign(msg)
	}

	agg, err := attestation.AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	return &CertificateJSON{
		BridgeID:      id,
		Verdict:       verdict.String(),
		Confirmations: 6,
		Signers:       hex.EncodeToString(attestation.BuildSignerBitmap(signers, e.set.Len())),
		Signature:     hex.EncodeToString(agg),
	}
}

// unlockBody builds bob's unlock request with signatures from the first n validators.
func (e *testEnv) unlockBody(t *testing.T, id, amount uint64, n int) *UnlockBody {
	t.Helper()

	state, err := e.machine.GetBridgeState(id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	sigs := make([]bridge.ValidatorSignature, n)
	for i := 0; i < n; i++ {
		sigs[i] = validator.Sign(e.validators[i], &state.Transaction)
	}

	body := &UnlockBody{
		Asset:          EncodeAsset(testAsset),
		Amount:         amount,
		BridgeID:       id,
		Signatures:     EncodeSignatures(sigs),
		SignatureCount: n,
	}
	Seal(&body.Envelope, e.bob, OpUnlock, expiry(), UnlockPayload(testAsset, amount, id, sigs, n))

	return body
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, "GET", "/health", nil)
	if code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", code, resp)
	}
}

// TestLockAttestUnlock runs a full transfer through the HTTP surface.
func TestLockAttestUnlock(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 250)
	if id != 1 {
		t.Fatalf("expected first bridge id 1, got %d", id)
	}

	code, resp := env.do(t, "GET", "/locked/7", nil)
	if code != http.StatusOK || resp["amount"].(float64) != 250 {
		t.Fatalf("locked: %d %v", code, resp)
	}

	code, resp = env.do(t, "POST", "/attest", env.certificate(t, id, attestation.VerdictConfirm, 0, 2, 3))
	if code != http.StatusOK {
		t.Fatalf("attest: %d %v", code, resp)
	}

	code, resp = env.do(t, "GET", fmt.Sprintf("/bridge/%d", id), nil)
	if code != http.StatusOK || resp["status"] != "confirmed" || resp["confirmations"].(float64) != 6 {
		t.Fatalf("bridge state: %d %v", code, resp)
	}

	code, resp = env.do(t, "POST", "/unlock", env.unlockBody(t, id, 250, 3))
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("unlock: %d %v", code, resp)
	}

	if env.gateway.BalanceOf(address(env.bob)) != 250 || env.gateway.BalanceOf(address(env.alice)) != 750 {
		t.Errorf("unexpected balances bob=%d alice=%d",
			env.gateway.BalanceOf(address(env.bob)), env.gateway.BalanceOf(address(env.alice)))
	}

	if _, resp = env.do(t, "GET", "/locked/7", nil); resp["amount"].(float64) != 0 {
		t.Errorf("expected nothing locked, got %v", resp["amount"])
	}

	// a fresh request for the same transaction is refused by the state machine
	code, resp = env.do(t, "POST", "/unlock", env.unlockBody(t, id, 250, 3))
	if code != http.StatusConflict || resp["reason"] != "InvalidState" {
		t.Errorf("second unlock: %d %v", code, resp)
	}
}

func TestLockRejections(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, "POST", "/lock", env.lockBody(5000))
	if code != http.StatusUnprocessableEntity || resp["reason"] != "InsufficientBalance" {
		t.Errorf("overdraft: %d %v", code, resp)
	}

	body := env.lockBody(10)
	body.Amount = 11
	if code, _ = env.do(t, "POST", "/lock", body); code != http.StatusUnauthorized {
		t.Errorf("tampered amount: expected 401, got %d", code)
	}

	body = env.lockBody(10)
	body.Destination = "xyz"
	if code, resp = env.do(t, "POST", "/lock", body); code != http.StatusBadRequest || resp["reason"] != "InvalidInput" {
		t.Errorf("bad destination: %d %v", code, resp)
	}

	if env.gateway.BalanceOf(address(env.alice)) != 1000 {
		t.Error("rejected locks changed the balance")
	}
}

func TestReplayedRequestRejected(t *testing.T) {
	env := newTestEnv(t)

	body := env.lockBody(10)

	if code, _ := env.do(t, "POST", "/lock", body); code != http.StatusOK {
		t.Fatalf("first lock: %d", code)
	}

	if code, _ := env.do(t, "POST", "/lock", body); code != http.StatusConflict {
		t.Fatalf("replayed lock: expected 409, got %d", code)
	}

	if env.gateway.BalanceOf(address(env.alice)) != 990 {
		t.Errorf("replay burned twice: balance %d", env.gateway.BalanceOf(address(env.alice)))
	}
}

func TestExpiredRequestRejected(t *testing.T) {
	env := newTestEnv(t)
	dest := address(env.bob)

	body := &LockBody{Asset: EncodeAsset(testAsset), Amount: 10, Destination: hex.EncodeToString(dest[:])}
	Seal(&body.Envelope, env.alice, OpLock, time.Now().Add(-time.Second).Unix(), LockPayload(testAsset, 10, dest))

	if code, _ := env.do(t, "POST", "/lock", body); code != http.StatusConflict {
		t.Errorf("expected 409 for expired request, got %d", code)
	}

	Seal(&body.Envelope, env.alice, OpLock, time.Now().Add(time.Hour).Unix(), LockPayload(testAsset, 10, dest))

	if code, _ := env.do(t, "POST", "/lock", body); code != http.StatusConflict {
		t.Errorf("expected 409 for far-future expiry, got %d", code)
	}
}

// TestFailedRequestCanBeRetried verifies a rejected request is not burned by the replay guard.
func TestFailedRequestCanBeRetried(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 100)
	body := env.unlockBody(t, id, 100, 3)

	// not yet confirmed
	if code, resp := env.do(t, "POST", "/unlock", body); code != http.StatusConflict || resp["reason"] != "InvalidState" {
		t.Fatalf("early unlock: %d %v", code, resp)
	}

	env.do(t, "POST", "/attest", env.certificate(t, id, attestation.VerdictConfirm, 0, 1, 2))

	if code, resp := env.do(t, "POST", "/unlock", body); code != http.StatusOK {
		t.Fatalf("retried unlock: %d %v", code, resp)
	}
}

func TestUnlockQuorumNotMet(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 100)
	env.do(t, "POST", "/attest", env.certificate(t, id, attestation.VerdictConfirm, 0, 1, 2))

	code, resp := env.do(t, "POST", "/unlock", env.unlockBody(t, id, 100, 2))
	if code != http.StatusForbidden || resp["reason"] != "QuorumNotMet" {
		t.Errorf("expected QuorumNotMet, got %d %v", code, resp)
	}

	// alice is not the destination
	state, _ := env.machine.GetBridgeState(id)
	sigs := []bridge.ValidatorSignature{
		validator.Sign(env.validators[0], &state.Transaction),
		validator.Sign(env.validators[1], &state.Transaction),
		validator.Sign(env.validators[2], &state.Transaction),
	}

	body := &UnlockBody{Asset: EncodeAsset(testAsset), Amount: 100, BridgeID: id, Signatures: EncodeSignatures(sigs), SignatureCount: 3}
	Seal(&body.Envelope, env.alice, OpUnlock, expiry(), UnlockPayload(testAsset, 100, id, sigs, 3))

	if code, resp = env.do(t, "POST", "/unlock", body); code != http.StatusBadRequest || resp["reason"] != "InvalidInput" {
		t.Errorf("unlock by non-destination: %d %v", code, resp)
	}
}

func TestAttestFailRefunds(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 100)

	code, resp := env.do(t, "POST", "/attest", env.certificate(t, id, attestation.VerdictFail, 1, 2, 3))
	if code != http.StatusOK {
		t.Fatalf("attest fail: %d %v", code, resp)
	}

	if env.gateway.BalanceOf(address(env.alice)) != 1000 {
		t.Errorf("expected refund, balance %d", env.gateway.BalanceOf(address(env.alice)))
	}

	if _, resp = env.do(t, "GET", fmt.Sprintf("/bridge/%d", id), nil); resp["status"] != "failed" {
		t.Errorf("expected failed, got %v", resp["status"])
	}
}

func TestAttestRejectsTooFewSigners(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 100)

	code, resp := env.do(t, "POST", "/attest", env.certificate(t, id, attestation.VerdictConfirm, 0, 1))
	if code != http.StatusForbidden || resp["reason"] != "QuorumNotMet" {
		t.Errorf("expected 403 QuorumNotMet, got %d %v", code, resp)
	}
}

func TestVotesReachThreshold(t *testing.T) {
	env := newTestEnv(t)

	id := env.lock(t, 100)
	state, _ := env.machine.GetBridgeState(id)
	msg := attestation.Message(&state.Transaction, attestation.VerdictConfirm, 2)

	for i := 0; i < 3; i++ {
		vote := &VoteJSON{
			BridgeID:      id,
			Verdict:       "confirm",
			Confirmations: 2,
			Signer:        hex.EncodeToString(env.validators[i].Public().(ed25519.PublicKey)),
			Signature:     hex.EncodeToString(env.bls[i].Sign(msg)),
		}

		code, resp := env.do(t, "POST", "/attest/vote", vote)
		if code != http.StatusAccepted {
			t.Fatalf("vote %d: %d %v", i, code, resp)
		}

		if applied := resp["applied"].(bool); applied != (i == 2) {
			t.Errorf("vote %d: applied=%v", i, applied)
		}
	}

	if state, _ := env.machine.GetBridgeState(id); state.Status != bridge.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", state.Status)
	}
}

func TestAdminPause(t *testing.T) {
	env := newTestEnv(t)

	body := &AdminBody{}
	Seal(&body.Envelope, env.alice, OpPause, expiry(), nil)

	if code, _ := env.do(t, "POST", "/admin/pause", body); code != http.StatusForbidden {
		t.Fatalf("pause by non-admin: expected 403, got %d", code)
	}

	body = &AdminBody{}
	Seal(&body.Envelope, env.admin, OpPause, expiry(), nil)

	if code, _ := env.do(t, "POST", "/admin/pause", body); code != http.StatusOK {
		t.Fatalf("pause: %d", code)
	}

	code, resp := env.do(t, "POST", "/lock", env.lockBody(10))
	if code != http.StatusServiceUnavailable || resp["reason"] != "Paused" {
		t.Errorf("lock while paused: %d %v", code, resp)
	}

	// a pause signature does not authorize unpause
	unpause := &AdminBody{Envelope: body.Envelope}
	if code, _ := env.do(t, "POST", "/admin/unpause", unpause); code != http.StatusUnauthorized {
		t.Errorf("reused pause envelope: expected 401, got %d", code)
	}

	unpause = &AdminBody{}
	Seal(&unpause.Envelope, env.admin, OpUnpause, expiry(), nil)

	if code, _ := env.do(t, "POST", "/admin/unpause", unpause); code != http.StatusOK {
		t.Fatalf("unpause: %d", code)
	}

	if _, resp = env.do(t, "GET", "/info", nil); resp["paused"] != false {
		t.Errorf("expected unpaused info, got %v", resp["paused"])
	}
}

func TestBridgeStateUnknown(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, "GET", "/bridge/42", nil)
	if code != http.StatusNotFound || resp["reason"] != "UnknownTransaction" {
		t.Errorf("expected 404 UnknownTransaction, got %d %v", code, resp)
	}

	if code, _ = env.do(t, "GET", "/bridge/abc", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", code)
	}
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)

	env.lock(t, 40)
	env.lock(t, 60)

	code, resp := env.do(t, "GET", "/info", nil)
	if code != http.StatusOK {
		t.Fatalf("info: %d", code)
	}

	if resp["totalLocked"].(float64) != 100 || resp["totalTransfers"].(float64) != 2 || resp["nextId"].(float64) != 3 {
		t.Errorf("unexpected info %v", resp)
	}

	if resp["validators"].(float64) != 4 || resp["threshold"].(float64) != 3 {
		t.Errorf("unexpected validator info %v", resp)
	}
}

func TestSnapshotUnavailable(t *testing.T) {
	env := newTestEnv(t)

	if code, _ := env.do(t, "GET", "/snapshot", nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without snapshot source, got %d", code)
	}
}

// staticSnapshots serves a fixed snapshot.
type staticSnapshots struct {
	data []byte
	tick uint64
}

func (s staticSnapshots) Latest() ([]byte, uint64) {
	return s.data, s.tick
}

func TestSnapshotServed(t *testing.T) {
	server := New(":0", nil, WithSnapshots(staticSnapshots{data: []byte{1, 2, 3}, tick: 77}))
	defer server.Stop()

	req := httptest.NewRequest("GET", "/snapshot", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), []byte{1, 2, 3}) {
		t.Fatalf("unexpected snapshot response %d %v", w.Code, w.Body.Bytes())
	}

	if w.Header().Get(snapshotTickHeader) != "77" {
		t.Errorf("expected tick header 77, got %q", w.Header().Get(snapshotTickHeader))
	}
}
