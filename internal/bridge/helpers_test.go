package bridge

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

// errGateway is returned by fakeGateway when a failure is injected.
var errGateway = errors.New("gateway rejected")

// fakeGateway is an in-memory host ledger.
type fakeGateway struct {
	balances    map[Address]uint64
	custody     Address
	tick        uint64
	burnErr     error
	mintErr     error
	transferErr error
	burns       int
	mints       int
	transfers   int
}

// newFakeGateway creates a gateway with the given custody account.
func newFakeGateway(custody Address) *fakeGateway {
	return &fakeGateway{balances: make(map[Address]uint64), custody: custody, tick: 100}
}

func (g *fakeGateway) BalanceOf(account Address) uint64 { return g.balances[account] }

func (g *fakeGateway) Burn(from Address, amount uint64) error {
	if g.burnErr != nil {
		return g.burnErr
	}

	if g.balances[from] < amount {
		return errGateway
	}

	g.balances[from] -= amount
	g.burns++

	return nil
}

func (g *fakeGateway) Mint(amount uint64) error {
	if g.mintErr != nil {
		return g.mintErr
	}

	g.balances[g.custody] += amount
	g.mints++

	return nil
}

func (g *fakeGateway) Transfer(to Address, amount uint64) error {
	if g.transferErr != nil {
		return g.transferErr
	}

	if g.balances[g.custody] < amount {
		return errGateway
	}

	g.balances[g.custody] -= amount
	g.balances[to] += amount
	g.transfers++

	return nil
}

func (g *fakeGateway) CurrentTick() uint64 { return g.tick }

// ed25519Verifier checks ed25519 signatures.
type ed25519Verifier struct{}

func (ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, message, signature)
}

// testValidator holds a keypair for testing.
type testValidator struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// newTestValidator creates a validator with random keys.
func newTestValidator() testValidator {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	var key PublicKey
	copy(key[:], pub)

	return testValidator{priv: priv, pub: key}
}

// sign signs the canonical encoding of tx.
func (v testValidator) sign(tx *Transaction) ValidatorSignature {
	sig := ValidatorSignature{PublicKey: v.pub}
	copy(sig.Signature[:], ed25519.Sign(v.priv, CanonicalBytes(tx)))

	return sig
}

// fakeSet is a list-backed validator set.
type fakeSet []PublicKey

func (s fakeSet) Index(key PublicKey) int {
	for i, k := range s {
		if k == key {
			return i
		}
	}

	return -1
}

func (s fakeSet) Len() int { return len(s) }

// newTestValidators creates n validators and their set.
func newTestValidators(n int) ([]testValidator, fakeSet) {
	vals := make([]testValidator, n)
	set := make(fakeSet, n)

	for i := range vals {
		vals[i] = newTestValidator()
		set[i] = vals[i].pub
	}

	return vals, set
}

// recordingJournal keeps every committed delta.
type recordingJournal struct {
	commits []Image
	err     error
}

func (j *recordingJournal) Commit(delta Image) error {
	if j.err != nil {
		return j.err
	}

	j.commits = append(j.commits, delta)

	return nil
}

// persisted folds the committed deltas into the image a restart would load.
func (j *recordingJournal) persisted() Image {
	var img Image

	txs := make(map[uint64]int)
	locked := make(map[uint64]int)

	for _, delta := range j.commits {
		img.Meta = delta.Meta

		for _, tx := range delta.Transactions {
			if i, ok := txs[tx.ID]; ok {
				img.Transactions[i] = tx
				continue
			}

			txs[tx.ID] = len(img.Transactions)
			img.Transactions = append(img.Transactions, tx)
		}

		for _, e := range delta.Locked {
			if i, ok := locked[e.Asset.ID]; ok {
				img.Locked[i] = e
				continue
			}

			locked[e.Asset.ID] = len(img.Locked)
			img.Locked = append(img.Locked, e)
		}
	}

	return img
}

var (
	testCustody = Address{0xCC}
	testAlice   = Address{0xA1}
	testDest    = Address{0xD0}
	testAsset   = Asset{ID: 7, Kind: TokenFungible, Decimals: 8}
)

// testLimits are small capacities that make exhaustion cheap to reach.
func testLimits() Limits {
	return Limits{MaxTransactions: 4, MaxAssets: 2, MaxValidators: MaxValidators, MinQuorum: MinValidatorSignatures}
}

// testEnv bundles a machine and its collaborators.
type testEnv struct {
	machine    *Machine
	gateway    *fakeGateway
	validators []testValidator
	journal    *recordingJournal
}

// newTestEnv creates a machine with n validators, threshold m and alice funded with 1000.
func newTestEnv(t *testing.T, n, m int) *testEnv {
	t.Helper()

	vals, set := newTestValidators(n)
	gw := newFakeGateway(testCustody)
	gw.balances[testAlice] = 1000

	journal := &recordingJournal{}

	cfg := Config{
		Limits:           testLimits(),
		Threshold:        m,
		SourceChain:      ChainQubic,
		DestinationChain: ChainSolana,
		Custody:          testCustody,
	}

	machine, err := NewMachine(cfg, NewState(cfg.Limits), gw, set, ed25519Verifier{}, WithJournal(journal))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	return &testEnv{machine: machine, gateway: gw, validators: vals, journal: journal}
}

// lock locks amount of testAsset from alice to testDest and fails the test on error.
func (e *testEnv) lock(t *testing.T, amount uint64) uint64 {
	t.Helper()

	res, err := e.machine.LockAssets(LockRequest{Invocator: testAlice, Asset: testAsset, Amount: amount, Destination: testDest})
	if err != nil {
		t.Fatalf("lock %d: %v", amount, err)
	}

	return res.BridgeID
}

// signAll returns signatures over id from the first k validators.
func (e *testEnv) signAll(t *testing.T, id uint64, k int) []ValidatorSignature {
	t.Helper()

	state, err := e.machine.GetBridgeState(id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}

	sigs := make([]ValidatorSignature, k)
	for i := 0; i < k; i++ {
		sigs[i] = e.validators[i].sign(&state.Transaction)
	}

	return sigs
}

// unlockRequest builds a matching unlock request for id.
func unlockRequest(id, amount uint64, sigs []ValidatorSignature) UnlockRequest {
	return UnlockRequest{
		Invocator:      testDest,
		Asset:          testAsset,
		Amount:         amount,
		BridgeID:       id,
		Signatures:     sigs,
		SignatureCount: len(sigs),
	}
}

// restart rebuilds a machine from what the journal holds, sharing the
// gateway and journal with the original.
func (e *testEnv) restart(t *testing.T) *Machine {
	t.Helper()

	state, err := RestoreState(testLimits(), e.journal.persisted())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	set := make(fakeSet, len(e.validators))
	for i, v := range e.validators {
		set[i] = v.pub
	}

	machine, err := NewMachine(e.machine.cfg, state, e.gateway, set, ed25519Verifier{}, WithJournal(e.journal))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	return machine
}
