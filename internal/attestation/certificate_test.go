package attestation

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/validator"
)

// fakeTarget holds a single transaction and records applied verdicts.
type fakeTarget struct {
	tx            bridge.Transaction
	confirmations uint64
	failed        bool
}

func (f *fakeTarget) GetBridgeState(id uint64) (bridge.BridgeState, error) {
	if id != f.tx.ID {
		return bridge.BridgeState{}, bridge.ErrUnknownTransaction
	}

	return bridge.BridgeState{Transaction: f.tx, Status: f.tx.Status}, nil
}

func (f *fakeTarget) Confirm(id uint64, confirmations uint64) error {
	if f.tx.Status != bridge.StatusPending {
		return bridge.ErrInvalidState
	}

	f.tx.Status = bridge.StatusConfirmed
	f.confirmations = confirmations

	return nil
}

func (f *fakeTarget) Fail(id uint64) error {
	if f.tx.Status != bridge.StatusPending {
		return bridge.ErrInvalidState
	}

	f.tx.Status = bridge.StatusFailed
	f.failed = true

	return nil
}

// testEnv is a validator set with BLS keys and a pending transaction.
type testEnv struct {
	keys      []*KeyPair
	set       *validator.Set
	target    *fakeTarget
	processor *Processor
}

// newTestEnv creates n validators with threshold m.
func newTestEnv(t *testing.T, n, m int) *testEnv {
	t.Helper()

	env := &testEnv{keys: make([]*KeyPair, n)}
	members := make([]validator.Member, n)

	for i := range members {
		pub, priv, _ := ed25519.GenerateKey(rand.Reader)
		copy(members[i].Key[:], pub)

		k, err := DeriveFromED25519(priv)
		if err != nil {
			t.Fatalf("derive: %v", err)
		}

		env.keys[i] = k
		members[i].BLS = k.PublicKey()
	}

	set, err := validator.NewSet(members, bridge.MaxValidators)
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	env.set = set
	env.target = &fakeTarget{tx: bridge.Transaction{ID: 5, Asset: bridge.Asset{ID: 7}, Amount: 100}}
	env.processor = NewProcessor(set, m, env.target)

	return env
}

// certify builds a certificate signed by the validators at the given positions.
func (e *testEnv) certify(t *testing.T, verdict Verdict, confirmations uint64, signers ...int) *Certificate {
	t.Helper()

	msg := Message(&e.target.tx, verdict, confirmations)

	sigs := make([][]byte, len(signers))
	for i, idx := range signers {
		sigs[i] = e.keys[idx].Sign(msg)
	}

	agg, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	return &Certificate{
		BridgeID:      e.target.tx.ID,
		Verdict:       verdict,
		Confirmations: confirmations,
		Signers:       BuildSignerBitmap(signers, e.set.Len()),
		Signature:     agg,
	}
}

func TestApplyConfirm(t *testing.T) {
	env := newTestEnv(t, 4, 3)

	if err := env.processor.Apply(env.certify(t, VerdictConfirm, 12, 0, 1, 3)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if env.target.tx.Status != bridge.StatusConfirmed || env.target.confirmations != 12 {
		t.Errorf("unexpected target state: %s / %d", env.target.tx.Status, env.target.confirmations)
	}
}

func TestApplyFail(t *testing.T) {
	env := newTestEnv(t, 3, 3)

	if err := env.processor.Apply(env.certify(t, VerdictFail, 0, 0, 1, 2)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !env.target.failed {
		t.Error("expected fail to be applied")
	}
}

func TestApplyRejectsTooFewSigners(t *testing.T) {
	env := newTestEnv(t, 4, 3)

	err := env.processor.Apply(env.certify(t, VerdictConfirm, 1, 0, 1))
	if !errors.Is(err, ErrNotEnoughSigners) {
		t.Fatalf("expected ErrNotEnoughSigners, got %v", err)
	}

	if env.target.tx.Status != bridge.StatusPending {
		t.Error("rejected certificate changed state")
	}
}

// TestApplyRejectsMismatchedStatement verifies the signature binds verdict and confirmations.
func TestApplyRejectsMismatchedStatement(t *testing.T) {
	env := newTestEnv(t, 3, 3)

	cert := env.certify(t, VerdictConfirm, 6, 0, 1, 2)
	cert.Confirmations = 7

	if err := env.processor.Apply(cert); !errors.Is(err, ErrBadCertificate) {
		t.Fatalf("expected ErrBadCertificate for changed confirmations, got %v", err)
	}

	cert = env.certify(t, VerdictConfirm, 6, 0, 1, 2)
	cert.Verdict = VerdictFail

	if err := env.processor.Apply(cert); !errors.Is(err, ErrBadCertificate) {
		t.Fatalf("expected ErrBadCertificate for changed verdict, got %v", err)
	}
}

func TestApplyRejectsForgedSignerBitmap(t *testing.T) {
	env := newTestEnv(t, 4, 3)

	cert := env.certify(t, VerdictConfirm, 1, 0, 1, 2)
	cert.Signers = BuildSignerBitmap([]int{0, 1, 3}, 4)

	if err := env.processor.Apply(cert); !errors.Is(err, ErrBadCertificate) {
		t.Fatalf("expected ErrBadCertificate, got %v", err)
	}

	cert.Signers = []byte{0x0F, 0x00}
	if err := env.processor.Apply(cert); !errors.Is(err, ErrBadCertificate) {
		t.Fatalf("expected ErrBadCertificate for bitmap size, got %v", err)
	}
}

func TestApplyRejectsUnknownVerdict(t *testing.T) {
	env := newTestEnv(t, 3, 3)

	cert := env.certify(t, Verdict(9), 0, 0, 1, 2)
	if err := env.processor.Apply(cert); !errors.Is(err, ErrBadCertificate) {
		t.Fatalf("expected ErrBadCertificate, got %v", err)
	}
}

// TestMessageBindsTransaction verifies the attested digest changes with any signed field.
func TestMessageBindsTransaction(t *testing.T) {
	tx := bridge.Transaction{ID: 1, Asset: bridge.Asset{ID: 7}, Amount: 100}
	base := string(Message(&tx, VerdictConfirm, 1))

	tx.Amount = 101
	if string(Message(&tx, VerdictConfirm, 1)) == base {
		t.Error("amount not bound")
	}

	tx.Amount = 100
	tx.DestinationAddress[0] = 1
	if string(Message(&tx, VerdictConfirm, 1)) == base {
		t.Error("destination not bound")
	}
}
