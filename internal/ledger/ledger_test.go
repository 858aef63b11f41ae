package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/storage"
	"QuantumLink/internal/validator"
)

var (
	custody = bridge.Address{0xCC}
	alice   = bridge.Address{0xA1}
	bob     = bridge.Address{0xB0}
)

// newTestLedger creates a ledger on in-memory storage.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	l, err := New(db, custody)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	return l
}

func TestGenesisOnce(t *testing.T) {
	l := newTestLedger(t)

	applied, err := l.Genesis(map[bridge.Address]uint64{alice: 500})
	if err != nil || !applied {
		t.Fatalf("first genesis: applied=%v err=%v", applied, err)
	}

	applied, err = l.Genesis(map[bridge.Address]uint64{alice: 9000})
	if err != nil || applied {
		t.Fatalf("second genesis: applied=%v err=%v", applied, err)
	}

	if got := l.BalanceOf(alice); got != 500 {
		t.Errorf("expected 500, got %d", got)
	}
}

func TestBurn(t *testing.T) {
	l := newTestLedger(t)
	l.Genesis(map[bridge.Address]uint64{alice: 100})

	if err := l.Burn(alice, 40); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if err := l.Burn(alice, 61); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := l.BalanceOf(alice); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}
}

func TestMintTransfer(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint(70); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.Transfer(bob, 50); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if err := l.Transfer(bob, 21); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if l.BalanceOf(bob) != 50 || l.BalanceOf(custody) != 20 {
		t.Errorf("unexpected balances bob=%d custody=%d", l.BalanceOf(bob), l.BalanceOf(custody))
	}
}

func TestMintOverflow(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint(^uint64(0)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.Mint(1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestTickPersists(t *testing.T) {
	dir := t.TempDir()

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	l, _ := New(db, custody)
	for i := 0; i < 3; i++ {
		if _, err := l.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	db.Close()

	db, err = storage.New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	l, err = New(db, custody)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if got := l.CurrentTick(); got != 3 {
		t.Errorf("expected tick 3, got %d", got)
	}
}

// TestBridgeRoundTrip runs a lock, confirmation and unlock through a machine backed by the ledger.
func TestBridgeRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	l.Genesis(map[bridge.Address]uint64{alice: 1000})

	keys := make([]ed25519.PrivateKey, 3)
	members := make([]validator.Member, 3)
	for i := range keys {
		pub, priv, _ := ed25519.GenerateKey(rand.Reader)
		keys[i] = priv
		copy(members[i].Key[:], pub)
	}

	set, err := validator.NewSet(members, bridge.MaxValidators)
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

	m, err := bridge.NewMachine(cfg, bridge.NewState(cfg.Limits), l, set, validator.Ed25519Verifier{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	asset := bridge.Asset{ID: 7, Kind: bridge.TokenFungible}

	res, err := m.LockAssets(bridge.LockRequest{Invocator: alice, Asset: asset, Amount: 100, Destination: bob})
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if err := m.Confirm(res.BridgeID, 1); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	state, _ := m.GetBridgeState(res.BridgeID)

	sigs := make([]bridge.ValidatorSignature, len(keys))
	for i, k := range keys {
		sigs[i] = validator.Sign(k, &state.Transaction)
	}

	_, err = m.UnlockAssets(bridge.UnlockRequest{
		Invocator:      bob,
		Asset:          asset,
		Amount:         100,
		BridgeID:       res.BridgeID,
		Signatures:     sigs,
		SignatureCount: len(sigs),
	})
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if l.BalanceOf(alice) != 900 || l.BalanceOf(bob) != 100 || l.BalanceOf(custody) != 0 {
		t.Errorf("unexpected balances alice=%d bob=%d custody=%d",
			l.BalanceOf(alice), l.BalanceOf(bob), l.BalanceOf(custody))
	}
}
