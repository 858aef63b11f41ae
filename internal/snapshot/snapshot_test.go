package snapshot

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"QuantumLink/internal/bridge"
)

// testImage returns an image with one completed and one pending transaction.
func testImage() bridge.Image {
	asset := bridge.Asset{ID: 7, Kind: bridge.TokenFungible, Decimals: 8}

	completed := bridge.Transaction{
		ID: 1, Asset: asset, Amount: 40, SourceChain: bridge.ChainQubic, DestinationChain: bridge.ChainSolana,
		SourceAddress: bridge.Address{1}, DestinationAddress: bridge.Address{2},
		CreatedAtTick: 3, UpdatedAtTick: 4, Status: bridge.StatusCompleted, Confirmations: 2,
		Signatures: []bridge.ValidatorSignature{{PublicKey: bridge.PublicKey{9}}},
	}

	pending := bridge.Transaction{
		ID: 2, Asset: asset, Amount: 60, SourceChain: bridge.ChainQubic, DestinationChain: bridge.ChainSolana,
		SourceAddress: bridge.Address{1}, DestinationAddress: bridge.Address{3},
		CreatedAtTick: 5, UpdatedAtTick: 5,
	}

	return bridge.Image{
		Meta: bridge.Meta{
			NextID:           3,
			OldestUnresolved: 2,
			Stats:            bridge.Stats{TotalLocked: 100, TotalUnlocked: 40, TotalTransfers: 2, TotalValidatorActions: 2},
		},
		Transactions: []bridge.Transaction{pending, completed},
		Locked:       []bridge.LockedBalance{{Asset: bridge.Asset{ID: 9}}, {Asset: asset, Amount: 60}},
	}
}

func TestCreateOpen(t *testing.T) {
	img := testImage()

	data := Create(img, 77)

	got, tick, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if tick != 77 {
		t.Errorf("expected tick 77, got %d", tick)
	}

	want := testImage()
	sortImage(&want)

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("image differs:\n got %+v\nwant %+v", got, want)
	}
}

// TestDeterministic verifies input order does not change the snapshot bytes.
func TestDeterministic(t *testing.T) {
	a := testImage()
	b := testImage()
	b.Transactions[0], b.Transactions[1] = b.Transactions[1], b.Transactions[0]

	if !reflect.DeepEqual(Create(a, 1), Create(b, 1)) {
		t.Fatal("snapshot depends on input order")
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	data := Create(testImage(), 1)

	// Flip the last byte of the encoded buffer until a field changes.
	tampered := make([]byte, len(data))
	copy(tampered, data)

	found := false
	for i := len(tampered) - 1; i >= 0 && !found; i-- {
		tampered[i] ^= 0x01

		_, _, err := Open(tampered)
		if errors.Is(err, ErrChecksum) {
			found = true
		}

		tampered[i] ^= 0x01
	}

	if !found {
		t.Fatal("no single-bit change was detected as a checksum mismatch")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, _, err := Open([]byte{1, 2}); err == nil {
		t.Error("expected error for short input")
	}

	if _, _, err := Open([]byte{0xFF, 0xFF, 0xFF, 0x7F, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for bad root offset")
	}
}

func TestRestore(t *testing.T) {
	compressed, err := Compress(Create(testImage(), 9))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	state, tick, err := Restore(compressed, bridge.DefaultLimits())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if tick != 9 {
		t.Errorf("expected tick 9, got %d", tick)
	}

	img := state.Image()
	if img.Meta.NextID != 3 || img.Meta.OldestUnresolved != 2 || len(img.Transactions) != 2 {
		t.Errorf("unexpected restored state: %+v", img.Meta)
	}
}

func TestCompressDecompress(t *testing.T) {
	data := Create(testImage(), 1)

	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	got, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	if !reflect.DeepEqual(got, data) {
		t.Fatal("decompressed data differs")
	}

	if _, err := Decompress([]byte("not zstd")); err == nil {
		t.Error("expected error for invalid input")
	}
}

// fakeSource counts Image calls and returns a settable image.
type fakeSource struct {
	img   atomic.Value
	calls atomic.Int32
}

func (s *fakeSource) Image() bridge.Image {
	s.calls.Add(1)
	return s.img.Load().(bridge.Image)
}

type fakeClock struct{ tick uint64 }

func (c fakeClock) CurrentTick() uint64 { return c.tick }

func TestManagerSkipsUnchanged(t *testing.T) {
	src := &fakeSource{}
	src.img.Store(testImage())

	dir := t.TempDir()
	m := NewManager(src, fakeClock{tick: 5}, WithDir(dir))

	m.Take()

	first, tick := m.Latest()
	if first == nil || tick != 5 {
		t.Fatalf("expected snapshot at tick 5, got %d", tick)
	}

	m.Take()

	second, _ := m.Latest()
	if &first[0] != &second[0] {
		t.Error("unchanged state produced a new snapshot")
	}

	img := testImage()
	img.Meta.NextID = 4
	img.Meta.OldestUnresolved = 4
	src.img.Store(img)

	m.Take()

	third, _ := m.Latest()
	if &first[0] == &third[0] {
		t.Error("changed state did not produce a new snapshot")
	}

	onDisk, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	if !reflect.DeepEqual(onDisk, third) {
		t.Error("file does not hold the latest snapshot")
	}
}

func TestManagerStartStop(t *testing.T) {
	src := &fakeSource{}
	src.img.Store(testImage())

	m := NewManager(src, fakeClock{}, WithInterval(10*time.Millisecond))
	m.Start()

	time.Sleep(50 * time.Millisecond)
	m.Stop()

	if data, _ := m.Latest(); data == nil {
		t.Fatal("expected a snapshot after start")
	}

	if src.calls.Load() < 2 {
		t.Errorf("expected periodic calls, got %d", src.calls.Load())
	}
}

func TestLoadFileMissing(t *testing.T) {
	data, err := LoadFile(t.TempDir())
	if err != nil || data != nil {
		t.Fatalf("expected nil, nil; got %v, %v", data, err)
	}
}
