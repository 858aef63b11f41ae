package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/codec"
	"QuantumLink/internal/types"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1

	// maxDecodedSize bounds decompression of untrusted snapshots.
	maxDecodedSize = 256 << 20
)

// ErrChecksum is returned when a snapshot's content does not match its checksum.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// Create encodes a full bridge image taken at tick.
func Create(img bridge.Image, tick uint64) []byte {
	sortImage(&img)

	checksum := computeChecksum(snapshotVersion, tick, &img)

	builder := flatbuffers.NewBuilder(4096)

	recordOffsets := make([]flatbuffers.UOffsetT, len(img.Transactions))
	for i := range img.Transactions {
		recordOffsets[i] = codec.BuildRecord(builder, &img.Transactions[i])
	}

	types.SnapshotStartRecordsVector(builder, len(recordOffsets))
	for i := len(recordOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(recordOffsets[i])
	}
	recordsVector := builder.EndVector(len(recordOffsets))

	lockedOffsets := make([]flatbuffers.UOffsetT, len(img.Locked))
	for i, e := range img.Locked {
		lockedOffsets[i] = codec.BuildLocked(builder, e)
	}

	types.SnapshotStartLockedVector(builder, len(lockedOffsets))
	for i := len(lockedOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(lockedOffsets[i])
	}
	lockedVector := builder.EndVector(len(lockedOffsets))

	metaOffset := codec.BuildMeta(builder, img.Meta)
	checksumOffset := builder.CreateByteVector(checksum[:])

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, snapshotVersion)
	types.SnapshotAddTick(builder, tick)
	types.SnapshotAddMeta(builder, metaOffset)
	types.SnapshotAddRecords(builder, recordsVector)
	types.SnapshotAddLocked(builder, lockedVector)
	types.SnapshotAddChecksum(builder, checksumOffset)
	builder.Finish(types.SnapshotEnd(builder))

	return builder.FinishedBytes()
}

// Open decodes a snapshot and verifies its checksum.
func Open(data []byte) (img bridge.Image, tick uint64, err error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return img, 0, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	// Malformed offsets make the generated accessors panic.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed snapshot: %v", r)
		}
	}()

	snap := types.GetRootAsSnapshot(data, 0)

	if v := snap.Version(); v != snapshotVersion {
		return img, 0, fmt.Errorf("unsupported snapshot version %d", v)
	}

	meta := snap.Meta(nil)
	if meta == nil {
		return img, 0, fmt.Errorf("snapshot has no meta")
	}
	img.Meta = codec.ReadMeta(meta)

	var rec types.BridgeRecord
	for i := 0; i < snap.RecordsLength(); i++ {
		if !snap.Records(&rec, i) {
			return img, 0, fmt.Errorf("read record %d", i)
		}

		tx, err := codec.ReadRecord(&rec)
		if err != nil {
			return img, 0, fmt.Errorf("decode record %d:\n%w", i, err)
		}

		img.Transactions = append(img.Transactions, tx)
	}

	var entry types.LockedEntry
	for i := 0; i < snap.LockedLength(); i++ {
		if !snap.Locked(&entry, i) {
			return img, 0, fmt.Errorf("read ledger entry %d", i)
		}

		img.Locked = append(img.Locked, codec.ReadLocked(&entry))
	}

	tick = snap.Tick()

	sortImage(&img)
	computed := computeChecksum(snap.Version(), tick, &img)
	if !bytes.Equal(computed[:], snap.ChecksumBytes()) {
		return img, 0, ErrChecksum
	}

	return img, tick, nil
}

// Restore decompresses a snapshot and rebuilds the bridge state from it.
func Restore(compressed []byte, limits bridge.Limits) (*bridge.State, uint64, error) {
	data, err := Decompress(compressed)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	img, tick, err := Open(data)
	if err != nil {
		return nil, 0, err
	}

	state, err := bridge.RestoreState(limits, img)
	if err != nil {
		return nil, 0, fmt.Errorf("restore snapshot state:\n%w", err)
	}

	return state, tick, nil
}

// sortImage orders records by id and ledger entries by asset id.
func sortImage(img *bridge.Image) {
	sort.Slice(img.Transactions, func(i, j int) bool {
		return img.Transactions[i].ID < img.Transactions[j].ID
	})

	sort.Slice(img.Locked, func(i, j int) bool {
		return img.Locked[i].Asset.ID < img.Locked[j].Asset.ID
	})
}

// computeChecksum hashes the canonical snapshot content.
// Format: version (4 bytes) + tick (8 bytes) + length-prefixed meta,
// records and ledger entries, each in sorted order.
func computeChecksum(version uint32, tick uint64, img *bridge.Image) [32]byte {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], version)
	hasher.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], tick)
	hasher.Write(buf[:])

	writeChunk(hasher, codec.EncodeMeta(img.Meta))

	for i := range img.Transactions {
		writeChunk(hasher, codec.EncodeRecord(&img.Transactions[i]))
	}

	for _, e := range img.Locked {
		writeChunk(hasher, codec.EncodeLocked(e))
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

// writeChunk writes a length-prefixed chunk to the hasher.
func writeChunk(h *blake3.Hasher, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	h.Write(lenBuf[:])
	h.Write(data)
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
