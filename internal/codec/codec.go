// Package codec converts bridge state to and from its FlatBuffers encoding.
package codec

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/types"
)

// BuildRecord writes tx into builder and returns its table offset.
func BuildRecord(builder *flatbuffers.Builder, tx *bridge.Transaction) flatbuffers.UOffsetT {
	sigOffsets := make([]flatbuffers.UOffsetT, len(tx.Signatures))
	for i := range tx.Signatures {
		s := &tx.Signatures[i]
		pk := builder.CreateByteVector(s.PublicKey[:])
		sig := builder.CreateByteVector(s.Signature[:])

		types.SignatureStart(builder)
		types.SignatureAddPublicKey(builder, pk)
		types.SignatureAddSignature(builder, sig)
		sigOffsets[i] = types.SignatureEnd(builder)
	}

	types.BridgeRecordStartSignaturesVector(builder, len(sigOffsets))
	for i := len(sigOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(sigOffsets[i])
	}
	sigsVector := builder.EndVector(len(sigOffsets))

	src := builder.CreateByteVector(tx.SourceAddress[:])
	dst := builder.CreateByteVector(tx.DestinationAddress[:])

	types.BridgeRecordStart(builder)
	types.BridgeRecordAddId(builder, tx.ID)
	types.BridgeRecordAddAssetId(builder, tx.Asset.ID)
	types.BridgeRecordAddAssetKind(builder, byte(tx.Asset.Kind))
	types.BridgeRecordAddAssetDecimals(builder, tx.Asset.Decimals)
	types.BridgeRecordAddAmount(builder, tx.Amount)
	types.BridgeRecordAddSourceChain(builder, byte(tx.SourceChain))
	types.BridgeRecordAddDestinationChain(builder, byte(tx.DestinationChain))
	types.BridgeRecordAddSourceAddress(builder, src)
	types.BridgeRecordAddDestinationAddress(builder, dst)
	types.BridgeRecordAddCreatedAtTick(builder, tx.CreatedAtTick)
	types.BridgeRecordAddUpdatedAtTick(builder, tx.UpdatedAtTick)
	types.BridgeRecordAddStatus(builder, byte(tx.Status))
	types.BridgeRecordAddConfirmations(builder, tx.Confirmations)
	types.BridgeRecordAddSignatures(builder, sigsVector)

	return types.BridgeRecordEnd(builder)
}

// ReadRecord copies a decoded record into a bridge transaction.
func ReadRecord(r *types.BridgeRecord) (bridge.Transaction, error) {
	tx := bridge.Transaction{
		ID:               r.Id(),
		Asset:            bridge.Asset{ID: r.AssetId(), Kind: bridge.TokenKind(r.AssetKind()), Decimals: r.AssetDecimals()},
		Amount:           r.Amount(),
		SourceChain:      bridge.ChainID(r.SourceChain()),
		DestinationChain: bridge.ChainID(r.DestinationChain()),
		CreatedAtTick:    r.CreatedAtTick(),
		UpdatedAtTick:    r.UpdatedAtTick(),
		Status:           bridge.Status(r.Status()),
		Confirmations:    r.Confirmations(),
	}

	if err := copyFixed(tx.SourceAddress[:], r.SourceAddressBytes(), "source address"); err != nil {
		return tx, err
	}

	if err := copyFixed(tx.DestinationAddress[:], r.DestinationAddressBytes(), "destination address"); err != nil {
		return tx, err
	}

	if tx.Status > bridge.StatusFailed {
		return tx, fmt.Errorf("record %d: unknown status %d", tx.ID, tx.Status)
	}

	n := r.SignaturesLength()
	if n > bridge.MaxValidators {
		return tx, fmt.Errorf("record %d: %d signatures exceeds max", tx.ID, n)
	}

	if n > 0 {
		tx.Signatures = make([]bridge.ValidatorSignature, n)

		var s types.Signature
		for i := 0; i < n; i++ {
			if !r.Signatures(&s, i) {
				return tx, fmt.Errorf("record %d: read signature %d", tx.ID, i)
			}

			if err := copyFixed(tx.Signatures[i].PublicKey[:], s.PublicKeyBytes(), "signer key"); err != nil {
				return tx, err
			}

			if err := copyFixed(tx.Signatures[i].Signature[:], s.SignatureBytes(), "signature"); err != nil {
				return tx, err
			}
		}
	}

	return tx, nil
}

// EncodeRecord serializes a single transaction.
func EncodeRecord(tx *bridge.Transaction) []byte {
	builder := flatbuffers.NewBuilder(256)
	builder.Finish(BuildRecord(builder, tx))

	return builder.FinishedBytes()
}

// DecodeRecord parses a transaction produced by EncodeRecord.
func DecodeRecord(data []byte) (bridge.Transaction, error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return bridge.Transaction{}, fmt.Errorf("record too short: %d bytes", len(data))
	}

	return ReadRecord(types.GetRootAsBridgeRecord(data, 0))
}

// BuildLocked writes a ledger entry into builder.
func BuildLocked(builder *flatbuffers.Builder, e bridge.LockedBalance) flatbuffers.UOffsetT {
	types.LockedEntryStart(builder)
	types.LockedEntryAddAssetId(builder, e.Asset.ID)
	types.LockedEntryAddAssetKind(builder, byte(e.Asset.Kind))
	types.LockedEntryAddAssetDecimals(builder, e.Asset.Decimals)
	types.LockedEntryAddAmount(builder, e.Amount)

	return types.LockedEntryEnd(builder)
}

// ReadLocked copies a decoded ledger entry.
func ReadLocked(e *types.LockedEntry) bridge.LockedBalance {
	return bridge.LockedBalance{
		Asset:  bridge.Asset{ID: e.AssetId(), Kind: bridge.TokenKind(e.AssetKind()), Decimals: e.AssetDecimals()},
		Amount: e.Amount(),
	}
}

// EncodeLocked serializes a single ledger entry.
func EncodeLocked(e bridge.LockedBalance) []byte {
	builder := flatbuffers.NewBuilder(64)
	builder.Finish(BuildLocked(builder, e))

	return builder.FinishedBytes()
}

// DecodeLocked parses a ledger entry produced by EncodeLocked.
func DecodeLocked(data []byte) (bridge.LockedBalance, error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return bridge.LockedBalance{}, fmt.Errorf("ledger entry too short: %d bytes", len(data))
	}

	return ReadLocked(types.GetRootAsLockedEntry(data, 0)), nil
}

// BuildMeta writes the scalar state into builder.
func BuildMeta(builder *flatbuffers.Builder, m bridge.Meta) flatbuffers.UOffsetT {
	types.BridgeMetaStart(builder)
	types.BridgeMetaAddNextId(builder, m.NextID)
	types.BridgeMetaAddOldestUnresolved(builder, m.OldestUnresolved)
	types.BridgeMetaAddPaused(builder, m.Paused)
	types.BridgeMetaAddTotalLocked(builder, m.Stats.TotalLocked)
	types.BridgeMetaAddTotalUnlocked(builder, m.Stats.TotalUnlocked)
	types.BridgeMetaAddTotalRefunded(builder, m.Stats.TotalRefunded)
	types.BridgeMetaAddTotalTransfers(builder, m.Stats.TotalTransfers)
	types.BridgeMetaAddTotalValidatorActions(builder, m.Stats.TotalValidatorActions)

	return types.BridgeMetaEnd(builder)
}

// ReadMeta copies decoded scalar state.
func ReadMeta(m *types.BridgeMeta) bridge.Meta {
	return bridge.Meta{
		NextID:           m.NextId(),
		OldestUnresolved: m.OldestUnresolved(),
		Paused:           m.Paused(),
		Stats: bridge.Stats{
			TotalLocked:           m.TotalLocked(),
			TotalUnlocked:         m.TotalUnlocked(),
			TotalRefunded:         m.TotalRefunded(),
			TotalTransfers:        m.TotalTransfers(),
			TotalValidatorActions: m.TotalValidatorActions(),
		},
	}
}

// EncodeMeta serializes the scalar state.
func EncodeMeta(m bridge.Meta) []byte {
	builder := flatbuffers.NewBuilder(128)
	builder.Finish(BuildMeta(builder, m))

	return builder.FinishedBytes()
}

// DecodeMeta parses scalar state produced by EncodeMeta.
func DecodeMeta(data []byte) (bridge.Meta, error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return bridge.Meta{}, fmt.Errorf("meta too short: %d bytes", len(data))
	}

	return ReadMeta(types.GetRootAsBridgeMeta(data, 0)), nil
}

// copyFixed copies src into dst, requiring equal length.
func copyFixed(dst, src []byte, what string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", what, len(dst), len(src))
	}

	copy(dst, src)

	return nil
}
