package bridge

import "encoding/binary"

// unlockDomain separates unlock signatures from every other signed message.
const unlockDomain = "quantumlink-unlock-v1"

// canonicalSize is the encoded size of CanonicalBytes.
const canonicalSize = len(unlockDomain) + 8 + 8 + 1 + 1 + 8 + 1 + 1 + AddressSize

// CanonicalBytes returns the byte string validators sign to authorize an unlock.
// Format (little-endian): domain || id u64 || asset id u64 || kind u8 ||
// decimals u8 || amount u64 || source chain u8 || destination chain u8 ||
// destination address [32]u8.
// Status, confirmations, ticks and attached signatures are excluded so the
// message is stable over the transaction's lifetime.
func CanonicalBytes(tx *Transaction) []byte {
	buf := make([]byte, 0, canonicalSize)

	buf = append(buf, unlockDomain...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.ID)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Asset.ID)
	buf = append(buf, byte(tx.Asset.Kind), tx.Asset.Decimals)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Amount)
	buf = append(buf, byte(tx.SourceChain), byte(tx.DestinationChain))
	buf = append(buf, tx.DestinationAddress[:]...)

	return buf
}
