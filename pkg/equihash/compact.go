package equihash

import (
	"math/big"
)

// Compact target encoding: 1 byte for the number of significant
// bytes, 3 bytes of mantissa. The classic floating-point-style "bits"
// field.
//
// The encoding is lossy: any target needing more than 3 significant
// bytes of precision loses its low bytes, so
// DecodeCompact(EncodeCompact(x)) may differ slightly from x. Every
// consumer compares against the *decoded* value of the committed bits
// field, so all nodes still agree exactly.

// EncodeCompact packs a target into its 4-byte compact form.
// Non-positive targets encode to zero.
func EncodeCompact(target *big.Int) uint32 {
	if target == nil || target.Sign() <= 0 {
		return 0
	}
	b := target.Bytes()
	size := len(b)
	var compact uint32
	if size <= 3 {
		compact = uint32(target.Uint64()) << (8 * (3 - size))
	} else {
		compact = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	}
	compact |= uint32(size) << 24
	return compact
}

// DecodeCompact expands a compact target back into an integer.
func DecodeCompact(bits uint32) *big.Int {
	if bits == 0 {
		return big.NewInt(0)
	}
	size := bits >> 24
	mantissa := bits & 0x00ffffff
	if size <= 3 {
		mantissa >>= 8 * (3 - size)
		return big.NewInt(int64(mantissa))
	}
	target := big.NewInt(int64(mantissa))
	target.Lsh(target, uint(8*(size-3)))
	return target
}

// MeetsTarget interprets a solution hash as a big-endian unsigned
// integer and requires it not exceed the decoded target. A smaller
// target admits fewer hashes: higher difficulty.
func MeetsTarget(solutionHash []byte, bits uint32) bool {
	hashInt := new(big.Int).SetBytes(solutionHash)
	return hashInt.Cmp(DecodeCompact(bits)) <= 0
}
