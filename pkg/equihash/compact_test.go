package equihash

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactRoundTripSmallTargets(t *testing.T) {
	// targets of 1..3 significant bytes survive the encoding exactly
	for _, v := range []int64{1, 0x7f, 0xff, 0x100, 0xffff, 0x7fffff, 0xffffff} {
		target := big.NewInt(v)
		bits := EncodeCompact(target)
		require.Equal(t, 0, DecodeCompact(bits).Cmp(target), "target %#x", v)
	}
}

func TestCompactRoundTripLargeTarget(t *testing.T) {
	// the genesis target: 0x07ffff << (8*28)
	target := new(big.Int).Lsh(big.NewInt(0x07ffff), 8*28)
	bits := EncodeCompact(target)
	require.Equal(t, uint32(0x1f07ffff), bits)
	require.Equal(t, 0, DecodeCompact(bits).Cmp(target))
}

func TestCompactEncodingIsLossy(t *testing.T) {
	// precision past 3 significant bytes is discarded; the decoded
	// value is the truncated target, which is what consensus compares
	exact := new(big.Int).Lsh(big.NewInt(0x07ffff), 8*28)
	fuzzed := new(big.Int).Add(exact, big.NewInt(12345))
	require.Equal(t, EncodeCompact(exact), EncodeCompact(fuzzed))
	require.Equal(t, 0, DecodeCompact(EncodeCompact(fuzzed)).Cmp(exact))
}

func TestCompactZero(t *testing.T) {
	require.Equal(t, uint32(0), EncodeCompact(nil))
	require.Equal(t, uint32(0), EncodeCompact(big.NewInt(0)))
	require.Equal(t, uint32(0), EncodeCompact(big.NewInt(-5)))
	require.Equal(t, int64(0), DecodeCompact(0).Int64())
}

func TestMeetsTarget(t *testing.T) {
	bits := uint32(0x03ffffff) // target 0xffffff

	require.True(t, MeetsTarget([]byte{0x00}, bits))
	require.True(t, MeetsTarget([]byte{0xff, 0xff, 0xff}, bits), "equality meets")
	require.False(t, MeetsTarget([]byte{0x01, 0x00, 0x00, 0x00}, bits))

	// a full 32-byte hash against a wide-open target
	var worst [32]byte
	for i := range worst {
		worst[i] = 0xff
	}
	require.True(t, MeetsTarget(worst[:], 0x2200ffff))
	require.False(t, MeetsTarget(worst[:], 0x1f07ffff))
}
