package zledger_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"github.com/zchainfoundation/zledger/pkg/equihash"
	"github.com/zchainfoundation/zledger/pkg/store"
)

const genesisBits = uint32(0x1f07ffff)

func TestRetargetBitsSteadyEpoch(t *testing.T) {
	// epoch on schedule: target unchanged
	scheduled := int64(2016 * 500)
	require.Equal(t, genesisBits, zledger.RetargetBits(genesisBits, scheduled, 2016, 500))
}

func TestRetargetBitsFastEpochClamped(t *testing.T) {
	// blocks came in 10x fast; the raw adjustment would be /10 but the
	// clamp holds it at /4
	scheduled := int64(2016 * 500)
	got := zledger.RetargetBits(genesisBits, scheduled/10, 2016, 500)

	cur := equihash.DecodeCompact(genesisBits)
	wantTarget := cur.Div(cur, big.NewInt(4))
	require.Equal(t, equihash.EncodeCompact(wantTarget), got)
	require.Equal(t, uint32(0x1f01ffff), got)
}

func TestRetargetBitsSlowEpochClamped(t *testing.T) {
	scheduled := int64(2016 * 500)
	got := zledger.RetargetBits(genesisBits, scheduled*10, 2016, 500)

	cur := equihash.DecodeCompact(genesisBits)
	wantTarget := cur.Mul(cur, big.NewInt(4))
	require.Equal(t, equihash.EncodeCompact(wantTarget), got)
	require.Equal(t, uint32(0x1f1ffffc), got)
}

func TestRetargetBitsModerateAdjustment(t *testing.T) {
	// 2x slow lands inside the clamp window: target doubles
	scheduled := int64(2016 * 500)
	got := zledger.RetargetBits(genesisBits, scheduled*2, 2016, 500)
	require.Equal(t, uint32(0x1f0ffffe), got)
}

func TestRetargetBitsElapsedFloor(t *testing.T) {
	// zero or negative elapsed time is clamped to one unit, which then
	// hits the /4 clamp rather than dividing by zero
	require.Equal(t, uint32(0x1f01ffff), zledger.RetargetBits(genesisBits, 0, 2016, 500))
	require.Equal(t, uint32(0x1f01ffff), zledger.RetargetBits(genesisBits, -100, 2016, 500))
}

func TestControllerGenesisState(t *testing.T) {
	db := store.NewMemStore()
	c := zledger.NewDifficultyController(db, 8, 500, genesisBits)

	state, err := c.State()
	require.NoError(t, err)
	require.Equal(t, genesisBits, state.Bits)
	require.Equal(t, int64(0), state.LastRetargetHeight)
	require.Equal(t, "steady", c.Current())
}

func TestControllerNoRetargetOffBoundary(t *testing.T) {
	db := store.NewMemStore()
	c := zledger.NewDifficultyController(db, 8, 500, genesisBits)

	for _, height := range []int64{0, 1, 5, 7, 9, 15} {
		state, err := c.MaybeRetarget(height, height*500)
		require.NoError(t, err)
		require.Equal(t, genesisBits, state.Bits, "height %d", height)
	}
	// nothing committed
	_, err := db.GetDifficulty()
	require.True(t, zledger.IsNotFoundError(err))
}

// flakyStore fails the next n calls to Begin, then recovers.
type flakyStore struct {
	zledger.Store
	failures int
}

func (s *flakyStore) Begin() (zledger.StoreTransaction, error) {
	if s.failures > 0 {
		s.failures--
		return nil, zledger.NewErr(zledger.NotAvailable, "store offline")
	}
	return s.Store.Begin()
}

func TestControllerRetargetRetryableAfterStoreFailure(t *testing.T) {
	db := &flakyStore{Store: store.NewMemStore(), failures: 1}
	c := zledger.NewDifficultyController(db, 8, 500, genesisBits)

	_, err := c.MaybeRetarget(8, 400)
	require.True(t, zledger.IsError(err, zledger.NotAvailable), "got %v", err)
	require.Equal(t, "steady", c.Current(), "failed commit must not leave the machine mid-transition")

	// retry of the same boundary against the recovered store commits
	state, err := c.MaybeRetarget(8, 400)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1f01ffff), state.Bits)
	require.Equal(t, int64(8), state.LastRetargetHeight)
	require.Equal(t, "steady", c.Current())
}

func TestControllerRetargetsAtEpochBoundary(t *testing.T) {
	db := store.NewMemStore()
	c := zledger.NewDifficultyController(db, 8, 500, genesisBits)

	// epoch of 8 blocks took 400ms instead of 4000ms: fast epoch,
	// clamped to /4
	state, err := c.MaybeRetarget(8, 400)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1f01ffff), state.Bits)
	require.Equal(t, int64(8), state.LastRetargetHeight)
	require.Equal(t, int64(400), state.EpochStartTime)
	require.Equal(t, "steady", c.Current(), "machine returns to steady after commit")

	committed, err := db.GetDifficulty()
	require.NoError(t, err)
	require.Equal(t, state, committed)

	// next epoch exactly on schedule from the new epoch start: bits hold
	state2, err := c.MaybeRetarget(16, 400+8*500)
	require.NoError(t, err)
	require.Equal(t, state.Bits, state2.Bits)
	require.Equal(t, int64(16), state2.LastRetargetHeight)
}
