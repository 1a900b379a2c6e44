package zledger

import (
	"context"
	"math/big"

	"github.com/looplab/fsm"

	"github.com/zchainfoundation/zledger/pkg/equihash"
)

// DifficultyController retargets the puzzle difficulty on a fixed
// block-height epoch. It is a pure function of already-committed
// history (any node recomputes the same schedule without
// coordination), so the controller holds no state of its own beyond
// the explicit Steady/Retargeting machine.
type DifficultyController struct {
	store             Store
	epochLength       int64
	targetBlockTimeMS int64
	genesisBits       uint32
	machine           *fsm.FSM
}

const (
	diffSteady      = "steady"
	diffRetargeting = "retargeting"
)

func NewDifficultyController(store Store, epochLength, targetBlockTimeMS int64, genesisBits uint32) *DifficultyController {
	return &DifficultyController{
		store:             store,
		epochLength:       epochLength,
		targetBlockTimeMS: targetBlockTimeMS,
		genesisBits:       genesisBits,
		machine: fsm.NewFSM(
			diffSteady,
			fsm.Events{
				{Name: "epoch_boundary", Src: []string{diffSteady}, Dst: diffRetargeting},
				{Name: "committed", Src: []string{diffRetargeting}, Dst: diffSteady},
			},
			fsm.Callbacks{},
		),
	}
}

// State returns the committed difficulty, or the genesis state on a
// fresh chain (before the first epoch completes no retarget occurs
// and the genesis target is used unchanged).
func (c *DifficultyController) State() (DifficultyState, error) {
	state, err := c.store.GetDifficulty()
	if IsNotFoundError(err) {
		return DifficultyState{Bits: c.genesisBits, LastRetargetHeight: 0, EpochStartTime: 0}, nil
	}
	if err != nil {
		return DifficultyState{}, err
	}
	return state, nil
}

// MaybeRetarget transitions to Retargeting at epoch boundaries
// (height % epochLength == 0, height > 0), recomputes the target from
// the epoch's actual elapsed time, commits the new state and returns
// to Steady. At any other height it returns the current state
// unchanged.
func (c *DifficultyController) MaybeRetarget(height int64, blockTime int64) (DifficultyState, error) {
	cur, err := c.State()
	if err != nil {
		return DifficultyState{}, err
	}
	if height < c.epochLength || height%c.epochLength != 0 {
		return cur, nil
	}
	if err := c.machine.Event(context.Background(), "epoch_boundary"); err != nil {
		return DifficultyState{}, NewErr(UnknownError, "difficulty machine: %v", err)
	}

	epochStart := cur.EpochStartTime
	next := DifficultyState{
		Bits:               RetargetBits(cur.Bits, blockTime-epochStart, c.epochLength, c.targetBlockTimeMS),
		LastRetargetHeight: height,
		EpochStartTime:     blockTime,
	}

	if err := c.commit(next); err != nil {
		// nothing was committed, so the machine must come back to
		// steady or a later retry of the same boundary would be
		// rejected as an invalid transition
		c.machine.SetState(diffSteady)
		return DifficultyState{}, err
	}

	if err := c.machine.Event(context.Background(), "committed"); err != nil {
		return DifficultyState{}, NewErr(UnknownError, "difficulty machine: %v", err)
	}
	return next, nil
}

func (c *DifficultyController) commit(next DifficultyState) error {
	dbtx, err := c.store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	if err := dbtx.SetDifficulty(next); err != nil {
		return err
	}
	return dbtx.Commit()
}

// Current reports the machine state, for monitoring.
func (c *DifficultyController) Current() string {
	return c.machine.Current()
}

// RetargetBits is the pure retarget computation:
//
//	newTarget = currentTarget * actualElapsed / (epochLength * targetBlockTime)
//
// with actualElapsed clamped to at least one time unit and the result
// clamped into [currentTarget/4, currentTarget*4]. Re-encoding to
// compact form is lossy beyond the mantissa's precision; all nodes
// compare the same committed bits so the loss is harmless.
func RetargetBits(currentBits uint32, actualElapsedMS, epochLength, targetBlockTimeMS int64) uint32 {
	if actualElapsedMS < 1 {
		actualElapsedMS = 1
	}
	cur := equihash.DecodeCompact(currentBits)
	scheduled := epochLength * targetBlockTimeMS

	next := new(big.Int).Mul(cur, big.NewInt(actualElapsedMS))
	next.Div(next, big.NewInt(scheduled))

	lo := new(big.Int).Div(cur, big.NewInt(4))
	hi := new(big.Int).Mul(cur, big.NewInt(4))
	if next.Cmp(lo) < 0 {
		next.Set(lo)
	} else if next.Cmp(hi) > 0 {
		next.Set(hi)
	}
	return equihash.EncodeCompact(next)
}
