package zledger

import (
	"math/big"

	"github.com/zchainfoundation/zledger/pkg/equihash"
)

// API is the surface the surrounding orchestrator calls. It composes
// the five components over one injected store; instantiate one per
// chain instance (or per test), there are no module-level globals.
type API struct {
	Store      Store
	Validator  Validator
	Privacy    PrivacyLedger
	Difficulty *DifficultyController
	Rewards    RewardEngine
	Puzzle     equihash.Params
	Verifier   ProofVerifier
	Bus        MessageBus
}

func NewAPI(store Store, verifier ProofVerifier, bank Bank, notifier CrossChainNotifier, bus MessageBus, cfg Config) (API, error) {
	puzzle := equihash.Params{N: cfg.Chain.EquihashN, K: cfg.Chain.EquihashK}
	if err := puzzle.Validate(); err != nil {
		return API{}, NewErr(BadRequest, "puzzle params: %v", err)
	}
	rewards, err := NewRewardEngine(store, bank, notifier, bus, cfg)
	if err != nil {
		return API{}, err
	}
	return API{
		Store:      store,
		Validator:  NewValidator(store),
		Privacy:    NewPrivacyLedger(store, verifier),
		Difficulty: NewDifficultyController(store, cfg.Chain.EpochLength, cfg.Chain.TargetBlockTimeMS, cfg.Chain.GenesisBits),
		Rewards:    rewards,
		Puzzle:     puzzle,
		Verifier:   verifier,
		Bus:        bus,
	}, nil
}

// SubmitTransaction validates and applies a standard transaction at
// the current chain height.
func (a API) SubmitTransaction(tx Transaction) (string, error) {
	pos, err := a.position()
	if err != nil {
		return "", err
	}
	if err := a.Validator.Apply(&tx, pos.BestBlockHeight); err != nil {
		a.Bus.Send(TX_REJECTED, rejection{TxID: tx.TxID, Code: string(CodeOf(err))}, tx.TxID)
		return "", err
	}
	a.Bus.Send(TX_ACCEPTED, tx, tx.TxID)
	return tx.TxID, nil
}

// SubmitShieldedTransaction validates and applies a shielded
// transaction bound to the current best block hash.
func (a API) SubmitShieldedTransaction(tx ShieldedTransaction) (string, error) {
	pos, err := a.position()
	if err != nil {
		return "", err
	}
	if err := a.Privacy.Apply(&tx, pos.BlockHashBytes()); err != nil {
		a.Bus.Send(SHIELD_REJECTED, rejection{TxID: tx.TxID, Code: string(CodeOf(err))}, tx.TxID)
		return "", err
	}
	a.Bus.Send(SHIELD_ACCEPTED, shieldedSummary(tx), tx.TxID)
	return tx.TxID, nil
}

// SubmitMiningProof verifies a candidate puzzle solution for the
// current chain position and, on acceptance, pays the miner.
func (a API) SubmitMiningProof(proof MiningProof) (bool, error) {
	pos, err := a.position()
	if err != nil {
		return false, err
	}
	diff, err := a.Difficulty.State()
	if err != nil {
		return false, err
	}

	if err := a.verifyProof(&proof, pos, diff); err != nil {
		a.Bus.Send(MINE_PROOF_REJECTED, rejection{TxID: string(proof.Miner), Code: string(CodeOf(err))})
		return false, err
	}

	height := pos.BestBlockHeight + 1
	if _, err := a.Rewards.Pay(proof.Miner, height, proof.HardwareID); err != nil {
		return false, err
	}
	a.Bus.Send(MINE_PROOF_ACCEPTED, proof)
	return true, nil
}

// verifyProof is the pure accept/reject decision: header bytes,
// solution indices and committed difficulty only.
func (a API) verifyProof(proof *MiningProof, pos ChainPosition, diff DifficultyState) error {
	if proof.Miner == "" {
		return NewErr(BadRequest, "mining proof has no miner address")
	}
	if proof.Bits != diff.Bits {
		return NewErr(InsufficientDifficulty, "proof targets bits %08x, chain requires %08x", proof.Bits, diff.Bits)
	}

	challenge := equihash.Challenge(equihash.Header{
		Version:       1,
		PrevBlockHash: pos.BlockHashBytes(),
		MerkleRoot:    pos.MerkleRootBytes(),
		Timestamp:     uint32(pos.BestBlockTime / 1000),
		Bits:          proof.Bits,
		Nonce:         proof.Nonce,
	})
	if err := equihash.VerifySolution(a.Puzzle, challenge, proof.Solution); err != nil {
		return NewErr(BadSolution, "%v", err)
	}
	if !equihash.MeetsTarget(equihash.SolutionHash(challenge, proof.Solution), diff.Bits) {
		return NewErr(InsufficientDifficulty, "solution hash above target %08x", diff.Bits)
	}
	if len(proof.Proof) > 0 || len(proof.PublicInputs) > 0 {
		if !a.Verifier.Verify(proof.Proof, proof.PublicInputs) {
			return NewErr(InvalidProof, "mining proof rejected for %s", proof.Miner)
		}
	}
	return nil
}

// GetUTXO returns one output or a NotFound error.
func (a API) GetUTXO(txID string, vOut int) (UTXO, error) {
	return a.Store.GetUTXO(txID, vOut)
}

// GetDifficulty returns the committed compact bits and the decoded
// target they stand for.
func (a API) GetDifficulty() (uint32, *big.Int, error) {
	state, err := a.Difficulty.State()
	if err != nil {
		return 0, nil, err
	}
	return state.Bits, equihash.DecodeCompact(state.Bits), nil
}

// GetBlockReward returns the subsidy at a height (bonus excluded:
// bonuses depend on the miner's hardware class, not the height).
func (a API) GetBlockReward(height int64) CoinAmount {
	return a.Rewards.Subsidy(height)
}

// GetChainPosition exposes the committed chain context.
func (a API) GetChainPosition() (ChainPosition, error) {
	return a.position()
}

// AdvancePosition is called by the block processor after it commits a
// block: it moves the chain context forward and retargets difficulty
// at epoch boundaries.
func (a API) AdvancePosition(pos ChainPosition) error {
	if pos.BestBlockHeight < 0 {
		return NewErr(BadRequest, "negative height: %d", pos.BestBlockHeight)
	}
	if !IsHexHash(pos.BestBlockHash) {
		return NewErr(BadRequest, "bad best block hash: %q", pos.BestBlockHash)
	}
	if !IsHexHash(pos.MerkleRoot) {
		return NewErr(BadRequest, "bad merkle root: %q", pos.MerkleRoot)
	}
	dbtx, err := a.Store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	if err := dbtx.SetChainPosition(pos); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return err
	}

	before, err := a.Difficulty.State()
	if err != nil {
		return err
	}
	after, err := a.Difficulty.MaybeRetarget(pos.BestBlockHeight, pos.BestBlockTime)
	if err != nil {
		return err
	}
	if after.Bits != before.Bits || after.LastRetargetHeight != before.LastRetargetHeight {
		a.Bus.Send(MINE_RETARGET, after)
	}
	return nil
}

// position returns the chain context, defaulting to genesis on a
// fresh store.
func (a API) position() (ChainPosition, error) {
	pos, err := a.Store.GetChainPosition()
	if IsNotFoundError(err) {
		return ChainPosition{}, nil
	}
	if err != nil {
		return ChainPosition{}, err
	}
	return pos, nil
}

type rejection struct {
	TxID string `json:"tx_id"`
	Code string `json:"code"`
}

// shieldedSummary is what goes on the bus for an accepted shielded
// transaction: counts only, never memo or proof bytes.
func shieldedSummary(tx ShieldedTransaction) map[string]any {
	return map[string]any{
		"tx_id":       tx.TxID,
		"nullifiers":  len(tx.Nullifiers),
		"commitments": len(tx.Commitments),
	}
}
