package zledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// Address is an account identifier on this chain. The ledger treats it
// as opaque; ownership is proven by locking scripts, not by the
// address format.
type Address string

// CoinAmount is used for coin amounts in the ledger. Amounts are
// whole base units: a fractional or negative CoinAmount is never valid
// ledger state (see IsLedgerAmount).
type CoinAmount = decimal.Decimal

var ZeroCoins = decimal.Zero

// IsLedgerAmount reports whether amount can appear in ledger state:
// non-negative and integral in base units.
func IsLedgerAmount(amount CoinAmount) bool {
	return !amount.IsNegative() && amount.Equal(amount.Truncate(0))
}

// UTXO is one transaction output. (TxID, VOut) is the unique key.
// Rows are never deleted: spending sets Spent and SpendTxID, a one-way
// transition. LockingScript is the owner's serialized public key.
type UTXO struct {
	TxID          string     `json:"tx_id"`
	VOut          int        `json:"vout"`
	Account       Address    `json:"account"`
	Value         CoinAmount `json:"value"`
	Height        int64      `json:"height"`
	Spent         bool       `json:"spent"`
	SpendTxID     string     `json:"spend_tx_id"`
	LockingScript []byte     `json:"locking_script"`
}

// TxIn consumes a prior output, identified by outpoint.
type TxIn struct {
	PrevTxID        string `json:"prev_tx_id"`
	PrevVOut        int    `json:"prev_vout"`
	UnlockingScript []byte `json:"unlocking_script"` // signature over the spending tx's sighash
}

// TxOut creates a new output.
type TxOut struct {
	Account       Address    `json:"account"`
	Value         CoinAmount `json:"value"`
	LockingScript []byte     `json:"locking_script"`
}

// Transaction is the transparent (non-shielded) transaction form.
// Conservation: sum(inputs) must equal sum(outputs) + Fee exactly.
type Transaction struct {
	TxID     string     `json:"tx_id"`
	Inputs   []TxIn     `json:"inputs"`
	Outputs  []TxOut    `json:"outputs"`
	Fee      CoinAmount `json:"fee"`
	LockTime int64      `json:"lock_time"`
}

// SigHash is the digest every input's unlocking script signs: all
// outpoints, all outputs, fee and locktime. Unlocking scripts are
// excluded so signing one input does not invalidate the others.
func (tx *Transaction) SigHash() []byte {
	h := sha256.New()
	var scratch [8]byte
	writeStr := func(s string) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(s)))
		h.Write(scratch[:])
		h.Write([]byte(s))
	}
	for _, in := range tx.Inputs {
		writeStr(in.PrevTxID)
		binary.LittleEndian.PutUint64(scratch[:], uint64(in.PrevVOut))
		h.Write(scratch[:])
	}
	for _, out := range tx.Outputs {
		writeStr(string(out.Account))
		writeStr(out.Value.String())
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(out.LockingScript)))
		h.Write(scratch[:])
		h.Write(out.LockingScript)
	}
	writeStr(tx.Fee.String())
	binary.LittleEndian.PutUint64(scratch[:], uint64(tx.LockTime))
	h.Write(scratch[:])
	return h.Sum(nil)
}

// MaxMemoBytes bounds the opaque encrypted memo on shielded
// transactions.
const MaxMemoBytes = 512

// ShieldedTransaction moves value inside the shielded pool. The ledger
// sees only nullifiers (note spends), commitments (new notes), an
// opaque proof and an opaque memo; amounts and parties stay hidden.
type ShieldedTransaction struct {
	TxID          string     `json:"tx_id"`
	Nullifiers    [][32]byte `json:"nullifiers"`
	Commitments   [][32]byte `json:"commitments"`
	Proof         []byte     `json:"proof"`
	EncryptedMemo []byte     `json:"encrypted_memo"`
	Fee           CoinAmount `json:"fee"`
}

// BindingInput is the exact byte string the zero-knowledge proof must
// bind to: every nullifier, every commitment, then the contextual
// block hash, all in order. Any substitution of a nullifier or
// commitment after proving changes this string and invalidates the
// proof.
func (tx *ShieldedTransaction) BindingInput(blockHash [32]byte) []byte {
	buf := make([]byte, 0, 32*(len(tx.Nullifiers)+len(tx.Commitments)+1))
	for _, n := range tx.Nullifiers {
		buf = append(buf, n[:]...)
	}
	for _, c := range tx.Commitments {
		buf = append(buf, c[:]...)
	}
	buf = append(buf, blockHash[:]...)
	return buf
}

// MiningProof is a miner's claim on the next block: a puzzle solution
// for the current chain position plus an optional zero-knowledge
// attestation.
type MiningProof struct {
	Miner        Address  `json:"miner"`
	Solution     []uint32 `json:"solution"`
	Nonce        uint64   `json:"nonce"`
	Bits         uint32   `json:"bits"`
	Proof        []byte   `json:"proof"`
	PublicInputs []byte   `json:"public_inputs"`
	HardwareID   string   `json:"hardware_id"`
	Timestamp    int64    `json:"timestamp"` // unix millis, informational
}

// DifficultyState is the committed retarget state.
type DifficultyState struct {
	Bits               uint32 `json:"bits"`
	LastRetargetHeight int64  `json:"last_retarget_height"`
	EpochStartTime     int64  `json:"epoch_start_time"` // unix millis
}

// ChainPosition is the chain context the orchestrator maintains: the
// block every new submission is validated against.
type ChainPosition struct {
	BestBlockHash   string `json:"best_block_hash"` // hex
	BestBlockHeight int64  `json:"best_block_height"`
	BestBlockTime   int64  `json:"best_block_time"` // unix millis
	MerkleRoot      string `json:"merkle_root"`     // hex
}

func (p ChainPosition) BlockHashBytes() [32]byte {
	return hexTo32(p.BestBlockHash)
}

func (p ChainPosition) MerkleRootBytes() [32]byte {
	return hexTo32(p.MerkleRoot)
}

// IsHexHash reports whether s decodes as hex to at most 32 bytes.
// Empty is valid: a fresh chain carries zero hashes.
func IsHexHash(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) <= 32
}

// hexTo32 decodes up to 32 bytes of hex, zero-padding the remainder.
// A fresh chain has empty hash fields; they decode to all zeroes.
func hexTo32(s string) [32]byte {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err == nil {
		copy(out[:], b)
	}
	return out
}

// MinerStats accumulates per-miner payout history, for monitoring.
type MinerStats struct {
	Miner       Address    `json:"miner"`
	HardwareID  string     `json:"hardware_id"` // most recent class seen
	Blocks      int64      `json:"blocks"`
	TotalReward CoinAmount `json:"total_reward"`
}
