package zledger

import (
	"encoding/hex"
)

// ProofVerifier is the seam between ledger logic and the zero-
// knowledge backend. Both shielded transactions and mining proofs
// delegate their cryptographic checks here; the verifier's internals
// are a black box to this core, so production code and tests can swap
// in a real zk-SNARK backend or a deterministic fake without touching
// ledger logic.
type ProofVerifier interface {
	Verify(proof []byte, publicInputs []byte) bool
}

// PrivacyLedger owns the nullifier set and the append-only commitment
// accumulator. Nullifiers and commitments are write-once and never
// removed; accumulator positions are permanent and may be referenced
// by future proofs, so the append order is never altered retroactively.
type PrivacyLedger struct {
	store    Store
	verifier ProofVerifier
}

func NewPrivacyLedger(store Store, verifier ProofVerifier) PrivacyLedger {
	return PrivacyLedger{store: store, verifier: verifier}
}

// Apply validates a shielded transaction against the contextual block
// hash and commits its nullifiers and commitments atomically.
func (l PrivacyLedger) Apply(tx *ShieldedTransaction, blockHash [32]byte) error {
	if err := checkShieldedShape(tx); err != nil {
		return err
	}

	// The proof must bind to exactly what this transaction claims:
	// its nullifiers, its commitments, and the block it was built for.
	if !l.verifier.Verify(tx.Proof, tx.BindingInput(blockHash)) {
		return NewErr(InvalidProof, "shielded proof rejected: %s", tx.TxID)
	}

	dbtx, err := l.store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	for _, n := range tx.Nullifiers {
		used, err := dbtx.HasNullifier(n)
		if err != nil {
			return err
		}
		if used {
			return NewErr(DoubleSpend, "nullifier already revealed: %s", hex.EncodeToString(n[:]))
		}
		if err := dbtx.AddNullifier(n); err != nil {
			return err
		}
	}

	// Commitments land in transaction order, then within-transaction
	// order; positions returned here are permanent.
	for _, c := range tx.Commitments {
		if _, err := dbtx.AppendCommitment(c); err != nil {
			return err
		}
	}

	if err := dbtx.StoreShieldedTx(*tx); err != nil {
		return err
	}
	return dbtx.Commit()
}

func checkShieldedShape(tx *ShieldedTransaction) error {
	if tx == nil || tx.TxID == "" {
		return NewErr(BadRequest, "shielded transaction has no ID")
	}
	if len(tx.Nullifiers) == 0 {
		return NewErr(BadRequest, "shielded transaction reveals no nullifiers")
	}
	if len(tx.Proof) == 0 {
		return NewErr(BadRequest, "shielded transaction carries no proof")
	}
	if len(tx.EncryptedMemo) > MaxMemoBytes {
		return NewErr(BadRequest, "encrypted memo exceeds %d bytes: %d", MaxMemoBytes, len(tx.EncryptedMemo))
	}
	if !IsLedgerAmount(tx.Fee) {
		return NewErr(AmountError, "fee must be a non-negative integer: %s", tx.Fee.String())
	}
	// A transaction revealing the same nullifier twice is spending the
	// same note against itself; the global set would catch the second
	// insert, but rejecting it here keeps the error a DoubleSpend
	// rather than a store conflict.
	seen := make(map[[32]byte]struct{}, len(tx.Nullifiers))
	for _, n := range tx.Nullifiers {
		if _, dup := seen[n]; dup {
			return NewErr(DoubleSpend, "nullifier revealed twice in one transaction: %s", hex.EncodeToString(n[:]))
		}
		seen[n] = struct{}{}
	}
	return nil
}
