package zledger

// Validator applies standard transactions to the UTXO set.
//
// Block processing is single-writer: the orchestrator feeds one
// transaction at a time, in block order. Apply never consults a clock
// or randomness: acceptance is a pure function of the transaction
// bytes and committed store state, which is what lets every node
// reach the same verdict independently.
type Validator struct {
	store Store
}

func NewValidator(store Store) Validator {
	return Validator{store: store}
}

// Apply validates tx and, on success, atomically marks every consumed
// output spent and inserts every new output. A failure at any step
// rolls the store transaction back, leaving the set untouched.
func (v Validator) Apply(tx *Transaction, height int64) error {
	if err := checkTxShape(tx); err != nil {
		return err
	}

	dbtx, err := v.store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	sigHash := tx.SigHash()
	totalIn := ZeroCoins
	for _, in := range tx.Inputs {
		utxo, err := dbtx.GetUTXO(in.PrevTxID, in.PrevVOut)
		if err != nil {
			if IsNotFoundError(err) {
				return NewErr(UnknownInput, "input not found: %s:%d", in.PrevTxID, in.PrevVOut)
			}
			return err
		}
		if utxo.Spent {
			return NewErr(AlreadySpent, "input already spent: %s:%d by %s", in.PrevTxID, in.PrevVOut, utxo.SpendTxID)
		}
		if err := VerifyUnlock(utxo.LockingScript, in.UnlockingScript, sigHash); err != nil {
			return err
		}
		totalIn = totalIn.Add(utxo.Value)
	}

	totalOut := ZeroCoins
	for _, out := range tx.Outputs {
		totalOut = totalOut.Add(out.Value)
	}
	if !totalIn.Equal(totalOut.Add(tx.Fee)) {
		return NewErr(AmountMismatch, "inputs %s != outputs %s + fee %s",
			totalIn.String(), totalOut.String(), tx.Fee.String())
	}

	// All checks passed: consume inputs, create outputs, record the tx.
	for _, in := range tx.Inputs {
		if err := dbtx.MarkSpent(in.PrevTxID, in.PrevVOut, tx.TxID); err != nil {
			return err
		}
	}
	for i, out := range tx.Outputs {
		utxo := UTXO{
			TxID:          tx.TxID,
			VOut:          i,
			Account:       out.Account,
			Value:         out.Value,
			Height:        height,
			LockingScript: out.LockingScript,
		}
		if err := dbtx.CreateUTXO(utxo); err != nil {
			return err
		}
	}
	if err := dbtx.StoreTx(*tx); err != nil {
		return err
	}

	return dbtx.Commit()
}

// checkTxShape rejects malformed transactions before any store access.
func checkTxShape(tx *Transaction) error {
	if tx == nil || tx.TxID == "" {
		return NewErr(BadRequest, "transaction has no ID")
	}
	if len(tx.Inputs) == 0 {
		return NewErr(BadRequest, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return NewErr(BadRequest, "transaction has no outputs")
	}
	seen := make(map[string]map[int]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if vouts, ok := seen[in.PrevTxID]; ok {
			if _, dup := vouts[in.PrevVOut]; dup {
				return NewErr(BadRequest, "duplicate input: %s:%d", in.PrevTxID, in.PrevVOut)
			}
		} else {
			seen[in.PrevTxID] = make(map[int]struct{}, 2)
		}
		seen[in.PrevTxID][in.PrevVOut] = struct{}{}
	}
	for i, out := range tx.Outputs {
		if !IsLedgerAmount(out.Value) || !out.Value.IsPositive() {
			return NewErr(AmountError, "output %d: amount must be a positive integer: %s", i, out.Value.String())
		}
		if out.Account == "" {
			return NewErr(BadRequest, "output %d: missing owner address", i)
		}
	}
	if !IsLedgerAmount(tx.Fee) {
		return NewErr(AmountError, "fee must be a non-negative integer: %s", tx.Fee.String())
	}
	return nil
}
