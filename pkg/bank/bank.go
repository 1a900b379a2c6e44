// Package bank implements the mint/transfer collaborator the reward
// engine pays through. On this chain "minting" means materialising a
// coinbase-style output directly in the UTXO set, the same shape the
// peer chain's bank module produces with a mint-then-send pair.
package bank

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

// UTXOBank satisfies zledger.Bank by inserting a freshly minted
// unspent output for the payee.
type UTXOBank struct {
	store zledger.Store
}

var _ zledger.Bank = UTXOBank{}

func NewUTXOBank(store zledger.Store) UTXOBank {
	return UTXOBank{store: store}
}

// MintAndTransfer creates the coinbase output atomically. The output
// carries no locking script: reward outputs are credited to the
// miner's account and swept by the account layer, not spent through
// the transparent script path.
func (b UTXOBank) MintAndTransfer(to zledger.Address, amount zledger.CoinAmount, reference string) error {
	if !zledger.IsLedgerAmount(amount) || !amount.IsPositive() {
		return zledger.NewErr(zledger.AmountError, "mint amount must be a positive integer: %s", amount.String())
	}
	dbtx, err := b.store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	pos, err := dbtx.GetChainPosition()
	if err != nil && !zledger.IsNotFoundError(err) {
		return err
	}
	utxo := zledger.UTXO{
		TxID:          CoinbaseTxID(to, reference),
		VOut:          0,
		Account:       to,
		Value:         amount,
		Height:        pos.BestBlockHeight + 1,
		LockingScript: []byte{},
	}
	if err := dbtx.CreateUTXO(utxo); err != nil {
		return err
	}
	return dbtx.Commit()
}

// CoinbaseTxID derives a deterministic pseudo-transaction ID for a
// minted output. Deterministic so that every node materialises the
// identical UTXO key for the same payout.
func CoinbaseTxID(to zledger.Address, reference string) string {
	h := sha256.New()
	h.Write([]byte("coinbase"))
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(to)))
	h.Write(n[:])
	h.Write([]byte(to))
	h.Write([]byte(reference))
	return hex.EncodeToString(h.Sum(nil))
}
