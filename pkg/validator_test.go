package zledger_test

import (
	"crypto/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"github.com/zchainfoundation/zledger/pkg/store"
)

func coins(n int64) zledger.CoinAmount {
	return decimal.NewFromInt(n)
}

// newFundedStore seeds a MemStore with one 100-coin output locked to a
// fresh key.
func newFundedStore(t *testing.T) (*store.MemStore, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(rand.Reader)
	require.NoError(t, err)

	db := store.NewMemStore()
	dbtx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, dbtx.CreateUTXO(zledger.UTXO{
		TxID:          "genesis",
		VOut:          0,
		Account:       "alice",
		Value:         coins(100),
		Height:        0,
		LockingScript: zledger.LockingScriptFor(&priv.PublicKey),
	}))
	require.NoError(t, dbtx.Commit())
	return db, priv
}

func signAll(t *testing.T, priv *ecdsa.PrivateKey, tx *zledger.Transaction) {
	t.Helper()
	sigHash := tx.SigHash()
	for i := range tx.Inputs {
		sig, err := zledger.SignInput(priv, sigHash)
		require.NoError(t, err)
		tx.Inputs[i].UnlockingScript = sig
	}
}

func TestApplySpendAndSplit(t *testing.T) {
	db, priv := newFundedStore(t)
	v := zledger.NewValidator(db)

	tx := zledger.Transaction{
		TxID:   "tx1",
		Inputs: []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
		Outputs: []zledger.TxOut{
			{Account: "bob", Value: coins(70)},
			{Account: "carol", Value: coins(25)},
		},
		Fee: coins(5),
	}
	signAll(t, priv, &tx)
	require.NoError(t, v.Apply(&tx, 1))

	spent, err := db.GetUTXO("genesis", 0)
	require.NoError(t, err)
	require.True(t, spent.Spent)
	require.Equal(t, "tx1", spent.SpendTxID)

	out0, err := db.GetUTXO("tx1", 0)
	require.NoError(t, err)
	require.Equal(t, zledger.Address("bob"), out0.Account)
	require.True(t, out0.Value.Equal(coins(70)))
	require.Equal(t, int64(1), out0.Height)

	out1, err := db.GetUTXO("tx1", 1)
	require.NoError(t, err)
	require.True(t, out1.Value.Equal(coins(25)))

	stored, err := db.GetTransaction("tx1")
	require.NoError(t, err)
	require.Equal(t, "tx1", stored.TxID)
}

func TestApplyRejectsSpentInput(t *testing.T) {
	db, priv := newFundedStore(t)
	v := zledger.NewValidator(db)

	first := zledger.Transaction{
		TxID:    "tx1",
		Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
		Outputs: []zledger.TxOut{{Account: "bob", Value: coins(100)}},
		Fee:     coins(0),
	}
	signAll(t, priv, &first)
	require.NoError(t, v.Apply(&first, 1))

	second := zledger.Transaction{
		TxID:    "tx2",
		Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
		Outputs: []zledger.TxOut{{Account: "carol", Value: coins(100)}},
		Fee:     coins(0),
	}
	signAll(t, priv, &second)
	err := v.Apply(&second, 2)
	require.True(t, zledger.IsAlreadySpentError(err), "got %v", err)

	// the winning spend is untouched
	u, err := db.GetUTXO("genesis", 0)
	require.NoError(t, err)
	require.Equal(t, "tx1", u.SpendTxID)
}

func TestApplyRacingSpendsOrderIndependent(t *testing.T) {
	// whichever spend arrives first wins; the verdict for the loser is
	// the same either way
	build := func(txID string, to zledger.Address) zledger.Transaction {
		return zledger.Transaction{
			TxID:    txID,
			Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
			Outputs: []zledger.TxOut{{Account: to, Value: coins(100)}},
		}
	}
	for _, order := range [][2]string{{"txA", "txB"}, {"txB", "txA"}} {
		db, priv := newFundedStore(t)
		v := zledger.NewValidator(db)
		first := build(order[0], "bob")
		second := build(order[1], "carol")
		signAll(t, priv, &first)
		signAll(t, priv, &second)

		require.NoError(t, v.Apply(&first, 1))
		err := v.Apply(&second, 1)
		require.True(t, zledger.IsAlreadySpentError(err), "got %v", err)
	}
}

func TestApplyUnknownInput(t *testing.T) {
	db, priv := newFundedStore(t)
	v := zledger.NewValidator(db)

	tx := zledger.Transaction{
		TxID:    "tx1",
		Inputs:  []zledger.TxIn{{PrevTxID: "nope", PrevVOut: 3}},
		Outputs: []zledger.TxOut{{Account: "bob", Value: coins(1)}},
	}
	signAll(t, priv, &tx)
	err := v.Apply(&tx, 1)
	require.True(t, zledger.IsError(err, zledger.UnknownInput), "got %v", err)
}

func TestApplyBadSignature(t *testing.T) {
	db, _ := newFundedStore(t)
	v := zledger.NewValidator(db)

	wrongKey, err := ecdsa.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tx := zledger.Transaction{
		TxID:    "tx1",
		Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
		Outputs: []zledger.TxOut{{Account: "bob", Value: coins(100)}},
	}
	signAll(t, wrongKey, &tx)
	err = v.Apply(&tx, 1)
	require.True(t, zledger.IsError(err, zledger.BadUnlockingScript), "got %v", err)

	// nothing was consumed
	u, err := db.GetUTXO("genesis", 0)
	require.NoError(t, err)
	require.False(t, u.Spent)
}

func TestApplyAmountMismatch(t *testing.T) {
	db, priv := newFundedStore(t)
	v := zledger.NewValidator(db)

	tx := zledger.Transaction{
		TxID:    "tx1",
		Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}},
		Outputs: []zledger.TxOut{{Account: "bob", Value: coins(70)}},
		Fee:     coins(5), // 70 + 5 != 100
	}
	signAll(t, priv, &tx)
	err := v.Apply(&tx, 1)
	require.True(t, zledger.IsError(err, zledger.AmountMismatch), "got %v", err)

	// rejection is atomic: the input is still spendable
	u, err := db.GetUTXO("genesis", 0)
	require.NoError(t, err)
	require.False(t, u.Spent)
	_, err = db.GetUTXO("tx1", 0)
	require.True(t, zledger.IsNotFoundError(err))
}

func TestApplyShapeChecks(t *testing.T) {
	db, _ := newFundedStore(t)
	v := zledger.NewValidator(db)

	out := []zledger.TxOut{{Account: "bob", Value: coins(1)}}
	in := []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}}

	cases := []struct {
		name string
		tx   zledger.Transaction
		code zledger.ErrorCode
	}{
		{"no id", zledger.Transaction{Inputs: in, Outputs: out}, zledger.BadRequest},
		{"no inputs", zledger.Transaction{TxID: "t", Outputs: out}, zledger.BadRequest},
		{"no outputs", zledger.Transaction{TxID: "t", Inputs: in}, zledger.BadRequest},
		{"duplicate input", zledger.Transaction{TxID: "t",
			Inputs:  []zledger.TxIn{{PrevTxID: "genesis", PrevVOut: 0}, {PrevTxID: "genesis", PrevVOut: 0}},
			Outputs: out}, zledger.BadRequest},
		{"fractional output", zledger.Transaction{TxID: "t", Inputs: in,
			Outputs: []zledger.TxOut{{Account: "bob", Value: decimal.NewFromFloat(1.5)}}}, zledger.AmountError},
		{"zero output", zledger.Transaction{TxID: "t", Inputs: in,
			Outputs: []zledger.TxOut{{Account: "bob", Value: coins(0)}}}, zledger.AmountError},
		{"negative fee", zledger.Transaction{TxID: "t", Inputs: in, Outputs: out,
			Fee: coins(-1)}, zledger.AmountError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := v.Apply(&c.tx, 1)
			require.True(t, zledger.IsError(err, c.code), "got %v", err)
		})
	}
}
