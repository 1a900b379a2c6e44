package bank

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"github.com/zchainfoundation/zledger/pkg/store"
)

func TestMintAndTransferCreatesCoinbaseOutput(t *testing.T) {
	db := store.NewMemStore()
	b := NewUTXOBank(db)

	require.NoError(t, b.MintAndTransfer("miner1", decimal.NewFromInt(5000), "block-reward/1"))

	u, err := db.GetUTXO(CoinbaseTxID("miner1", "block-reward/1"), 0)
	require.NoError(t, err)
	require.Equal(t, zledger.Address("miner1"), u.Account)
	require.True(t, u.Value.Equal(decimal.NewFromInt(5000)))
	require.False(t, u.Spent)
	// fresh store: no chain position yet, minted at height 1
	require.Equal(t, int64(1), u.Height)
}

func TestMintAndTransferRejectsBadAmounts(t *testing.T) {
	b := NewUTXOBank(store.NewMemStore())

	err := b.MintAndTransfer("miner1", decimal.NewFromInt(0), "ref")
	require.True(t, zledger.IsError(err, zledger.AmountError), "got %v", err)

	err = b.MintAndTransfer("miner1", decimal.NewFromInt(-5), "ref")
	require.True(t, zledger.IsError(err, zledger.AmountError), "got %v", err)

	err = b.MintAndTransfer("miner1", decimal.NewFromFloat(1.5), "ref")
	require.True(t, zledger.IsError(err, zledger.AmountError), "got %v", err)
}

func TestMintAndTransferRejectsDuplicateReference(t *testing.T) {
	db := store.NewMemStore()
	b := NewUTXOBank(db)

	require.NoError(t, b.MintAndTransfer("miner1", decimal.NewFromInt(10), "block-reward/1"))
	err := b.MintAndTransfer("miner1", decimal.NewFromInt(10), "block-reward/1")
	require.True(t, zledger.IsDBConflictError(err), "double payout for one block is a conflict, got %v", err)
}

func TestCoinbaseTxIDDeterministic(t *testing.T) {
	require.Equal(t, CoinbaseTxID("m1", "r1"), CoinbaseTxID("m1", "r1"))
	require.NotEqual(t, CoinbaseTxID("m1", "r1"), CoinbaseTxID("m1", "r2"))
	require.NotEqual(t, CoinbaseTxID("m1", "r1"), CoinbaseTxID("m2", "r1"))
	// length prefix keeps (to, reference) pairs unambiguous
	require.NotEqual(t, CoinbaseTxID("ab", "c"), CoinbaseTxID("a", "bc"))
}
