package zledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"github.com/zchainfoundation/zledger/pkg/store"
)

// runBus starts a message bus loop so sends never block; no receivers
// are registered, events are drained and dropped.
func runBus(t *testing.T) zledger.MessageBus {
	t.Helper()
	bus := zledger.NewMessageBus()
	started := make(chan bool, 1)
	stopped := make(chan bool, 1)
	stop := make(chan context.Context, 1)
	require.NoError(t, bus.Run(started, stopped, stop))
	<-started
	t.Cleanup(func() {
		stop <- context.Background()
		<-stopped
	})
	return bus
}

type fakeBank struct {
	minted  []zledger.CoinAmount
	to      []zledger.Address
	refs    []string
	fail    bool
	failErr error
}

func (b *fakeBank) MintAndTransfer(to zledger.Address, amount zledger.CoinAmount, reference string) error {
	if b.failErr != nil {
		return b.failErr
	}
	if b.fail {
		return errors.New("mint service down")
	}
	b.to = append(b.to, to)
	b.minted = append(b.minted, amount)
	b.refs = append(b.refs, reference)
	return nil
}

type fakeNotifier struct {
	events []zledger.RewardEvent
	fail   bool
}

func (n *fakeNotifier) Notify(event zledger.RewardEvent) error {
	if n.fail {
		return errors.New("relay unreachable")
	}
	n.events = append(n.events, event)
	return nil
}

func rewardConfig() zledger.Config {
	cfg := zledger.Config{}
	cfg.Chain.InitialSubsidy = "50000000000000000"
	cfg.Chain.HalvingInterval = 210000000
	cfg.Mining.HardwareBonus = map[string]string{
		"nvidia-rtx-3080": "2000000000000000",
		"amd-rx-7900-xtx": "5500000000000000",
	}
	return cfg
}

func newEngine(t *testing.T, db zledger.Store, bank zledger.Bank, notifier zledger.CrossChainNotifier) zledger.RewardEngine {
	t.Helper()
	engine, err := zledger.NewRewardEngine(db, bank, notifier, runBus(t), rewardConfig())
	require.NoError(t, err)
	return engine
}

func TestSubsidyHalvingSchedule(t *testing.T) {
	engine := newEngine(t, store.NewMemStore(), &fakeBank{}, nil)

	initial, _ := decimal.NewFromString("50000000000000000")
	half := initial.Div(decimal.NewFromInt(2))

	require.True(t, engine.Subsidy(0).Equal(initial))
	require.True(t, engine.Subsidy(209999999).Equal(initial))
	require.True(t, engine.Subsidy(210000000).Equal(half))
	require.True(t, engine.Subsidy(420000000).Equal(half.Div(decimal.NewFromInt(2))))

	// past 64 halvings the subsidy is exactly zero
	require.True(t, engine.Subsidy(64*210000000).IsZero())
	require.True(t, engine.Subsidy(100*210000000).IsZero())

	// negative heights never pay
	require.True(t, engine.Subsidy(-1).IsZero())
}

func TestHardwareBonusLookup(t *testing.T) {
	engine := newEngine(t, store.NewMemStore(), &fakeBank{}, nil)

	want, _ := decimal.NewFromString("2000000000000000")
	require.True(t, engine.HardwareBonus("nvidia-rtx-3080").Equal(want))

	// unknown class mines at base rate, not an error
	require.True(t, engine.HardwareBonus("secret-asic-9000").IsZero())
	require.True(t, engine.HardwareBonus("").IsZero())
}

func TestPayMintsSubsidyPlusBonus(t *testing.T) {
	db := store.NewMemStore()
	bank := &fakeBank{}
	notifier := &fakeNotifier{}
	engine := newEngine(t, db, bank, notifier)

	payout, err := engine.Pay("miner1", 1, "nvidia-rtx-3080")
	require.NoError(t, err)

	want := engine.Subsidy(1).Add(engine.HardwareBonus("nvidia-rtx-3080"))
	require.True(t, payout.Equal(want))
	require.Len(t, bank.minted, 1)
	require.True(t, bank.minted[0].Equal(want))
	require.Equal(t, zledger.Address("miner1"), bank.to[0])
	require.Equal(t, "block-reward/1", bank.refs[0])

	stats, err := db.GetMinerStats("miner1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Blocks)
	require.True(t, stats.TotalReward.Equal(want))
	require.Equal(t, "nvidia-rtx-3080", stats.HardwareID)

	require.Len(t, notifier.events, 1)
	require.Equal(t, int64(1), notifier.events[0].Height)
}

func TestPayAbortsWhenBankFails(t *testing.T) {
	db := store.NewMemStore()
	engine := newEngine(t, db, &fakeBank{fail: true}, &fakeNotifier{})

	_, err := engine.Pay("miner1", 1, "")
	require.True(t, zledger.IsError(err, zledger.NotAvailable), "got %v", err)

	_, err = db.GetMinerStats("miner1")
	require.True(t, zledger.IsNotFoundError(err), "no stats recorded for a failed payout")
}

func TestPayKeepsBankErrorCode(t *testing.T) {
	db := store.NewMemStore()
	bank := &fakeBank{failErr: zledger.NewErr(zledger.DBConflict, "reward already paid")}
	engine := newEngine(t, db, bank, nil)

	// a duplicate payout is permanent and must not be reported as a
	// retryable outage
	_, err := engine.Pay("miner1", 1, "")
	require.True(t, zledger.IsDBConflictError(err), "got %v", err)
}

func TestPaySurvivesNotifierFailure(t *testing.T) {
	db := store.NewMemStore()
	bank := &fakeBank{}
	engine := newEngine(t, db, bank, &fakeNotifier{fail: true})

	payout, err := engine.Pay("miner1", 1, "")
	require.NoError(t, err, "payout is committed before notification; notify failure cannot roll it back")
	require.True(t, payout.Equal(engine.Subsidy(1)))
	require.Len(t, bank.minted, 1)

	stats, err := db.GetMinerStats("miner1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Blocks)
}

func TestPayAccumulatesStats(t *testing.T) {
	db := store.NewMemStore()
	engine := newEngine(t, db, &fakeBank{}, nil)

	_, err := engine.Pay("miner1", 1, "nvidia-rtx-3080")
	require.NoError(t, err)
	_, err = engine.Pay("miner1", 2, "amd-rx-7900-xtx")
	require.NoError(t, err)

	stats, err := db.GetMinerStats("miner1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Blocks)
	require.Equal(t, "amd-rx-7900-xtx", stats.HardwareID)

	want := engine.Subsidy(1).Add(engine.HardwareBonus("nvidia-rtx-3080")).
		Add(engine.Subsidy(2)).Add(engine.HardwareBonus("amd-rx-7900-xtx"))
	require.True(t, stats.TotalReward.Equal(want))
}

func TestNewRewardEngineRejectsBadConfig(t *testing.T) {
	bus := runBus(t)
	db := store.NewMemStore()

	bad := rewardConfig()
	bad.Chain.InitialSubsidy = "not-a-number"
	_, err := zledger.NewRewardEngine(db, &fakeBank{}, nil, bus, bad)
	require.Error(t, err)

	bad = rewardConfig()
	bad.Chain.HalvingInterval = 0
	_, err = zledger.NewRewardEngine(db, &fakeBank{}, nil, bus, bad)
	require.Error(t, err)

	bad = rewardConfig()
	bad.Mining.HardwareBonus = map[string]string{"rig": "1.5"}
	_, err = zledger.NewRewardEngine(db, &fakeBank{}, nil, bus, bad)
	require.Error(t, err)
}
