package zledger

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// Bank is the external mint/transfer collaborator that pays rewards.
// A failure here aborts the payout; nothing has been committed yet.
type Bank interface {
	MintAndTransfer(to Address, amount CoinAmount, reference string) error
}

// CrossChainNotifier informs the peer chain of a completed reward.
// Strictly best-effort: by the time it runs the payout is committed
// and irreversible, so a notify failure is logged and swallowed.
type CrossChainNotifier interface {
	Notify(event RewardEvent) error
}

// RewardEvent is the payload forwarded to the peer chain relay.
type RewardEvent struct {
	Miner      Address    `json:"miner"`
	Height     int64      `json:"height"`
	Reward     CoinAmount `json:"reward"`
	HardwareID string     `json:"hardware_id"`
}

// RewardEngine computes block subsidies on the halving schedule plus
// the policy-driven hardware-class bonus, and requests payout.
type RewardEngine struct {
	store           Store
	bank            Bank
	notifier        CrossChainNotifier
	bus             MessageBus
	initialSubsidy  *big.Int
	halvingInterval int64
	hardwareBonus   map[string]CoinAmount
}

func NewRewardEngine(store Store, bank Bank, notifier CrossChainNotifier, bus MessageBus, cfg Config) (RewardEngine, error) {
	initial, ok := new(big.Int).SetString(cfg.Chain.InitialSubsidy, 10)
	if !ok || initial.Sign() < 0 {
		return RewardEngine{}, NewErr(BadRequest, "bad initial subsidy: %q", cfg.Chain.InitialSubsidy)
	}
	if cfg.Chain.HalvingInterval <= 0 {
		return RewardEngine{}, NewErr(BadRequest, "halving interval must be positive: %d", cfg.Chain.HalvingInterval)
	}
	bonuses := make(map[string]CoinAmount, len(cfg.Mining.HardwareBonus))
	for id, raw := range cfg.Mining.HardwareBonus {
		amount, err := decimal.NewFromString(raw)
		if err != nil || !IsLedgerAmount(amount) {
			return RewardEngine{}, NewErr(BadRequest, "bad hardware bonus for %q: %q", id, raw)
		}
		bonuses[id] = amount
	}
	return RewardEngine{
		store:           store,
		bank:            bank,
		notifier:        notifier,
		bus:             bus,
		initialSubsidy:  initial,
		halvingInterval: cfg.Chain.HalvingInterval,
		hardwareBonus:   bonuses,
	}, nil
}

// Subsidy is initialSubsidy >> (height / halvingInterval), floored to
// zero once the shift count reaches the integer width so the halving
// schedule terminates without relying on shift semantics past 64.
func (e RewardEngine) Subsidy(height int64) CoinAmount {
	if height < 0 {
		return ZeroCoins
	}
	halvings := height / e.halvingInterval
	if halvings >= 64 {
		return ZeroCoins
	}
	sub := new(big.Int).Rsh(e.initialSubsidy, uint(halvings))
	return decimal.NewFromBigInt(sub, 0)
}

// HardwareBonus looks up the policy table. An unrecognised class
// yields zero bonus: mining at base rate is still permitted, this is
// not an error condition.
func (e RewardEngine) HardwareBonus(hardwareID string) CoinAmount {
	if bonus, ok := e.hardwareBonus[hardwareID]; ok {
		return bonus
	}
	return ZeroCoins
}

// Pay mints subsidy+bonus to the miner, records mining stats, and
// fires the best-effort cross-chain notification. The bank call
// happens first: if the mint fails the whole payout aborts. Once the
// mint is committed, nothing rolls it back.
func (e RewardEngine) Pay(miner Address, height int64, hardwareID string) (CoinAmount, error) {
	payout := e.Subsidy(height).Add(e.HardwareBonus(hardwareID))

	if payout.IsPositive() {
		if err := e.bank.MintAndTransfer(miner, payout, rewardReference(height)); err != nil {
			// the bank's own code matters to callers: a DBConflict for
			// an already-paid height is permanent, not retryable
			if _, ok := err.(*ErrorInfo); ok {
				return ZeroCoins, err
			}
			return ZeroCoins, NewErr(NotAvailable, "reward mint failed at height %d: %v", height, err)
		}
	}

	// Stats are monitoring data: a failure here must not unwind the
	// payout, so record-and-log is the strongest we do.
	if err := e.recordStats(miner, hardwareID, payout); err != nil {
		e.bus.Send(SYS_ERR, struct {
			Msg string `json:"msg"`
		}{Msg: "mining stats update failed: " + err.Error()})
	}

	event := RewardEvent{Miner: miner, Height: height, Reward: payout, HardwareID: hardwareID}
	e.bus.Send(MINE_REWARD_PAID, event)
	if e.notifier != nil {
		if err := e.notifier.Notify(event); err != nil {
			e.bus.Send(SYS_ERR, struct {
				Msg string `json:"msg"`
			}{Msg: "cross-chain notify failed: " + err.Error()})
		} else {
			e.bus.Send(XCHAIN_REWARD, event)
		}
	}
	return payout, nil
}

func (e RewardEngine) recordStats(miner Address, hardwareID string, payout CoinAmount) error {
	dbtx, err := e.store.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	if err := dbtx.AddMinerStats(miner, hardwareID, payout); err != nil {
		return err
	}
	return dbtx.Commit()
}

func rewardReference(height int64) string {
	return "block-reward/" + strconv.FormatInt(height, 10)
}
