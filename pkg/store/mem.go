package store

import (
	"sync"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

// MemStore is an in-memory Store for tests and tooling. Transactions
// stage writes in an overlay and apply them on Commit under one lock,
// mirroring the atomicity the SQLite store gets from SQL transactions.
type MemStore struct {
	mu        sync.Mutex
	utxos     map[memUTXOKey]zledger.UTXO
	txns      map[string]zledger.Transaction
	shielded  map[string]zledger.ShieldedTransaction
	nullifier map[[32]byte]struct{}
	commits   [][32]byte
	diff      *zledger.DifficultyState
	pos       *zledger.ChainPosition
	stats     map[zledger.Address]zledger.MinerStats
}

type memUTXOKey struct {
	TxID string
	VOut int
}

var _ zledger.Store = &MemStore{}

func NewMemStore() *MemStore {
	return &MemStore{
		utxos:     make(map[memUTXOKey]zledger.UTXO),
		txns:      make(map[string]zledger.Transaction),
		shielded:  make(map[string]zledger.ShieldedTransaction),
		nullifier: make(map[[32]byte]struct{}),
		stats:     make(map[zledger.Address]zledger.MinerStats),
	}
}

func (s *MemStore) Close() {}

func (s *MemStore) Begin() (zledger.StoreTransaction, error) {
	return &memTx{store: s}, nil
}

func (s *MemStore) GetUTXO(txID string, vOut int) (zledger.UTXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUTXO(txID, vOut)
}

func (s *MemStore) getUTXO(txID string, vOut int) (zledger.UTXO, error) {
	utxo, ok := s.utxos[memUTXOKey{txID, vOut}]
	if !ok {
		return zledger.UTXO{}, zledger.NewErr(zledger.NotFound, "utxo not found: %s:%d", txID, vOut)
	}
	return utxo, nil
}

func (s *MemStore) GetTransaction(txID string) (zledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txns[txID]
	if !ok {
		return zledger.Transaction{}, zledger.NewErr(zledger.NotFound, "txn record not found: %s", txID)
	}
	return tx, nil
}

func (s *MemStore) GetShieldedTransaction(txID string) (zledger.ShieldedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.shielded[txID]
	if !ok {
		return zledger.ShieldedTransaction{}, zledger.NewErr(zledger.NotFound, "shielded record not found: %s", txID)
	}
	return tx, nil
}

func (s *MemStore) HasNullifier(n [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nullifier[n]
	return ok, nil
}

func (s *MemStore) CommitmentCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.commits)), nil
}

func (s *MemStore) GetDifficulty() (zledger.DifficultyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diff == nil {
		return zledger.DifficultyState{}, zledger.NewErr(zledger.NotFound, "difficulty state not initialised")
	}
	return *s.diff, nil
}

func (s *MemStore) GetChainPosition() (zledger.ChainPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos == nil {
		return zledger.ChainPosition{}, zledger.NewErr(zledger.NotFound, "chain position not initialised")
	}
	return *s.pos, nil
}

func (s *MemStore) GetMinerStats(miner zledger.Address) (zledger.MinerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.stats[miner]
	if !ok {
		return zledger.MinerStats{}, zledger.NewErr(zledger.NotFound, "no mining stats for %s", miner)
	}
	return stats, nil
}

/****** memTx implements zledger.StoreTransaction ******/

type memTx struct {
	store *MemStore
	done  bool
	ops   []func(*MemStore) // staged writes, applied in order on Commit

	// overlay of staged state for read-your-writes
	newUTXOs  map[memUTXOKey]zledger.UTXO
	spent     map[memUTXOKey]string
	newNulls  map[[32]byte]struct{}
	appended  int64
	stagedDif *zledger.DifficultyState
	stagedPos *zledger.ChainPosition
}

var _ zledger.StoreTransaction = &memTx{}

func (t *memTx) Commit() error {
	if t.done {
		return zledger.NewErr(zledger.DBConflict, "transaction already finished")
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op(t.store)
	}
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

func (t *memTx) GetUTXO(txID string, vOut int) (zledger.UTXO, error) {
	key := memUTXOKey{txID, vOut}
	if utxo, ok := t.newUTXOs[key]; ok {
		return utxo, nil
	}
	t.store.mu.Lock()
	utxo, err := t.store.getUTXO(txID, vOut)
	t.store.mu.Unlock()
	if err != nil {
		return zledger.UTXO{}, err
	}
	if spender, ok := t.spent[key]; ok {
		utxo.Spent = true
		utxo.SpendTxID = spender
	}
	return utxo, nil
}

func (t *memTx) HasNullifier(n [32]byte) (bool, error) {
	if _, ok := t.newNulls[n]; ok {
		return true, nil
	}
	return t.store.HasNullifier(n)
}

func (t *memTx) CommitmentCount() (int64, error) {
	count, err := t.store.CommitmentCount()
	return count + t.appended, err
}

func (t *memTx) GetDifficulty() (zledger.DifficultyState, error) {
	if t.stagedDif != nil {
		return *t.stagedDif, nil
	}
	return t.store.GetDifficulty()
}

func (t *memTx) GetChainPosition() (zledger.ChainPosition, error) {
	if t.stagedPos != nil {
		return *t.stagedPos, nil
	}
	return t.store.GetChainPosition()
}

func (t *memTx) GetMinerStats(miner zledger.Address) (zledger.MinerStats, error) {
	return t.store.GetMinerStats(miner)
}

func (t *memTx) CreateUTXO(utxo zledger.UTXO) error {
	key := memUTXOKey{utxo.TxID, utxo.VOut}
	if _, err := t.GetUTXO(utxo.TxID, utxo.VOut); err == nil {
		return zledger.NewErr(zledger.DBConflict, "utxo already exists: %s:%d", utxo.TxID, utxo.VOut)
	}
	if t.newUTXOs == nil {
		t.newUTXOs = make(map[memUTXOKey]zledger.UTXO)
	}
	t.newUTXOs[key] = utxo
	t.ops = append(t.ops, func(s *MemStore) { s.utxos[key] = utxo })
	return nil
}

func (t *memTx) MarkSpent(txID string, vOut int, spendTxID string) error {
	utxo, err := t.GetUTXO(txID, vOut)
	if err != nil {
		return zledger.NewErr(zledger.DBConflict, "utxo missing or already spent: %s:%d", txID, vOut)
	}
	if utxo.Spent {
		return zledger.NewErr(zledger.DBConflict, "utxo missing or already spent: %s:%d", txID, vOut)
	}
	key := memUTXOKey{txID, vOut}
	if t.spent == nil {
		t.spent = make(map[memUTXOKey]string)
	}
	t.spent[key] = spendTxID
	t.ops = append(t.ops, func(s *MemStore) {
		u := s.utxos[key]
		u.Spent = true
		u.SpendTxID = spendTxID
		s.utxos[key] = u
	})
	return nil
}

func (t *memTx) StoreTx(tx zledger.Transaction) error {
	t.ops = append(t.ops, func(s *MemStore) { s.txns[tx.TxID] = tx })
	return nil
}

func (t *memTx) StoreShieldedTx(tx zledger.ShieldedTransaction) error {
	t.ops = append(t.ops, func(s *MemStore) { s.shielded[tx.TxID] = tx })
	return nil
}

func (t *memTx) AddNullifier(n [32]byte) error {
	used, err := t.HasNullifier(n)
	if err != nil {
		return err
	}
	if used {
		return zledger.NewErr(zledger.DBConflict, "nullifier already present: %x", n)
	}
	if t.newNulls == nil {
		t.newNulls = make(map[[32]byte]struct{})
	}
	t.newNulls[n] = struct{}{}
	t.ops = append(t.ops, func(s *MemStore) { s.nullifier[n] = struct{}{} })
	return nil
}

func (t *memTx) AppendCommitment(c [32]byte) (int64, error) {
	position, err := t.CommitmentCount()
	if err != nil {
		return 0, err
	}
	t.appended++
	t.ops = append(t.ops, func(s *MemStore) { s.commits = append(s.commits, c) })
	return position, nil
}

func (t *memTx) SetDifficulty(state zledger.DifficultyState) error {
	t.stagedDif = &state
	t.ops = append(t.ops, func(s *MemStore) { s.diff = &state })
	return nil
}

func (t *memTx) SetChainPosition(pos zledger.ChainPosition) error {
	t.stagedPos = &pos
	t.ops = append(t.ops, func(s *MemStore) { s.pos = &pos })
	return nil
}

func (t *memTx) AddMinerStats(miner zledger.Address, hardwareID string, reward zledger.CoinAmount) error {
	t.ops = append(t.ops, func(s *MemStore) {
		stats, ok := s.stats[miner]
		if !ok {
			stats = zledger.MinerStats{Miner: miner, TotalReward: zledger.ZeroCoins}
		}
		stats.Blocks++
		stats.TotalReward = stats.TotalReward.Add(reward)
		stats.HardwareID = hardwareID
		s.stats[miner] = stats
	})
	return nil
}

// Commitments returns the accumulator contents in append order, for
// tests that assert position stability.
func (s *MemStore) Commitments() [][32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][32]byte, len(s.commits))
	copy(out, s.commits)
	return out
}
