package zledger

// Store is the read surface over committed ledger state. State lives
// in disjoint namespaces (utxo, txn, shielded_txn, nullifier,
// commitment, difficulty, chainstate, mining_stats); keys are unique
// within a namespace and namespaces never share keys.
//
// All mutation happens through a StoreTransaction so a failed
// validation step can never leave a partial application behind.
type Store interface {
	Begin() (StoreTransaction, error)

	// GetUTXO returns the output with the given key.
	// Returns a NotFound error if absent.
	GetUTXO(txID string, vOut int) (UTXO, error)
	// GetTransaction returns a previously accepted transaction record.
	GetTransaction(txID string) (Transaction, error)
	// GetShieldedTransaction returns a previously accepted shielded record.
	GetShieldedTransaction(txID string) (ShieldedTransaction, error)
	// HasNullifier reports membership in the global nullifier set.
	HasNullifier(nullifier [32]byte) (bool, error)
	// CommitmentCount is the next free accumulator position.
	CommitmentCount() (int64, error)
	// GetDifficulty returns the committed difficulty state.
	// Returns a NotFound error before the genesis state is written.
	GetDifficulty() (DifficultyState, error)
	// GetChainPosition returns the orchestrator-maintained chain context.
	// Returns a NotFound error on a fresh store.
	GetChainPosition() (ChainPosition, error)
	// GetMinerStats returns accumulated stats for one miner.
	// Returns a NotFound error if the miner has mined nothing.
	GetMinerStats(miner Address) (MinerStats, error)

	Close()
}

// StoreTransaction adds the mutating operations. Commit applies every
// buffered change atomically; Rollback discards them. Rollback after
// Commit is a no-op so it can be deferred unconditionally.
type StoreTransaction interface {
	Commit() error
	Rollback() error

	// Reads see the transaction's own uncommitted writes.
	GetUTXO(txID string, vOut int) (UTXO, error)
	HasNullifier(nullifier [32]byte) (bool, error)
	CommitmentCount() (int64, error)
	GetDifficulty() (DifficultyState, error)
	GetChainPosition() (ChainPosition, error)
	GetMinerStats(miner Address) (MinerStats, error)

	// CreateUTXO inserts a new unspent output.
	// Returns a DBConflict error if (TxID, VOut) already exists.
	CreateUTXO(utxo UTXO) error
	// MarkSpent flips an output's spent flag, recording the spender.
	// The transition is one-way: returns a DBConflict error if the
	// output is missing or already spent.
	MarkSpent(txID string, vOut int, spendTxID string) error
	// StoreTx records an accepted transaction under the txn namespace.
	StoreTx(tx Transaction) error
	// StoreShieldedTx records an accepted shielded transaction.
	StoreShieldedTx(tx ShieldedTransaction) error
	// AddNullifier inserts into the global nullifier set.
	// Returns a DBConflict error if already present.
	AddNullifier(nullifier [32]byte) error
	// AppendCommitment appends to the accumulator and returns the
	// permanent position. Positions are never reused or reordered.
	AppendCommitment(commitment [32]byte) (position int64, err error)
	// SetDifficulty overwrites the difficulty state (epoch boundaries only).
	SetDifficulty(state DifficultyState) error
	// SetChainPosition advances the chain context.
	SetChainPosition(pos ChainPosition) error
	// AddMinerStats accumulates one accepted block into a miner's stats.
	AddMinerStats(miner Address, hardwareID string, reward CoinAmount) error
}
