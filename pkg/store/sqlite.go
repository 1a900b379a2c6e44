package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	zledger "github.com/zchainfoundation/zledger/pkg"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// One table per namespace; namespaces never share keys. UTXO rows are
// never deleted: spending flips `spent`, a one-way transition
// enforced in SQL.
const SETUP_SQL string = `
CREATE TABLE IF NOT EXISTS utxo (
	txn_id TEXT NOT NULL,
	vout INTEGER NOT NULL,
	account TEXT NOT NULL,
	value TEXT NOT NULL,
	height INTEGER NOT NULL,
	spent INTEGER NOT NULL DEFAULT 0,
	spend_txn_id TEXT NOT NULL DEFAULT '',
	locking_script BLOB NOT NULL,
	PRIMARY KEY (txn_id, vout)
);

CREATE TABLE IF NOT EXISTS txn (
	txn_id TEXT NOT NULL PRIMARY KEY,
	body TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shielded_txn (
	txn_id TEXT NOT NULL PRIMARY KEY,
	body TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nullifier (
	value TEXT NOT NULL PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS commitment (
	position INTEGER NOT NULL PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS difficulty (
	id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
	bits INTEGER NOT NULL,
	last_retarget_height INTEGER NOT NULL,
	epoch_start_time INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chainstate (
	id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
	best_hash TEXT NOT NULL,
	best_height INTEGER NOT NULL,
	best_time INTEGER NOT NULL,
	merkle_root TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mining_stats (
	miner TEXT NOT NULL PRIMARY KEY,
	hardware_id TEXT NOT NULL,
	blocks INTEGER NOT NULL,
	total_reward TEXT NOT NULL
);
`

/****************** SQLiteStore implements zledger.Store ********************/
var _ zledger.Store = SQLiteStore{}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary initialises) a ledger DB.
// Use ":memory:" for tests.
func NewSQLiteStore(fileName string) (SQLiteStore, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return SQLiteStore{}, dbErr(err, "opening database")
	}
	// the sqlite driver deadlocks with concurrent writers; the ledger
	// is single-writer anyway.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(SETUP_SQL); err != nil {
		db.Close()
		return SQLiteStore{}, dbErr(err, "creating database schema")
	}
	return SQLiteStore{db}, nil
}

// Defer this until shutdown
func (s SQLiteStore) Close() {
	s.db.Close()
}

func (s SQLiteStore) Begin() (zledger.StoreTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, dbErr(err, "beginning transaction")
	}
	return &SQLiteStoreTransaction{tx: tx}, nil
}

func (s SQLiteStore) GetUTXO(txID string, vOut int) (zledger.UTXO, error) {
	return getUTXO(s.db, txID, vOut)
}

func (s SQLiteStore) GetTransaction(txID string) (zledger.Transaction, error) {
	var tx zledger.Transaction
	err := getJSONRecord(s.db, "txn", txID, &tx)
	return tx, err
}

func (s SQLiteStore) GetShieldedTransaction(txID string) (zledger.ShieldedTransaction, error) {
	var tx zledger.ShieldedTransaction
	err := getJSONRecord(s.db, "shielded_txn", txID, &tx)
	return tx, err
}

func (s SQLiteStore) HasNullifier(n [32]byte) (bool, error) {
	return hasNullifier(s.db, n)
}

func (s SQLiteStore) CommitmentCount() (int64, error) {
	return commitmentCount(s.db)
}

func (s SQLiteStore) GetDifficulty() (zledger.DifficultyState, error) {
	return getDifficulty(s.db)
}

func (s SQLiteStore) GetChainPosition() (zledger.ChainPosition, error) {
	return getChainPosition(s.db)
}

func (s SQLiteStore) GetMinerStats(miner zledger.Address) (zledger.MinerStats, error) {
	return getMinerStats(s.db, miner)
}

/****** SQLiteStoreTransaction implements zledger.StoreTransaction ******/
var _ zledger.StoreTransaction = &SQLiteStoreTransaction{}

type SQLiteStoreTransaction struct {
	tx       *sql.Tx
	finality bool
}

func (t *SQLiteStoreTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return dbErr(err, "commit")
	}
	t.finality = true
	return nil
}

// Rollback after Commit is a no-op, so it can be deferred
// unconditionally.
func (t *SQLiteStoreTransaction) Rollback() error {
	if t.finality {
		return nil
	}
	return t.tx.Rollback()
}

func (t *SQLiteStoreTransaction) GetUTXO(txID string, vOut int) (zledger.UTXO, error) {
	return getUTXO(t.tx, txID, vOut)
}

func (t *SQLiteStoreTransaction) HasNullifier(n [32]byte) (bool, error) {
	return hasNullifier(t.tx, n)
}

func (t *SQLiteStoreTransaction) CommitmentCount() (int64, error) {
	return commitmentCount(t.tx)
}

func (t *SQLiteStoreTransaction) GetDifficulty() (zledger.DifficultyState, error) {
	return getDifficulty(t.tx)
}

func (t *SQLiteStoreTransaction) GetChainPosition() (zledger.ChainPosition, error) {
	return getChainPosition(t.tx)
}

func (t *SQLiteStoreTransaction) GetMinerStats(miner zledger.Address) (zledger.MinerStats, error) {
	return getMinerStats(t.tx, miner)
}

func (t *SQLiteStoreTransaction) CreateUTXO(utxo zledger.UTXO) error {
	res, err := t.tx.Exec(
		"INSERT OR IGNORE INTO utxo (txn_id, vout, account, value, height, spent, spend_txn_id, locking_script) VALUES (?, ?, ?, ?, ?, 0, '', ?)",
		utxo.TxID, utxo.VOut, string(utxo.Account), utxo.Value.String(), utxo.Height, utxo.LockingScript)
	if err != nil {
		return dbErr(err, "CreateUTXO: insert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, "CreateUTXO: rows affected")
	}
	if n == 0 {
		return zledger.NewErr(zledger.DBConflict, "utxo already exists: %s:%d", utxo.TxID, utxo.VOut)
	}
	return nil
}

func (t *SQLiteStoreTransaction) MarkSpent(txID string, vOut int, spendTxID string) error {
	res, err := t.tx.Exec(
		"UPDATE utxo SET spent = 1, spend_txn_id = ? WHERE txn_id = ? AND vout = ? AND spent = 0",
		spendTxID, txID, vOut)
	if err != nil {
		return dbErr(err, "MarkSpent: update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, "MarkSpent: rows affected")
	}
	if n == 0 {
		return zledger.NewErr(zledger.DBConflict, "utxo missing or already spent: %s:%d", txID, vOut)
	}
	return nil
}

func (t *SQLiteStoreTransaction) StoreTx(tx zledger.Transaction) error {
	return storeJSONRecord(t.tx, "txn", tx.TxID, tx)
}

func (t *SQLiteStoreTransaction) StoreShieldedTx(tx zledger.ShieldedTransaction) error {
	return storeJSONRecord(t.tx, "shielded_txn", tx.TxID, tx)
}

func (t *SQLiteStoreTransaction) AddNullifier(n [32]byte) error {
	res, err := t.tx.Exec("INSERT OR IGNORE INTO nullifier (value) VALUES (?)", hex.EncodeToString(n[:]))
	if err != nil {
		return dbErr(err, "AddNullifier: insert")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, "AddNullifier: rows affected")
	}
	if rows == 0 {
		return zledger.NewErr(zledger.DBConflict, "nullifier already present: %x", n)
	}
	return nil
}

func (t *SQLiteStoreTransaction) AppendCommitment(c [32]byte) (int64, error) {
	// Positions are dense and append-only: next = current count.
	position, err := commitmentCount(t.tx)
	if err != nil {
		return 0, err
	}
	_, err = t.tx.Exec("INSERT INTO commitment (position, value) VALUES (?, ?)",
		position, hex.EncodeToString(c[:]))
	if err != nil {
		return 0, dbErr(err, "AppendCommitment: insert")
	}
	return position, nil
}

func (t *SQLiteStoreTransaction) SetDifficulty(state zledger.DifficultyState) error {
	_, err := t.tx.Exec(
		"INSERT INTO difficulty (id, bits, last_retarget_height, epoch_start_time) VALUES (1, ?, ?, ?) ON CONFLICT (id) DO UPDATE SET bits = ?, last_retarget_height = ?, epoch_start_time = ?",
		state.Bits, state.LastRetargetHeight, state.EpochStartTime,
		state.Bits, state.LastRetargetHeight, state.EpochStartTime)
	if err != nil {
		return dbErr(err, "SetDifficulty: upsert")
	}
	return nil
}

func (t *SQLiteStoreTransaction) SetChainPosition(pos zledger.ChainPosition) error {
	_, err := t.tx.Exec(
		"INSERT INTO chainstate (id, best_hash, best_height, best_time, merkle_root) VALUES (1, ?, ?, ?, ?) ON CONFLICT (id) DO UPDATE SET best_hash = ?, best_height = ?, best_time = ?, merkle_root = ?",
		pos.BestBlockHash, pos.BestBlockHeight, pos.BestBlockTime, pos.MerkleRoot,
		pos.BestBlockHash, pos.BestBlockHeight, pos.BestBlockTime, pos.MerkleRoot)
	if err != nil {
		return dbErr(err, "SetChainPosition: upsert")
	}
	return nil
}

func (t *SQLiteStoreTransaction) AddMinerStats(miner zledger.Address, hardwareID string, reward zledger.CoinAmount) error {
	stats, err := getMinerStats(t.tx, miner)
	if zledger.IsNotFoundError(err) {
		stats = zledger.MinerStats{Miner: miner, TotalReward: decimal.Zero}
	} else if err != nil {
		return err
	}
	stats.Blocks++
	stats.TotalReward = stats.TotalReward.Add(reward)
	stats.HardwareID = hardwareID
	_, err = t.tx.Exec(
		"INSERT INTO mining_stats (miner, hardware_id, blocks, total_reward) VALUES (?, ?, ?, ?) ON CONFLICT (miner) DO UPDATE SET hardware_id = ?, blocks = ?, total_reward = ?",
		string(miner), stats.HardwareID, stats.Blocks, stats.TotalReward.String(),
		stats.HardwareID, stats.Blocks, stats.TotalReward.String())
	if err != nil {
		return dbErr(err, "AddMinerStats: upsert")
	}
	return nil
}

/****************** shared queries ********************/

// queryable is satisfied by both *sql.DB and *sql.Tx so the store and
// its transactions share one set of read queries.
type queryable interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getUTXO(q queryable, txID string, vOut int) (zledger.UTXO, error) {
	row := q.QueryRow(
		"SELECT txn_id, vout, account, value, height, spent, spend_txn_id, locking_script FROM utxo WHERE txn_id = ? AND vout = ?",
		txID, vOut)
	var utxo zledger.UTXO
	var account, value string
	err := row.Scan(&utxo.TxID, &utxo.VOut, &account, &value, &utxo.Height, &utxo.Spent, &utxo.SpendTxID, &utxo.LockingScript)
	if err == sql.ErrNoRows {
		// MUST detect this error to fulfil the API contract.
		return zledger.UTXO{}, zledger.NewErr(zledger.NotFound, "utxo not found: %s:%d", txID, vOut)
	}
	if err != nil {
		return zledger.UTXO{}, dbErr(err, "GetUTXO: row.Scan")
	}
	utxo.Account = zledger.Address(account)
	utxo.Value, err = decimal.NewFromString(value)
	if err != nil {
		return zledger.UTXO{}, dbErr(err, fmt.Sprintf("GetUTXO: invalid decimal value in database: %v", value))
	}
	return utxo, nil
}

func getJSONRecord(q queryable, table string, txID string, out any) error {
	row := q.QueryRow("SELECT body FROM "+table+" WHERE txn_id = ?", txID)
	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return zledger.NewErr(zledger.NotFound, "%s record not found: %s", table, txID)
	}
	if err != nil {
		return dbErr(err, table+": row.Scan")
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return dbErr(err, table+": json.Unmarshal")
	}
	return nil
}

func storeJSONRecord(tx *sql.Tx, table string, txID string, record any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return dbErr(err, table+": json.Marshal")
	}
	_, err = tx.Exec("INSERT OR REPLACE INTO "+table+" (txn_id, body) VALUES (?, ?)", txID, string(body))
	if err != nil {
		return dbErr(err, table+": insert")
	}
	return nil
}

func hasNullifier(q queryable, n [32]byte) (bool, error) {
	row := q.QueryRow("SELECT 1 FROM nullifier WHERE value = ?", hex.EncodeToString(n[:]))
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, dbErr(err, "HasNullifier: row.Scan")
	}
	return true, nil
}

func commitmentCount(q queryable) (int64, error) {
	row := q.QueryRow("SELECT COUNT(*) FROM commitment")
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, dbErr(err, "CommitmentCount: row.Scan")
	}
	return count, nil
}

func getDifficulty(q queryable) (zledger.DifficultyState, error) {
	row := q.QueryRow("SELECT bits, last_retarget_height, epoch_start_time FROM difficulty WHERE id = 1")
	var state zledger.DifficultyState
	err := row.Scan(&state.Bits, &state.LastRetargetHeight, &state.EpochStartTime)
	if err == sql.ErrNoRows {
		return zledger.DifficultyState{}, zledger.NewErr(zledger.NotFound, "difficulty state not initialised")
	}
	if err != nil {
		return zledger.DifficultyState{}, dbErr(err, "GetDifficulty: row.Scan")
	}
	return state, nil
}

func getChainPosition(q queryable) (zledger.ChainPosition, error) {
	row := q.QueryRow("SELECT best_hash, best_height, best_time, merkle_root FROM chainstate WHERE id = 1")
	var pos zledger.ChainPosition
	err := row.Scan(&pos.BestBlockHash, &pos.BestBlockHeight, &pos.BestBlockTime, &pos.MerkleRoot)
	if err == sql.ErrNoRows {
		return zledger.ChainPosition{}, zledger.NewErr(zledger.NotFound, "chain position not initialised")
	}
	if err != nil {
		return zledger.ChainPosition{}, dbErr(err, "GetChainPosition: row.Scan")
	}
	return pos, nil
}

func getMinerStats(q queryable, miner zledger.Address) (zledger.MinerStats, error) {
	row := q.QueryRow("SELECT miner, hardware_id, blocks, total_reward FROM mining_stats WHERE miner = ?", string(miner))
	var stats zledger.MinerStats
	var m, reward string
	err := row.Scan(&m, &stats.HardwareID, &stats.Blocks, &reward)
	if err == sql.ErrNoRows {
		return zledger.MinerStats{}, zledger.NewErr(zledger.NotFound, "no mining stats for %s", miner)
	}
	if err != nil {
		return zledger.MinerStats{}, dbErr(err, "GetMinerStats: row.Scan")
	}
	stats.Miner = zledger.Address(m)
	stats.TotalReward, err = decimal.NewFromString(reward)
	if err != nil {
		return zledger.MinerStats{}, dbErr(err, "GetMinerStats: invalid decimal total")
	}
	return stats, nil
}

// dbErr maps driver errors into the ledger error taxonomy.
func dbErr(err error, where string) error {
	return zledger.NewErr(zledger.NotAvailable, "db error in %s: %v", where, err)
}
